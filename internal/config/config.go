package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"hotelbooking/internal/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig         `yaml:"app"`
	Database      DatabaseConfig    `yaml:"database"`
	Redis         RedisConfig       `yaml:"redis"`
	Monitoring    MonitoringConfig  `yaml:"monitoring"`
	Logging       LoggingConfig     `yaml:"logging"`
	API           APIConfig         `yaml:"api"`
	Reservation   ReservationConfig `yaml:"reservation"`
	Refunds       RefundsConfig     `yaml:"refunds"`
	RoomTypesPath string            `yaml:"room_types_path"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type DatabaseConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
	Backup   BackupConfig   `yaml:"backup"`
}

// BackupConfig schedules SQLite snapshots. Ignored for postgres.
type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	StoragePath   string        `yaml:"storage_path"`
	RetentionDays int           `yaml:"retention_days"`
}

type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	MaxConnections int    `yaml:"max_connections"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// HoldAttempts per HoldWindow per checkout session.
	HoldAttempts int           `yaml:"hold_attempts"`
	HoldWindow   time.Duration `yaml:"hold_window"`
}

type ReservationConfig struct {
	HoldTTL              time.Duration      `yaml:"hold_ttl"`
	DefaultTaxRate       float64            `yaml:"default_tax_rate"`
	MaxStayNights        int                `yaml:"max_stay_nights"`
	InventoryHorizonDays int                `yaml:"inventory_horizon_days"`
	// CheckInHour moves the lead-time reference to this UTC hour of the
	// check-in date. Unset measures to the date itself.
	CheckInHour          *int               `yaml:"checkin_hour"`
	CheckOutHour         int                `yaml:"checkout_hour"`
	MealPlans            map[string]float64 `yaml:"meal_plans"`
	Extras               map[string]float64 `yaml:"extras"`
}

type RefundsConfig struct {
	WorkerEnabled bool          `yaml:"worker_enabled"`
	PollInterval  time.Duration `yaml:"poll_interval"`
	Retry         RetryConfig   `yaml:"retry"`
	Breaker       BreakerConfig `yaml:"breaker"`
}

type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// RoomTypeSeed is one entry of the room types file.
type RoomTypeSeed struct {
	Code           string  `yaml:"code"`
	Name           string  `yaml:"name"`
	BasePrice      string  `yaml:"base_price"`
	TotalRooms     int     `yaml:"total_rooms"`
	MaxAdults      int     `yaml:"max_adults"`
	SeasonalPrices []struct {
		From  string `yaml:"from"`
		To    string `yaml:"to"`
		Price string `yaml:"price"`
	} `yaml:"seasonal_prices"`
}

func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// LoadRoomTypes reads the seed file listing room types and their capacity.
func LoadRoomTypes(path string) ([]RoomTypeSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seeds struct {
		RoomTypes []RoomTypeSeed `yaml:"room_types"`
	}
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, err
	}
	if err := ValidateRoomTypes(seeds.RoomTypes); err != nil {
		return nil, err
	}
	return seeds.RoomTypes, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case "postgres":
		if c.Database.Postgres.DSN == "" {
			return errors.New("postgres dsn is required")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	r := c.Reservation
	if r.DefaultTaxRate < 0 {
		return errors.New("default tax rate must not be negative")
	}
	if r.CheckInHour != nil && (*r.CheckInHour < 0 || *r.CheckInHour > 23) {
		return errors.New("checkin hour must be within 0..23")
	}
	if r.CheckOutHour < 0 || r.CheckOutHour > 23 {
		return errors.New("checkin/checkout hours must be within 0..23")
	}
	for plan, rate := range r.MealPlans {
		if rate < 0 {
			return fmt.Errorf("meal plan %s has negative rate", plan)
		}
	}
	for extra, price := range r.Extras {
		if price < 0 {
			return fmt.Errorf("extra %s has negative price", extra)
		}
	}
	return nil
}

func ValidateRoomTypes(seeds []RoomTypeSeed) error {
	codes := make(map[string]bool)
	for _, rt := range seeds {
		if rt.Code == "" {
			return fmt.Errorf("room type '%s' has empty code", rt.Name)
		}
		if codes[rt.Code] {
			return fmt.Errorf("duplicate room type code found: %s", rt.Code)
		}
		if rt.TotalRooms < 0 {
			return fmt.Errorf("room type %s has negative total_rooms", rt.Code)
		}
		codes[rt.Code] = true
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Backup.Interval == 0 {
		c.Database.Backup.Interval = 24 * time.Hour
	}
	if c.Database.Backup.StoragePath == "" {
		c.Database.Backup.StoragePath = "backups"
	}
	if c.Database.Postgres.MaxConnections == 0 {
		c.Database.Postgres.MaxConnections = 10
	}
	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.RateLimit.RPS == 0 {
		c.API.RateLimit.RPS = 20
	}
	if c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = 40
	}
	if c.API.RateLimit.HoldAttempts == 0 {
		c.API.RateLimit.HoldAttempts = models.HoldRateLimitAttempts
	}
	if c.API.RateLimit.HoldWindow == 0 {
		c.API.RateLimit.HoldWindow = models.HoldRateLimitWindow
	}
	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	// Reservation defaults
	if c.Reservation.HoldTTL == 0 {
		c.Reservation.HoldTTL = models.DefaultHoldTTL
	}
	if c.Reservation.MaxStayNights == 0 {
		c.Reservation.MaxStayNights = models.DefaultMaxStayNights
	}
	if c.Reservation.InventoryHorizonDays == 0 {
		c.Reservation.InventoryHorizonDays = models.DefaultInventoryHorizonDays
	}
	if c.Reservation.CheckOutHour == 0 {
		c.Reservation.CheckOutHour = models.DefaultCheckOutHour
	}

	// Refund worker defaults
	if c.Refunds.PollInterval == 0 {
		c.Refunds.PollInterval = 30 * time.Second
	}
	if c.Refunds.Retry.MaxRetries == 0 {
		c.Refunds.Retry.MaxRetries = 5
	}
	if c.Refunds.Retry.BaseDelay == 0 {
		c.Refunds.Retry.BaseDelay = 2 * time.Second
	}
	if c.Refunds.Retry.MaxDelay == 0 {
		c.Refunds.Retry.MaxDelay = time.Minute
	}
	if c.Refunds.Breaker.MaxRequests == 0 {
		c.Refunds.Breaker.MaxRequests = 1
	}
	if c.Refunds.Breaker.Timeout == 0 {
		c.Refunds.Breaker.Timeout = 30 * time.Second
	}
	if c.Refunds.Breaker.ConsecutiveFailures == 0 {
		c.Refunds.Breaker.ConsecutiveFailures = 5
	}

	if c.RoomTypesPath == "" {
		c.RoomTypesPath = "configs/room_types.yaml"
	}
}

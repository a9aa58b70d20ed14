package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"hotelbooking/internal/models"
)

func TestLoadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	t.Setenv("HOTEL_DB_PATH", "data/test.db")
	yamlContent := `
database:
  path: "${HOTEL_DB_PATH}"
reservation:
  hold_ttl: 10m
  default_tax_rate: 0.15
  meal_plans:
    breakfast: 55
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Database.Path != "data/test.db" {
		t.Errorf("expected expanded database path, got %s", cfg.Database.Path)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
	if cfg.Reservation.HoldTTL != 10*time.Minute {
		t.Errorf("expected hold ttl 10m, got %s", cfg.Reservation.HoldTTL)
	}
	if cfg.Reservation.MealPlans["breakfast"] != 55 {
		t.Errorf("expected breakfast override 55, got %v", cfg.Reservation.MealPlans["breakfast"])
	}
}

func TestLoadConfig_MidnightCheckInHour(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	yamlContent := `
database:
  path: hotel.db
reservation:
  checkin_hour: 0
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Reservation.CheckInHour == nil || *cfg.Reservation.CheckInHour != 0 {
		t.Errorf("expected explicit checkin hour 0 to survive defaults, got %v", cfg.Reservation.CheckInHour)
	}
}

func intPtr(v int) *int { return &v }

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name:    "valid sqlite",
			cfg:     Config{Database: DatabaseConfig{Driver: "sqlite", Path: "path"}},
			wantErr: false,
		},
		{
			name:    "sqlite without path",
			cfg:     Config{Database: DatabaseConfig{Driver: "sqlite"}},
			wantErr: true,
		},
		{
			name:    "postgres without dsn",
			cfg:     Config{Database: DatabaseConfig{Driver: "postgres"}},
			wantErr: true,
		},
		{
			name:    "unknown driver",
			cfg:     Config{Database: DatabaseConfig{Driver: "mysql", Path: "path"}},
			wantErr: true,
		},
		{
			name: "negative tax",
			cfg: Config{
				Database:    DatabaseConfig{Driver: "sqlite", Path: "path"},
				Reservation: ReservationConfig{DefaultTaxRate: -0.1},
			},
			wantErr: true,
		},
		{
			name: "checkin hour out of range",
			cfg: Config{
				Database:    DatabaseConfig{Driver: "sqlite", Path: "path"},
				Reservation: ReservationConfig{CheckInHour: intPtr(24)},
			},
			wantErr: true,
		},
		{
			name: "negative extra price",
			cfg: Config{
				Database:    DatabaseConfig{Driver: "sqlite", Path: "path"},
				Reservation: ReservationConfig{Extras: map[string]float64{"parking": -1}},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.Reservation.HoldTTL != models.DefaultHoldTTL {
		t.Errorf("expected default hold ttl %s, got %s", models.DefaultHoldTTL, cfg.Reservation.HoldTTL)
	}
	if cfg.Reservation.CheckInHour != nil {
		t.Errorf("expected checkin hour to stay unset, got %d", *cfg.Reservation.CheckInHour)
	}
	if cfg.Reservation.MaxStayNights != models.DefaultMaxStayNights {
		t.Errorf("expected default max stay %d, got %d", models.DefaultMaxStayNights, cfg.Reservation.MaxStayNights)
	}
	if cfg.API.HTTP.Port != 8080 {
		t.Errorf("expected default http port 8080, got %d", cfg.API.HTTP.Port)
	}
	if cfg.Refunds.Retry.MaxRetries != 5 {
		t.Errorf("expected default refund retries 5, got %d", cfg.Refunds.Retry.MaxRetries)
	}
	if cfg.RoomTypesPath != "configs/room_types.yaml" {
		t.Errorf("unexpected room types path %s", cfg.RoomTypesPath)
	}
}

func TestLoadRoomTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room_types.yaml")
	content := `
room_types:
  - code: STD
    name: Standard
    base_price: "100.00"
    total_rooms: 10
    max_adults: 2
  - code: DLX
    name: Deluxe
    base_price: "180.00"
    total_rooms: 4
    max_adults: 3
    seasonal_prices:
      - from: "2025-12-20"
        to: "2026-01-05"
        price: "240.00"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}

	seeds, err := LoadRoomTypes(path)
	if err != nil {
		t.Fatalf("LoadRoomTypes() error = %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("expected 2 room types, got %d", len(seeds))
	}
	if seeds[1].SeasonalPrices[0].Price != "240.00" {
		t.Errorf("unexpected seasonal price %s", seeds[1].SeasonalPrices[0].Price)
	}
}

func TestValidateRoomTypes(t *testing.T) {
	tests := []struct {
		name    string
		seeds   []RoomTypeSeed
		wantErr bool
	}{
		{
			name:    "Valid room types",
			seeds:   []RoomTypeSeed{{Code: "STD", Name: "Standard"}, {Code: "DLX", Name: "Deluxe"}},
			wantErr: false,
		},
		{
			name:    "Duplicate code",
			seeds:   []RoomTypeSeed{{Code: "STD", Name: "Standard"}, {Code: "STD", Name: "Other"}},
			wantErr: true,
		},
		{
			name:    "Empty code",
			seeds:   []RoomTypeSeed{{Name: "Standard"}},
			wantErr: true,
		},
		{
			name:    "Negative capacity",
			seeds:   []RoomTypeSeed{{Code: "STD", TotalRooms: -1}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRoomTypes(tt.seeds)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRoomTypes() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

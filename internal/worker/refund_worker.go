package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/events"
	"hotelbooking/internal/metrics"
	"hotelbooking/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	refundQueueKey      = "refunds:queue"
	refundDeadLetterKey = "refunds:deadletter"
)

// RefundTask asks the worker to execute the pending refund of one booking.
type RefundTask struct {
	BookingCode string    `json:"booking_code"`
	Attempt     int       `json:"attempt"`
	LastError   string    `json:"last_error,omitempty"`
	EnqueuedAt  time.Time `json:"enqueued_at"`
}

// RefundRecorder is the part of the booking state machine the worker drives.
type RefundRecorder interface {
	GetBooking(ctx context.Context, code string) (*models.Booking, error)
	RecordRefundResult(ctx context.Context, code string, result models.RefundResult) (*models.Booking, error)
}

// PendingRefundSource lists bookings by refund status for the polling fallback.
type PendingRefundSource interface {
	ListBookingsByRefundStatus(ctx context.Context, status models.RefundStatus, limit int) ([]*models.Booking, error)
}

// RefundWorker executes refunds computed at cancellation. Tasks arrive through
// a local channel, a Redis list, or a periodic scan of pending bookings.
type RefundWorker struct {
	bookings      RefundRecorder
	source        PendingRefundSource
	gateway       domain.RefundGateway
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan RefundTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
	timers   map[*time.Timer]struct{}
	retries  sync.WaitGroup
}

func NewRefundWorker(bookings RefundRecorder, source PendingRefundSource, gateway domain.RefundGateway, redisClient *redis.Client, retry RetryPolicy, pollInterval time.Duration, logger *zerolog.Logger) *RefundWorker {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &RefundWorker{
		bookings:      bookings,
		source:        source,
		gateway:       gateway,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan RefundTask, models.RefundQueueSize),
		redisQueueKey: refundQueueKey,
		deadLetterKey: refundDeadLetterKey,
		pollInterval:  pollInterval,
		batchSize:     20,
		logger:        logger,
		inFlight:      make(map[string]struct{}),
		timers:        make(map[*time.Timer]struct{}),
	}
}

// HandleEvent enqueues bookings that are owed a refund. It is meant to be
// subscribed to booking_cancelled and refund_retry.
func (w *RefundWorker) HandleEvent(event *events.Event) error {
	var payload events.BookingEventPayload
	if err := event.Decode(&payload); err != nil {
		return fmt.Errorf("decode booking event: %w", err)
	}
	if payload.RefundStatus != string(models.RefundPending) {
		return nil
	}
	return w.Enqueue(context.Background(), RefundTask{BookingCode: payload.Code})
}

// Enqueue schedules a task via Redis, falling back to the in-memory queue. A
// full queue leaves the task to the polling scan.
func (w *RefundWorker) Enqueue(ctx context.Context, task RefundTask) error {
	if task.BookingCode == "" {
		return errors.New("booking code is required")
	}
	if task.EnqueuedAt.IsZero() {
		task.EnqueuedAt = time.Now().UTC()
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, w.redisQueueKey, task); err != nil {
			w.logger.Warn().Err(err).Str("booking_code", task.BookingCode).Msg("refund_worker: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Str("booking_code", task.BookingCode).Msg("refund_worker: in-memory queue full, task left to polling")
	}
	return nil
}

// Start runs the worker loop until ctx is done.
func (w *RefundWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("refund_worker: started")
	defer w.logger.Info().Msg("refund_worker: stopped")
	defer w.stopRetries()

	lastPoll := time.Time{}
	for {
		if ctx.Err() != nil {
			return
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		if time.Since(lastPoll) >= w.pollInterval {
			lastPoll = time.Now()
			if n := w.PollPending(ctx); n > 0 {
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		case t := <-w.queue:
			w.processTask(ctx, t)
		case <-time.After(w.idleWait()):
		}
	}
}

func (w *RefundWorker) idleWait() time.Duration {
	if w.pollInterval < time.Second {
		return w.pollInterval
	}
	return time.Second
}

// PollPending processes bookings left in refund pending, for instance after a
// restart. It returns how many were attempted.
func (w *RefundWorker) PollPending(ctx context.Context) int {
	pending, err := w.source.ListBookingsByRefundStatus(ctx, models.RefundPending, w.batchSize)
	if err != nil {
		w.logger.Error().Err(err).Msg("refund_worker: fetch pending")
		return 0
	}
	for _, b := range pending {
		w.processTask(ctx, RefundTask{BookingCode: b.Code, EnqueuedAt: time.Now().UTC()})
	}
	return len(pending)
}

func (w *RefundWorker) tryLocalQueue() (RefundTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return RefundTask{}, false
	}
}

func (w *RefundWorker) tryRedis(ctx context.Context) (RefundTask, bool) {
	if w.redis == nil {
		return RefundTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			w.logger.Error().Err(err).Msg("refund_worker: redis BRPOP error")
		}
		return RefundTask{}, false
	}
	if len(res) != 2 {
		return RefundTask{}, false
	}
	var task RefundTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("refund_worker: decode redis task")
		return RefundTask{}, false
	}
	return task, true
}

func (w *RefundWorker) claim(code string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, busy := w.inFlight[code]; busy {
		return false
	}
	w.inFlight[code] = struct{}{}
	return true
}

func (w *RefundWorker) release(code string) {
	w.mu.Lock()
	delete(w.inFlight, code)
	w.mu.Unlock()
}

// processTask runs one refund attempt. A booking is worked on by at most one
// attempt at a time, including while a retry is scheduled.
func (w *RefundWorker) processTask(ctx context.Context, task RefundTask) {
	if !w.claim(task.BookingCode) {
		return
	}
	if retry := w.attempt(ctx, task); retry {
		return
	}
	w.release(task.BookingCode)
}

// attempt returns true when a retry was scheduled and the claim must be kept.
func (w *RefundWorker) attempt(ctx context.Context, task RefundTask) bool {
	log := w.logger.With().Str("booking_code", task.BookingCode).Int("attempt", task.Attempt+1).Logger()

	b, err := w.bookings.GetBooking(ctx, task.BookingCode)
	if err != nil {
		if errors.Is(err, domain.ErrBookingNotFound) {
			log.Warn().Msg("refund_worker: booking not found, dropping task")
			w.pushDeadLetter(ctx, task)
			return false
		}
		log.Error().Err(err).Msg("refund_worker: load booking")
		return w.retryOrFail(ctx, task, err)
	}
	if b.RefundStatus != models.RefundPending {
		log.Debug().Str("refund_status", string(b.RefundStatus)).Msg("refund_worker: nothing to do")
		return false
	}

	result, err := w.gateway.Refund(ctx, domain.RefundRequest{
		BookingCode:      b.Code,
		Amount:           b.RefundAmount,
		PaymentReference: b.PaymentReference,
	})
	if err != nil {
		metrics.IncRefund("error")
		log.Warn().Err(err).Msg("refund_worker: gateway call failed")
		return w.retryOrFail(ctx, task, err)
	}

	w.record(ctx, task.BookingCode, result)
	return false
}

func (w *RefundWorker) record(ctx context.Context, code string, result models.RefundResult) {
	_, err := w.bookings.RecordRefundResult(ctx, code, result)
	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed):
		w.logger.Debug().Str("booking_code", code).Msg("refund_worker: result already recorded")
	case err != nil:
		w.logger.Error().Err(err).Str("booking_code", code).Msg("refund_worker: record result")
	default:
		w.logger.Info().Str("booking_code", code).Bool("success", result.Success).Msg("refund_worker: refund recorded")
	}
}

func (w *RefundWorker) retryOrFail(ctx context.Context, task RefundTask, cause error) bool {
	task.Attempt++
	task.LastError = cause.Error()
	if w.retryPolicy.Exhausted(task.Attempt) {
		w.record(ctx, task.BookingCode, models.RefundResult{Success: false, Message: cause.Error()})
		w.pushDeadLetter(ctx, task)
		return false
	}

	delay := w.retryPolicy.NextDelay(task.Attempt)
	w.retries.Add(1)
	w.mu.Lock()
	defer w.mu.Unlock()
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		defer w.retries.Done()
		w.mu.Lock()
		delete(w.timers, timer)
		w.mu.Unlock()
		w.release(task.BookingCode)
		if ctx.Err() != nil {
			return
		}
		select {
		case w.queue <- task:
		default:
			w.logger.Warn().Str("booking_code", task.BookingCode).Msg("refund_worker: retry dropped to polling")
		}
	})
	w.timers[timer] = struct{}{}
	return true
}

// stopRetries cancels scheduled retries and waits for any already firing.
// Cancelled bookings stay refund pending and are found again by polling.
func (w *RefundWorker) stopRetries() {
	w.mu.Lock()
	for timer := range w.timers {
		if timer.Stop() {
			delete(w.timers, timer)
			w.retries.Done()
		}
	}
	w.mu.Unlock()
	w.retries.Wait()
}

func (w *RefundWorker) pushRedis(ctx context.Context, key string, task RefundTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, key, data).Err()
}

func (w *RefundWorker) pushDeadLetter(ctx context.Context, task RefundTask) {
	if w.redis == nil {
		return
	}
	if err := w.pushRedis(context.WithoutCancel(ctx), w.deadLetterKey, task); err != nil {
		w.logger.Error().Err(err).Str("booking_code", task.BookingCode).Msg("refund_worker: deadletter push")
	}
}

package worker

import (
	"context"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LoggingGateway accepts every refund and only records it. It stands in for a
// payment provider in development deployments.
type LoggingGateway struct {
	logger *zerolog.Logger
}

func NewLoggingGateway(logger *zerolog.Logger) *LoggingGateway {
	return &LoggingGateway{logger: logger}
}

func (g *LoggingGateway) Refund(ctx context.Context, req domain.RefundRequest) (models.RefundResult, error) {
	if err := ctx.Err(); err != nil {
		return models.RefundResult{}, err
	}
	ref := "rf_" + uuid.NewString()
	if g.logger != nil {
		g.logger.Info().
			Str("booking_code", req.BookingCode).
			Str("amount", req.Amount.StringFixed(2)).
			Str("payment_reference", req.PaymentReference).
			Str("refund_reference", ref).
			Msg("refund issued")
	}
	return models.RefundResult{Success: true, Reference: ref}, nil
}

package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
)

type fineReconciler interface {
	ReconcileAll(ctx context.Context) (dto.ReconcileResult, error)
}

type circulationSweeper interface {
	Sweep(ctx context.Context) (services.SweepResult, error)
}

type roomBookingCloser interface {
	CompletePastBookings(ctx context.Context) (int64, error)
}

// FinePoller reconciles unpaid fines against the payment gateway
func FinePoller(fines fineReconciler, logger zerolog.Logger) Task {
	return func(ctx context.Context) error {
		result, err := fines.ReconcileAll(ctx)
		if errors.Is(err, apperrors.ErrPaymentsDisabled) {
			return nil
		}
		if err != nil {
			return err
		}
		if result.Updated > 0 || result.Failed > 0 {
			logger.Info().
				Int("checked", result.Checked).
				Int("updated", result.Updated).
				Int("failed", result.Failed).
				Msg("Fine reconcile pass")
		}
		return nil
	}
}

// OverdueSweeper marks overdue loans and copies, expires missed pickups and
// closes finished reading room bookings.
func OverdueSweeper(circulation circulationSweeper, rooms roomBookingCloser, logger zerolog.Logger) Task {
	return func(ctx context.Context) error {
		if _, err := circulation.Sweep(ctx); err != nil {
			return fmt.Errorf("circulation sweep: %w", err)
		}
		completed, err := rooms.CompletePastBookings(ctx)
		if err != nil {
			return fmt.Errorf("complete room bookings: %w", err)
		}
		if completed > 0 {
			logger.Info().Int64("completed", completed).Msg("Room bookings completed")
		}
		return nil
	}
}

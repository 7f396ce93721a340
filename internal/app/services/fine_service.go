package services

import (
	"context"
	"errors"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/logger"
	"github.com/biblioteka/backend/internal/pkg/payment"
	"github.com/biblioteka/backend/internal/pkg/websocket"
)

// reconcileBatch caps how many fines one poll pass checks
const reconcileBatch = 500

// errUnchanged aborts a Settle whose locked row no longer needs a change
var errUnchanged = errors.New("fine unchanged")

type fineStore interface {
	Create(ctx context.Context, f *models.Fine) error
	GetByID(ctx context.Context, id int64) (*models.Fine, error)
	List(ctx context.Context, f repositories.FineFilter) ([]*models.Fine, repositories.PageInfo, error)
	Settle(ctx context.Context, id int64, now time.Time, fn func(*models.Fine) error) (*models.Fine, error)
	ListReconcilable(ctx context.Context, limit uint64) ([]*models.Fine, error)
	Delete(ctx context.Context, id int64) error
}

// FineService manages fines and their gateway reconciliation
type FineService struct {
	fines    fineStore
	payments payment.StatusChecker
	notifier Notifier
	now      func() time.Time
}

// NewFineService creates a new fine service instance. payments may be nil.
func NewFineService(fines fineStore, payments payment.StatusChecker, notifier Notifier) *FineService {
	return &FineService{
		fines:    fines,
		payments: payments,
		notifier: notifierOrNop(notifier),
		now:      time.Now,
	}
}

// Create stores a fine. A fine created as paid settles its loan.
func (s *FineService) Create(ctx context.Context, f *models.Fine) (*models.Fine, error) {
	requested := f.Status
	f.Status = models.FineStatusUnpaid
	f.PaidAt = nil
	if err := s.fines.Create(ctx, f); err != nil {
		return nil, err
	}
	if requested == "" || requested == models.FineStatusUnpaid {
		return f, nil
	}
	return s.fines.Settle(ctx, f.ID, s.now(), func(current *models.Fine) error {
		return s.applyStatus(current, requested)
	})
}

func (s *FineService) Get(ctx context.Context, id int64) (*models.Fine, error) {
	return s.fines.GetByID(ctx, id)
}

func (s *FineService) List(ctx context.Context, f repositories.FineFilter) ([]*models.Fine, repositories.PageInfo, error) {
	return s.fines.List(ctx, f)
}

// Update edits a fine under lock; a status change to paid settles the loan
func (s *FineService) Update(ctx context.Context, id int64, f *models.Fine) (*models.Fine, error) {
	fine, err := s.fines.Settle(ctx, id, s.now(), func(current *models.Fine) error {
		current.UserID = f.UserID
		current.LoanID = f.LoanID
		current.AmountCents = f.AmountCents
		current.Reason = f.Reason
		current.PaymentID = f.PaymentID
		current.YookassaPaymentID = f.YookassaPaymentID
		if f.Status == "" || f.Status == current.Status {
			return nil
		}
		return s.applyStatus(current, f.Status)
	})
	if err != nil {
		return nil, err
	}
	return fine, nil
}

func (s *FineService) applyStatus(f *models.Fine, status models.FineStatus) error {
	switch status {
	case models.FineStatusPaid:
		gatewayID := ""
		if f.YookassaPaymentID != nil {
			gatewayID = *f.YookassaPaymentID
		}
		return f.MarkAsPaid(s.now(), gatewayID)
	case models.FineStatusCancelled:
		return f.Cancel()
	case models.FineStatusUnpaid:
		f.Status = models.FineStatusUnpaid
		f.PaidAt = nil
		return nil
	}
	return apperrors.NewValidationError("status", "unknown fine status")
}

func (s *FineService) Delete(ctx context.Context, id int64) error {
	return s.fines.Delete(ctx, id)
}

// Pay marks the fine as paid, optionally recording the gateway payment
func (s *FineService) Pay(ctx context.Context, id int64, gatewayPaymentID string) (*models.Fine, error) {
	now := s.now()
	fine, err := s.fines.Settle(ctx, id, now, func(f *models.Fine) error {
		return f.MarkAsPaid(now, gatewayPaymentID)
	})
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(fine)
	return fine, nil
}

// Cancel writes the fine off
func (s *FineService) Cancel(ctx context.Context, id int64) (*models.Fine, error) {
	fine, err := s.fines.Settle(ctx, id, s.now(), func(f *models.Fine) error {
		return f.Cancel()
	})
	if err != nil {
		return nil, err
	}
	s.notifyUpdated(fine)
	return fine, nil
}

func (s *FineService) notifyUpdated(f *models.Fine) {
	s.notifier.Notify(&websocket.Notification{
		Type:    websocket.TypeFineUpdated,
		UserID:  f.UserID,
		Message: "Fine status changed to " + string(f.Status),
		Data: map[string]any{
			"fineId":      f.ID,
			"status":      f.Status,
			"amountCents": f.AmountCents,
		},
	})
}

// UpdateFineStatusFromGateway applies the gateway state of the fine's payment
// and reports whether the fine changed. Gateway failures are logged.
func (s *FineService) UpdateFineStatusFromGateway(ctx context.Context, fine *models.Fine) bool {
	updated, err := s.reconcile(ctx, fine)
	if err != nil {
		if !errors.Is(err, apperrors.ErrMissingGatewayPayment) {
			logger.Error().Err(err).Int64("fineID", fine.ID).Msg("Failed to update fine from gateway")
		}
		return false
	}
	return updated
}

func (s *FineService) reconcile(ctx context.Context, fine *models.Fine) (bool, error) {
	if !fine.HasGatewayPayment() {
		return false, apperrors.ErrMissingGatewayPayment
	}
	if s.payments == nil {
		return false, apperrors.ErrPaymentsDisabled
	}

	status, err := s.payments.CheckPaymentStatus(ctx, *fine.YookassaPaymentID)
	if err != nil {
		return false, err
	}
	if fine.ActionForGatewayStatus(status) == models.GatewayNoop {
		return false, nil
	}

	now := s.now()
	updated, err := s.fines.Settle(ctx, fine.ID, now, func(f *models.Fine) error {
		switch f.ActionForGatewayStatus(status) {
		case models.GatewayMarkPaid:
			return f.SettleFromGateway(now)
		case models.GatewayMarkCancelled:
			f.Status = models.FineStatusCancelled
			return nil
		}
		return errUnchanged
	})
	if errors.Is(err, errUnchanged) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	*fine = *updated
	logger.Info().Int64("fineID", fine.ID).Str("gatewayStatus", status).Str("status", string(fine.Status)).Msg("Fine reconciled with gateway")
	s.notifyUpdated(fine)
	return true, nil
}

// ReconcileFine checks one fine against the gateway
func (s *FineService) ReconcileFine(ctx context.Context, id int64) (*dto.FineReconcileResponse, error) {
	fine, err := s.fines.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.reconcile(ctx, fine)
	if err != nil {
		return nil, err
	}
	return &dto.FineReconcileResponse{Updated: updated, Fine: fine}, nil
}

// ReconcileAll checks every unpaid fine that carries a gateway payment
func (s *FineService) ReconcileAll(ctx context.Context) (dto.ReconcileResult, error) {
	result := dto.ReconcileResult{Fines: []int64{}}
	if s.payments == nil {
		return result, apperrors.ErrPaymentsDisabled
	}

	fines, err := s.fines.ListReconcilable(ctx, reconcileBatch)
	if err != nil {
		return result, err
	}
	for _, f := range fines {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		result.Checked++
		updated, err := s.reconcile(ctx, f)
		if err != nil {
			result.Failed++
			logger.Warn().Err(err).Int64("fineID", f.ID).Msg("Fine reconcile failed")
			continue
		}
		if updated {
			result.Updated++
			result.Fines = append(result.Fines, f.ID)
		}
	}
	return result, nil
}

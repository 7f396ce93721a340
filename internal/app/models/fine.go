package models

import (
	"time"

	"github.com/biblioteka/backend/internal/pkg/apperrors"
)

// Gateway payment states reported by YooKassa
const (
	PaymentSucceeded         = "succeeded"
	PaymentCanceled          = "canceled"
	PaymentPending           = "pending"
	PaymentWaitingForCapture = "waiting_for_capture"
)

// Fine is a monetary penalty, optionally tied to a loan
type Fine struct {
	ID                int64      `json:"id" db:"id"`
	UserID            int64      `json:"userId" db:"user_id"`
	LoanID            *int64     `json:"loanId,omitempty" db:"loan_id"`
	AmountCents       int64      `json:"amountCents" db:"amount_cents" example:"15000"`
	Reason            string     `json:"reason" db:"reason"`
	Status            FineStatus `json:"status" db:"status" example:"unpaid"`
	PaymentID         *string    `json:"paymentId,omitempty" db:"payment_id"`
	YookassaPaymentID *string    `json:"yookassaPaymentId,omitempty" db:"yookassa_payment_id"`
	PaidAt            *time.Time `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at"`
}

// MarkAsPaid settles the fine. The caller persists the linked loan change
// (see SettleLoan) in the same transaction.
func (f *Fine) MarkAsPaid(now time.Time, gatewayPaymentID string) error {
	if f.Status == FineStatusPaid {
		return apperrors.ErrFineAlreadyPaid
	}
	if f.Status == FineStatusCancelled {
		return apperrors.ErrFineNotPayable
	}
	f.Status = FineStatusPaid
	f.PaidAt = &now
	if gatewayPaymentID != "" {
		id := gatewayPaymentID
		f.YookassaPaymentID = &id
	}
	return nil
}

// SettleFromGateway records a payment the gateway reports as succeeded.
// The gateway is authoritative, so a fine written off locally is settled too.
func (f *Fine) SettleFromGateway(now time.Time) error {
	if f.Status == FineStatusPaid {
		return apperrors.ErrFineAlreadyPaid
	}
	f.Status = FineStatusPaid
	f.PaidAt = &now
	return nil
}

// Cancel writes the fine off
func (f *Fine) Cancel() error {
	if f.Status == FineStatusPaid {
		return apperrors.ErrFineAlreadyPaid
	}
	f.Status = FineStatusCancelled
	return nil
}

// SettleLoan applies a paid fine to its loan; a returned loan stays returned.
func SettleLoan(loan *BookLoan, now time.Time) {
	loan.Status = LoanStatusFinePaid
	loan.DeriveStatus(now)
}

// GatewayAction is what a gateway payment state means for a fine
type GatewayAction int

const (
	GatewayNoop GatewayAction = iota
	GatewayMarkPaid
	GatewayMarkCancelled
)

// ActionForGatewayStatus maps a gateway state onto the fine
func (f *Fine) ActionForGatewayStatus(status string) GatewayAction {
	switch {
	case status == PaymentSucceeded && f.Status != FineStatusPaid:
		return GatewayMarkPaid
	case status == PaymentCanceled && f.Status != FineStatusCancelled:
		return GatewayMarkCancelled
	}
	return GatewayNoop
}

// HasGatewayPayment reports whether the fine can be reconciled
func (f *Fine) HasGatewayPayment() bool {
	return f.YookassaPaymentID != nil && *f.YookassaPaymentID != ""
}

package dto

import "github.com/biblioteka/backend/internal/app/models"

// FineRequest creates or replaces a fine
type FineRequest struct {
	UserID            int64             `json:"userId" binding:"required,min=1"`
	LoanID            *int64            `json:"loanId" binding:"omitempty,min=1"`
	AmountCents       int64             `json:"amountCents" binding:"min=0"`
	Reason            string            `json:"reason" binding:"required,max=200"`
	Status            models.FineStatus `json:"status" binding:"omitempty,oneof=unpaid paid cancelled"`
	PaymentID         *string           `json:"paymentId" binding:"omitempty,max=100"`
	YookassaPaymentID *string           `json:"yookassaPaymentId" binding:"omitempty,max=100"`
}

// ToModel converts the request into a fine
func (r *FineRequest) ToModel() *models.Fine {
	f := &models.Fine{
		UserID:            r.UserID,
		LoanID:            r.LoanID,
		AmountCents:       r.AmountCents,
		Reason:            r.Reason,
		Status:            r.Status,
		PaymentID:         r.PaymentID,
		YookassaPaymentID: r.YookassaPaymentID,
	}
	if f.Status == "" {
		f.Status = models.FineStatusUnpaid
	}
	return f
}

// PayFineRequest records a payment made outside the poller
type PayFineRequest struct {
	YookassaPaymentID string `json:"yookassaPaymentId" binding:"omitempty,max=100"`
}

// ReconcileResult reports what a reconcile pass changed
type ReconcileResult struct {
	Checked int     `json:"checked"`
	Updated int     `json:"updated"`
	Failed  int     `json:"failed"`
	Fines   []int64 `json:"updatedFineIds"`
}

// FineReconcileResponse is returned for a single fine reconcile
type FineReconcileResponse struct {
	Updated bool         `json:"updated"`
	Fine    *models.Fine `json:"fine"`
}

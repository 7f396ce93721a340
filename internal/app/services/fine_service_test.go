package services

import (
	"context"
	"testing"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newFineService(fines *fakeFines, gateway *fakeGateway) (*FineService, *recordingNotifier) {
	notifier := &recordingNotifier{}
	var svc *FineService
	if gateway == nil {
		svc = NewFineService(fines, nil, notifier)
	} else {
		svc = NewFineService(fines, gateway, notifier)
	}
	svc.now = clock
	return svc, notifier
}

func TestPay_SettlesLinkedLoan(t *testing.T) {
	fines := newFakeFines(&models.Fine{ID: 1, UserID: 5, LoanID: int64Ptr(3), AmountCents: 15000, Status: models.FineStatusUnpaid})
	svc, notifier := newFineService(fines, nil)

	fine, err := svc.Pay(context.Background(), 1, "pay-1")
	require.NoError(t, err)

	assert.Equal(t, models.FineStatusPaid, fine.Status)
	assert.Equal(t, fixedNow, *fine.PaidAt)
	assert.Equal(t, "pay-1", *fine.YookassaPaymentID)
	assert.Equal(t, []int64{3}, fines.settledLoan)
	assert.Equal(t, []string{websocket.TypeFineUpdated}, notifier.types())

	_, err = svc.Pay(context.Background(), 1, "")
	assert.ErrorIs(t, err, apperrors.ErrFineAlreadyPaid)
	assert.Equal(t, []int64{3}, fines.settledLoan)
}

func TestCancel_RefusesPaidFine(t *testing.T) {
	fines := newFakeFines(
		&models.Fine{ID: 1, Status: models.FineStatusPaid},
		&models.Fine{ID: 2, Status: models.FineStatusUnpaid},
	)
	svc, _ := newFineService(fines, nil)

	_, err := svc.Cancel(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrFineAlreadyPaid)

	fine, err := svc.Cancel(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, models.FineStatusCancelled, fine.Status)
}

func TestCreate_AsPaidGoesThroughSettlement(t *testing.T) {
	fines := newFakeFines()
	svc, _ := newFineService(fines, nil)

	fine, err := svc.Create(context.Background(), &models.Fine{UserID: 5, LoanID: int64Ptr(8), AmountCents: 500, Reason: "late", Status: models.FineStatusPaid})
	require.NoError(t, err)

	assert.Equal(t, models.FineStatusPaid, fine.Status)
	assert.NotNil(t, fine.PaidAt)
	assert.Equal(t, []int64{8}, fines.settledLoan)
}

func TestUpdate_KeepsStatusWhenOmitted(t *testing.T) {
	fines := newFakeFines(&models.Fine{ID: 1, UserID: 5, AmountCents: 100, Status: models.FineStatusUnpaid})
	svc, _ := newFineService(fines, nil)

	fine, err := svc.Update(context.Background(), 1, &models.Fine{UserID: 5, AmountCents: 250, Reason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, models.FineStatusUnpaid, fine.Status)
	assert.Equal(t, int64(250), fine.AmountCents)
}

func TestUpdateFineStatusFromGateway(t *testing.T) {
	tests := []struct {
		name       string
		fine       *models.Fine
		gateway    *fakeGateway
		wantUpdate bool
		wantStatus models.FineStatus
	}{
		{
			name:       "no gateway id",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusUnpaid},
			gateway:    &fakeGateway{},
			wantStatus: models.FineStatusUnpaid,
		},
		{
			name:       "succeeded marks paid",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{statuses: map[string]string{"p1": models.PaymentSucceeded}},
			wantUpdate: true,
			wantStatus: models.FineStatusPaid,
		},
		{
			name:       "canceled marks cancelled",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{statuses: map[string]string{"p1": models.PaymentCanceled}},
			wantUpdate: true,
			wantStatus: models.FineStatusCancelled,
		},
		{
			name:       "succeeded settles a written-off fine",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusCancelled, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{statuses: map[string]string{"p1": models.PaymentSucceeded}},
			wantUpdate: true,
			wantStatus: models.FineStatusPaid,
		},
		{
			name:       "pending leaves fine",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{statuses: map[string]string{"p1": models.PaymentPending}},
			wantStatus: models.FineStatusUnpaid,
		},
		{
			name:       "already paid",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusPaid, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{statuses: map[string]string{"p1": models.PaymentSucceeded}},
			wantStatus: models.FineStatusPaid,
		},
		{
			name:       "gateway error",
			fine:       &models.Fine{ID: 1, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("p1")},
			gateway:    &fakeGateway{err: apperrors.ErrExternalService},
			wantStatus: models.FineStatusUnpaid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := *tt.fine
			fines := newFakeFines(&stored)
			svc, _ := newFineService(fines, tt.gateway)

			fine := *tt.fine
			assert.Equal(t, tt.wantUpdate, svc.UpdateFineStatusFromGateway(context.Background(), &fine))
			assert.Equal(t, tt.wantStatus, fines.byID[1].Status)
		})
	}
}

func TestReconcileFine_Errors(t *testing.T) {
	fines := newFakeFines(
		&models.Fine{ID: 1, Status: models.FineStatusUnpaid},
		&models.Fine{ID: 2, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("p2")},
	)

	disabled, _ := newFineService(fines, nil)
	_, err := disabled.ReconcileFine(context.Background(), 2)
	assert.ErrorIs(t, err, apperrors.ErrPaymentsDisabled)

	svc, _ := newFineService(fines, &fakeGateway{statuses: map[string]string{"p2": models.PaymentSucceeded}})
	_, err = svc.ReconcileFine(context.Background(), 1)
	assert.ErrorIs(t, err, apperrors.ErrMissingGatewayPayment)

	resp, err := svc.ReconcileFine(context.Background(), 2)
	require.NoError(t, err)
	assert.True(t, resp.Updated)
	assert.Equal(t, models.FineStatusPaid, resp.Fine.Status)
}

func TestReconcileFine_GatewayPaymentOverridesLocalCancel(t *testing.T) {
	fines := newFakeFines(&models.Fine{ID: 1, UserID: 5, LoanID: int64Ptr(4), Status: models.FineStatusCancelled, YookassaPaymentID: strPtr("p-1")})
	svc, notifier := newFineService(fines, &fakeGateway{statuses: map[string]string{"p-1": models.PaymentSucceeded}})

	resp, err := svc.ReconcileFine(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, resp.Updated)
	assert.Equal(t, models.FineStatusPaid, resp.Fine.Status)
	assert.Equal(t, fixedNow, *resp.Fine.PaidAt)
	assert.Equal(t, "p-1", *resp.Fine.YookassaPaymentID)
	assert.Equal(t, []int64{4}, fines.settledLoan)
	assert.Equal(t, []string{websocket.TypeFineUpdated}, notifier.types())
}

func TestReconcileAll_CountsOutcomes(t *testing.T) {
	fines := newFakeFines(
		&models.Fine{ID: 1, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("ok")},
		&models.Fine{ID: 2, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("wait")},
		&models.Fine{ID: 3, Status: models.FineStatusUnpaid, YookassaPaymentID: strPtr("gone")},
		&models.Fine{ID: 4, Status: models.FineStatusUnpaid},
	)
	gateway := &failingGateway{
		fakeGateway: fakeGateway{statuses: map[string]string{"ok": models.PaymentSucceeded, "wait": models.PaymentPending}},
		failing:     map[string]error{"gone": apperrors.ErrPaymentNotFound},
	}
	svc := NewFineService(fines, gateway, nil)
	svc.now = clock

	result, err := svc.ReconcileAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, result.Checked)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Failed)
	assert.Equal(t, []int64{1}, result.Fines)
}

type failingGateway struct {
	fakeGateway
	failing map[string]error
}

func (g *failingGateway) CheckPaymentStatus(ctx context.Context, id string) (string, error) {
	if err, ok := g.failing[id]; ok {
		return "", err
	}
	return g.fakeGateway.CheckPaymentStatus(ctx, id)
}

package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/biblioteka/backend/internal/app/models/dto"
	"github.com/biblioteka/backend/internal/app/services"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_RunsJobUntilStopped(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	var runs int32
	s.Add("count", 5*time.Millisecond, func(ctx context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 3 }, time.Second, time.Millisecond)
	s.Stop()

	after := atomic.LoadInt32(&runs)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, after, atomic.LoadInt32(&runs))
}

func TestScheduler_DisabledJobNeverRuns(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	s.Add("off", 0, func(ctx context.Context) error {
		t.Fatal("disabled job ran")
		return nil
	})
	assert.Empty(t, s.jobs)
	s.Start(context.Background())
	s.Stop()
}

func TestScheduler_SurvivesFailingAndPanickingTasks(t *testing.T) {
	s := NewScheduler(zerolog.Nop())
	var runs int32
	s.Add("flaky", 5*time.Millisecond, func(ctx context.Context) error {
		if atomic.AddInt32(&runs, 1)%2 == 0 {
			panic("boom")
		}
		return errors.New("failed")
	})

	s.Start(context.Background())
	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) >= 4 }, time.Second, time.Millisecond)
	s.Stop()
}

type stubReconciler struct {
	result dto.ReconcileResult
	err    error
}

func (s stubReconciler) ReconcileAll(context.Context) (dto.ReconcileResult, error) {
	return s.result, s.err
}

func TestFinePoller(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, FinePoller(stubReconciler{err: apperrors.ErrPaymentsDisabled}, zerolog.Nop())(ctx))
	assert.NoError(t, FinePoller(stubReconciler{result: dto.ReconcileResult{Checked: 2, Updated: 1}}, zerolog.Nop())(ctx))

	gatewayDown := errors.New("gateway down")
	assert.ErrorIs(t, FinePoller(stubReconciler{err: gatewayDown}, zerolog.Nop())(ctx), gatewayDown)
}

type stubSweeper struct {
	calls int
	err   error
}

func (s *stubSweeper) Sweep(context.Context) (services.SweepResult, error) {
	s.calls++
	return services.SweepResult{OverdueLoans: 1}, s.err
}

type stubRooms struct {
	calls int
}

func (s *stubRooms) CompletePastBookings(context.Context) (int64, error) {
	s.calls++
	return 2, nil
}

func TestOverdueSweeper(t *testing.T) {
	sweeper := &stubSweeper{}
	rooms := &stubRooms{}

	require.NoError(t, OverdueSweeper(sweeper, rooms, zerolog.Nop())(context.Background()))
	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, rooms.calls)

	sweeper.err = errors.New("db down")
	err := OverdueSweeper(sweeper, rooms, zerolog.Nop())(context.Background())
	assert.ErrorIs(t, err, sweeper.err)
	assert.Equal(t, 1, rooms.calls)
}

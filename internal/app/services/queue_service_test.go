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

func newQueueFixture(store *fakeQueue, emailOnTurn bool) (*QueueService, *fakeEmail, *recordingNotifier) {
	users := &fakeUsers{byID: map[int64]*models.User{5: {ID: 5, Username: "petrova", Email: "petrova@kpfu.ru"}}}
	books := newFakeBooks(&models.Book{ID: 10, Title: "Anna Karenina"})
	mail := &fakeEmail{}
	notifier := &recordingNotifier{}
	svc := NewQueueService(store, users, books, mail, notifier, emailOnTurn)
	svc.now = clock
	return svc, mail, notifier
}

func TestJoin_MapsDuplicateToAlreadyInQueue(t *testing.T) {
	svc, _, _ := newQueueFixture(&fakeQueue{joinErr: apperrors.ErrResourceAlreadyExists}, false)

	err := svc.Join(context.Background(), &models.BookQueue{UserID: 5, BookID: 10})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInQueue)
}

func TestJoin_DefaultsToWaiting(t *testing.T) {
	store := &fakeQueue{}
	svc, _, _ := newQueueFixture(store, false)

	e := &models.BookQueue{UserID: 5, BookID: 10}
	require.NoError(t, svc.Join(context.Background(), e))
	assert.Equal(t, models.QueueStatusWaiting, e.Status)
	assert.Equal(t, 1, e.Position)
}

func TestNotifyNext_EmptyQueue(t *testing.T) {
	svc, mail, notifier := newQueueFixture(&fakeQueue{}, true)

	_, err := svc.NotifyNext(context.Background(), 10, nil)
	assert.ErrorIs(t, err, apperrors.ErrQueueEmpty)
	assert.Empty(t, mail.queue)
	assert.Empty(t, notifier.types())
}

func TestNotifyNext_EmailsAndPushes(t *testing.T) {
	store := &fakeQueue{next: &models.BookQueue{ID: 3, UserID: 5, BookID: 10, Status: models.QueueStatusWaiting}}
	svc, mail, notifier := newQueueFixture(store, true)

	e, err := svc.NotifyNext(context.Background(), 10, nil)
	require.NoError(t, err)

	assert.Equal(t, models.QueueStatusNotified, e.Status)
	assert.Equal(t, fixedNow, *e.NotifiedAt)
	assert.Equal(t, []sentEmail{{to: "petrova@kpfu.ru", name: "petrova", title: "Anna Karenina"}}, mail.queue)
	assert.Equal(t, []string{websocket.TypeQueueAvailable}, notifier.types())
}

func TestNotifyNext_EmailDisabled(t *testing.T) {
	store := &fakeQueue{next: &models.BookQueue{ID: 3, UserID: 5, BookID: 10, Status: models.QueueStatusWaiting}}
	svc, mail, notifier := newQueueFixture(store, false)

	_, err := svc.NotifyNext(context.Background(), 10, int64Ptr(2))
	require.NoError(t, err)
	assert.Empty(t, mail.queue)
	assert.Len(t, notifier.types(), 1)
}

func TestSetStatus_NotifiedStampsTime(t *testing.T) {
	svc, _, _ := newQueueFixture(&fakeQueue{}, false)

	e, err := svc.SetStatus(context.Background(), 1, models.QueueStatusNotified)
	require.NoError(t, err)
	assert.Equal(t, models.QueueStatusNotified, e.Status)
	assert.Equal(t, fixedNow, *e.NotifiedAt)
}

func TestUpdate_StoresMovedEntry(t *testing.T) {
	store := &fakeQueue{}
	svc, _, _ := newQueueFixture(store, false)

	e, err := svc.Update(context.Background(), 1, &models.BookQueue{UserID: 5, BookID: 12, BranchID: int64Ptr(3)})
	require.NoError(t, err)

	require.Len(t, store.updated, 1)
	stored := store.updated[0]
	assert.Equal(t, int64(5), stored.UserID)
	assert.Equal(t, int64(12), stored.BookID)
	require.NotNil(t, stored.BranchID)
	assert.Equal(t, int64(3), *stored.BranchID)
	assert.Equal(t, models.QueueStatusWaiting, e.Status)
}

func TestUpdate_MapsDuplicateToAlreadyInQueue(t *testing.T) {
	svc, _, _ := newQueueFixture(&fakeQueue{updateErr: apperrors.NewCustomError(apperrors.ErrResourceAlreadyExists, "queue entry already exists")}, false)

	_, err := svc.Update(context.Background(), 1, &models.BookQueue{UserID: 5, BookID: 12})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInQueue)
}

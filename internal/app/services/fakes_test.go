package services

import (
	"context"
	"mime/multipart"
	"sync"
	"time"

	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/app/repositories"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	"github.com/biblioteka/backend/internal/pkg/websocket"
)

var fixedNow = time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

type recordingNotifier struct {
	mu   sync.Mutex
	sent []*websocket.Notification
}

func (n *recordingNotifier) Notify(m *websocket.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
}

func (n *recordingNotifier) types() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, m := range n.sent {
		out = append(out, m.Type)
	}
	return out
}

type sentEmail struct {
	to, name, title string
	due             time.Time
}

type fakeEmail struct {
	queue   []sentEmail
	overdue []sentEmail
}

func (e *fakeEmail) SendQueueAvailableEmail(to, name, title string) error {
	e.queue = append(e.queue, sentEmail{to: to, name: name, title: title})
	return nil
}

func (e *fakeEmail) SendOverdueReminder(to, name, title string, due time.Time) error {
	e.overdue = append(e.overdue, sentEmail{to: to, name: name, title: title, due: due})
	return nil
}

type fakeUsers struct{ byID map[int64]*models.User }

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

type fakeBooks struct {
	byID    map[int64]*models.Book
	saved   []repositories.BookLinks
	deleted []int64
	nextID  int64
	failSet error
}

func newFakeBooks(books ...*models.Book) *fakeBooks {
	f := &fakeBooks{byID: map[int64]*models.Book{}, nextID: 100}
	for _, b := range books {
		f.byID[b.ID] = b
	}
	return f
}

func (f *fakeBooks) Save(_ context.Context, b *models.Book, links repositories.BookLinks) error {
	if b.ID == 0 {
		f.nextID++
		b.ID = f.nextID
	} else if _, ok := f.byID[b.ID]; !ok {
		return apperrors.ErrResourceNotFound
	}
	f.byID[b.ID] = b
	f.saved = append(f.saved, links)
	return nil
}

func (f *fakeBooks) GetByID(_ context.Context, id int64) (*models.Book, error) {
	if b, ok := f.byID[id]; ok {
		return b, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeBooks) List(context.Context, repositories.BookFilter) ([]*models.Book, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeBooks) SetCover(_ context.Context, id int64, path string) (string, error) {
	if f.failSet != nil {
		return "", f.failSet
	}
	b, ok := f.byID[id]
	if !ok {
		return "", apperrors.ErrResourceNotFound
	}
	previous := b.CoverImage
	b.CoverImage = path
	return previous, nil
}

func (f *fakeBooks) Delete(_ context.Context, id int64) error {
	f.deleted = append(f.deleted, id)
	delete(f.byID, id)
	return nil
}

type fakeStorage struct {
	saved   []string
	deleted []string
}

func (s *fakeStorage) SaveFile(fh *multipart.FileHeader, subPath string) (string, error) {
	path := subPath + "/stored-" + fh.Filename
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *fakeStorage) DeleteFile(rel string) error {
	s.deleted = append(s.deleted, rel)
	return nil
}

func (s *fakeStorage) GetFullPath(rel string) string { return "/srv/" + rel }

func (s *fakeStorage) URL(rel string) string { return "http://cdn/" + rel }

type fakeCategories struct {
	parents map[int64]*int64
	updated []*models.Category
}

func (f *fakeCategories) Create(context.Context, *models.Category) error { return nil }

func (f *fakeCategories) GetByID(_ context.Context, id int64) (*models.Category, error) {
	return &models.Category{ID: id, ParentID: f.parents[id]}, nil
}

func (f *fakeCategories) List(context.Context, repositories.CategoryFilter) ([]*models.Category, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeCategories) AncestorIDs(_ context.Context, id int64) ([]int64, error) {
	ids := []int64{id}
	for p := f.parents[id]; p != nil; p = f.parents[*p] {
		ids = append(ids, *p)
	}
	return ids, nil
}

func (f *fakeCategories) Update(_ context.Context, c *models.Category) error {
	f.updated = append(f.updated, c)
	return nil
}

func (f *fakeCategories) Delete(context.Context, int64) error { return nil }

type fakeCopies struct {
	byID          map[int64]*models.BookCopy
	created       []*models.BookCopy
	overdueMarked int64
}

func (f *fakeCopies) Create(_ context.Context, c *models.BookCopy) error {
	f.created = append(f.created, c)
	return nil
}

func (f *fakeCopies) GetByID(_ context.Context, id int64) (*models.BookCopy, error) {
	if c, ok := f.byID[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeCopies) List(context.Context, repositories.BookCopyFilter) ([]*models.BookCopy, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeCopies) Update(_ context.Context, c *models.BookCopy) error {
	f.byID[c.ID] = c
	return nil
}

func (f *fakeCopies) MarkOverdue(context.Context, time.Time) (int64, error) {
	return f.overdueMarked, nil
}

func (f *fakeCopies) Delete(context.Context, int64) error { return nil }

type fakeBookings struct {
	byID    map[int64]*models.BookBooking
	created []*models.BookBooking
	loans   []*models.BookLoan
	expired int64
}

func (f *fakeBookings) Create(_ context.Context, b *models.BookBooking) error {
	f.created = append(f.created, b)
	return nil
}

func (f *fakeBookings) GetByID(_ context.Context, id int64) (*models.BookBooking, error) {
	if b, ok := f.byID[id]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeBookings) List(context.Context, repositories.BookBookingFilter) ([]*models.BookBooking, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeBookings) Update(_ context.Context, b *models.BookBooking) error {
	f.byID[b.ID] = b
	return nil
}

// Transition and Issue only store the change when fn succeeds, like the
// transactional repository.
func (f *fakeBookings) Transition(ctx context.Context, id int64, fn func(*models.BookBooking) error) (*models.BookBooking, error) {
	b, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	f.byID[id] = b
	return b, nil
}

func (f *fakeBookings) Issue(ctx context.Context, id int64, build func(*models.BookBooking) (*models.BookLoan, error)) (*models.BookLoan, error) {
	b, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	loan, err := build(b)
	if err != nil {
		return nil, err
	}
	loan.ID = int64(len(f.loans) + 1)
	f.loans = append(f.loans, loan)
	f.byID[id] = b
	return loan, nil
}

func (f *fakeBookings) ExpireReady(context.Context, time.Time) (int64, error) {
	return f.expired, nil
}

func (f *fakeBookings) Delete(context.Context, int64) error { return nil }

type fakeLoans struct {
	byID    map[int64]*models.BookLoan
	created []*models.BookLoan
	overdue []*models.BookLoan
}

func (f *fakeLoans) Create(_ context.Context, l *models.BookLoan) error {
	f.created = append(f.created, l)
	return nil
}

func (f *fakeLoans) GetByID(_ context.Context, id int64) (*models.BookLoan, error) {
	if l, ok := f.byID[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeLoans) List(context.Context, repositories.BookLoanFilter) ([]*models.BookLoan, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeLoans) Mutate(ctx context.Context, id int64, fn func(*models.BookLoan) error) (*models.BookLoan, error) {
	l, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(l); err != nil {
		return nil, err
	}
	f.byID[id] = l
	return l, nil
}

func (f *fakeLoans) MarkOverdue(context.Context, time.Time) ([]*models.BookLoan, error) {
	return f.overdue, nil
}

func (f *fakeLoans) Delete(context.Context, int64) error { return nil }

type waitlistCall struct {
	bookID   int64
	branchID *int64
}

type fakeWaitlist struct {
	calls []waitlistCall
	err   error
}

func (w *fakeWaitlist) NotifyNext(_ context.Context, bookID int64, branchID *int64) (*models.BookQueue, error) {
	w.calls = append(w.calls, waitlistCall{bookID: bookID, branchID: branchID})
	if w.err != nil {
		return nil, w.err
	}
	return &models.BookQueue{ID: 1, BookID: bookID, BranchID: branchID}, nil
}

type fakeFines struct {
	byID        map[int64]*models.Fine
	nextID      int64
	settledLoan []int64
}

func newFakeFines(fines ...*models.Fine) *fakeFines {
	f := &fakeFines{byID: map[int64]*models.Fine{}, nextID: 10}
	for _, fine := range fines {
		f.byID[fine.ID] = fine
	}
	return f
}

func (f *fakeFines) Create(_ context.Context, fine *models.Fine) error {
	f.nextID++
	fine.ID = f.nextID
	cp := *fine
	f.byID[fine.ID] = &cp
	return nil
}

func (f *fakeFines) GetByID(_ context.Context, id int64) (*models.Fine, error) {
	if fine, ok := f.byID[id]; ok {
		cp := *fine
		return &cp, nil
	}
	return nil, apperrors.ErrResourceNotFound
}

func (f *fakeFines) List(context.Context, repositories.FineFilter) ([]*models.Fine, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (f *fakeFines) Settle(ctx context.Context, id int64, _ time.Time, fn func(*models.Fine) error) (*models.Fine, error) {
	fine, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	wasPaid := fine.Status == models.FineStatusPaid
	if err := fn(fine); err != nil {
		return nil, err
	}
	f.byID[id] = fine
	if !wasPaid && fine.Status == models.FineStatusPaid && fine.LoanID != nil {
		f.settledLoan = append(f.settledLoan, *fine.LoanID)
	}
	cp := *fine
	return &cp, nil
}

func (f *fakeFines) ListReconcilable(context.Context, uint64) ([]*models.Fine, error) {
	var out []*models.Fine
	for _, fine := range f.byID {
		if fine.Status == models.FineStatusUnpaid && fine.HasGatewayPayment() {
			cp := *fine
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeFines) Delete(context.Context, int64) error { return nil }

type fakeGateway struct {
	statuses map[string]string
	err      error
	calls    int
}

func (g *fakeGateway) CheckPaymentStatus(_ context.Context, id string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	return g.statuses[id], nil
}

type fakeQueue struct {
	joinErr   error
	updateErr error
	next      *models.BookQueue
	joined    []*models.BookQueue
	updated   []models.BookQueue
}

func (q *fakeQueue) Join(_ context.Context, e *models.BookQueue) error {
	if q.joinErr != nil {
		return q.joinErr
	}
	e.ID = int64(len(q.joined) + 1)
	e.Position = len(q.joined) + 1
	q.joined = append(q.joined, e)
	return nil
}

func (q *fakeQueue) GetByID(context.Context, int64) (*models.BookQueue, error) {
	return &models.BookQueue{ID: 1, Status: models.QueueStatusWaiting}, nil
}

func (q *fakeQueue) List(context.Context, repositories.BookQueueFilter) ([]*models.BookQueue, repositories.PageInfo, error) {
	return nil, repositories.PageInfo{}, nil
}

func (q *fakeQueue) Update(_ context.Context, e *models.BookQueue) error {
	if q.updateErr != nil {
		return q.updateErr
	}
	q.updated = append(q.updated, *e)
	return nil
}

func (q *fakeQueue) NotifyNext(_ context.Context, _ int64, _ *int64, now time.Time) (*models.BookQueue, error) {
	if q.next == nil {
		return nil, nil
	}
	q.next.Notify(now)
	return q.next, nil
}

func (q *fakeQueue) Delete(context.Context, int64) error { return nil }

package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/qawatake/fixify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biblioteka/backend/internal/app/migrations"
	"github.com/biblioteka/backend/internal/app/models"
	"github.com/biblioteka/backend/internal/db"
	"github.com/biblioteka/backend/internal/pkg/apperrors"
	schema "github.com/biblioteka/backend/migrations"
)

// testDB connects to LIBRARY_TEST_DATABASE_URL and applies the schema.
// Every test truncates the tables it touches.
func testDB(t *testing.T) *db.PostgresDB {
	t.Helper()
	dsn := os.Getenv("LIBRARY_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("LIBRARY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	database, err := db.Connect(ctx, dsn, 4, 0, "")
	require.NoError(t, err)
	t.Cleanup(database.Close)

	_, err = migrations.NewMigrator(database, schema.FS).Up(ctx)
	require.NoError(t, err)

	_, err = database.Pool.Exec(ctx, `TRUNCATE users, branches, reading_rooms, room_bookings, books, book_copies, book_loans, fines, book_queue RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	return database
}

func fixtureUser(name string) *fixify.Model[models.User] {
	return fixify.NewModel(&models.User{
		Username: name,
		Email:    name + "@example.org",
		IsActive: true,
	})
}

func fixtureBranch() *fixify.Model[models.Branch] {
	return fixify.NewModel(&models.Branch{Name: "Central", IsActive: true, OpeningHours: map[string]string{}})
}

func fixtureBook(title string) *fixify.Model[models.Book] {
	return fixify.NewModel(&models.Book{Title: title, Language: "Russian", PriceCents: models.DefaultBookPriceCents})
}

func fixtureCopy() *fixify.Model[models.BookCopy] {
	return fixify.NewModel(&models.BookCopy{BookCount: 1, Status: models.CopyStatusActive, Condition: "good"},
		fixify.ConnectorFunc(func(_ testing.TB, c *models.BookCopy, b *models.Book) {
			c.BookID = b.ID
		}),
		fixify.ConnectorFunc(func(_ testing.TB, c *models.BookCopy, br *models.Branch) {
			c.BranchID = br.ID
		}),
	)
}

func fixtureLoan(issued, due time.Time) *fixify.Model[models.BookLoan] {
	return fixify.NewModel(&models.BookLoan{IssueDate: issued, DueDate: due, Status: models.LoanStatusActive},
		fixify.ConnectorFunc(func(_ testing.TB, l *models.BookLoan, u *models.User) {
			l.UserID = u.ID
		}),
		fixify.ConnectorFunc(func(_ testing.TB, l *models.BookLoan, c *models.BookCopy) {
			l.BookCopyID = c.ID
		}),
	)
}

func fixtureFine(amount int64) *fixify.Model[models.Fine] {
	return fixify.NewModel(&models.Fine{AmountCents: amount, Reason: "late return", Status: models.FineStatusUnpaid},
		fixify.ConnectorFunc(func(_ testing.TB, f *models.Fine, u *models.User) {
			f.UserID = u.ID
		}),
	)
}

func fixtureRoom(seats int) *fixify.Model[models.ReadingRoom] {
	return fixify.NewModel(&models.ReadingRoom{Name: "Hall 1", TotalSeats: seats, AvailableSeats: seats, IsActive: true, OpeningHours: map[string]string{}},
		fixify.ConnectorFunc(func(_ testing.TB, r *models.ReadingRoom, br *models.Branch) {
			r.BranchID = br.ID
		}),
	)
}

func fixtureLoanFine(amount int64) *fixify.Model[models.Fine] {
	return fixify.NewModel(&models.Fine{AmountCents: amount, Reason: "late return", Status: models.FineStatusUnpaid},
		fixify.ConnectorFunc(func(_ testing.TB, f *models.Fine, u *models.User) {
			f.UserID = u.ID
		}),
		fixify.ConnectorFunc(func(_ testing.TB, f *models.Fine, l *models.BookLoan) {
			id := l.ID
			f.LoanID = &id
		}),
	)
}

// persist inserts fixture models parents first
func persist(ctx context.Context, repos *Repositories) func(model any) error {
	return func(model any) error {
		switch m := model.(type) {
		case *models.User:
			return repos.Users.Create(ctx, m)
		case *models.Branch:
			return repos.Branches.Create(ctx, m)
		case *models.ReadingRoom:
			return repos.ReadingRooms.Create(ctx, m)
		case *models.Book:
			return repos.Books.Save(ctx, m, BookLinks{})
		case *models.BookCopy:
			return repos.BookCopies.Create(ctx, m)
		case *models.BookLoan:
			return repos.BookLoans.Create(ctx, m)
		case *models.Fine:
			return repos.Fines.Create(ctx, m)
		}
		return fmt.Errorf("unexpected fixture model %T", model)
	}
}

func TestBookLoanRepository_MarkOverdue(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()
	now := time.Now().UTC()

	late := fixtureLoan(now.AddDate(0, 0, -20), now.AddDate(0, 0, -6))
	current := fixtureLoan(now, now.AddDate(0, 0, 14))
	copyA, copyB := fixtureCopy(), fixtureCopy()
	fixify.New(t,
		fixtureBranch().With(copyA, copyB),
		fixtureBook("War and Peace").With(copyA, copyB),
		fixtureUser("reader").With(late, current),
		copyA.With(late),
		copyB.With(current),
	).Iterate(persist(ctx, repos))

	changed, err := repos.BookLoans.MarkOverdue(ctx, now)
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, late.Value().ID, changed[0].ID)
	assert.Equal(t, models.LoanStatusOverdue, changed[0].Status)

	overdue, err := repos.BookLoans.ListOverdue(ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, late.Value().ID, overdue[0].ID)

	again, err := repos.BookLoans.MarkOverdue(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, again)

	stored, err := repos.BookLoans.GetByID(ctx, current.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusActive, stored.Status)
}

func TestFineRepository_CreateAndGet(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()

	fine := fixtureFine(15000)
	fixify.New(t, fixtureUser("debtor").With(fine)).Iterate(persist(ctx, repos))

	got, err := repos.Fines.GetByID(ctx, fine.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), got.AmountCents)
	assert.Equal(t, models.FineStatusUnpaid, got.Status)
	assert.Equal(t, fine.Value().UserID, got.UserID)

	_, err = repos.Fines.GetByID(ctx, got.ID+1000)
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestBookQueueRepository_JoinPositions(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()

	first, second, third := fixtureUser("first"), fixtureUser("second"), fixtureUser("third")
	branch := fixtureBranch()
	book, other := fixtureBook("Oblomov"), fixtureBook("Dead Souls")
	fixify.New(t, first, second, third, branch, book, other).Iterate(persist(ctx, repos))

	join := func(user *fixify.Model[models.User], bookID int64, branchID *int64) (*models.BookQueue, error) {
		e := &models.BookQueue{UserID: user.Value().ID, BookID: bookID, BranchID: branchID}
		return e, repos.BookQueue.Join(ctx, e)
	}
	branchID := branch.Value().ID

	a, err := join(first, book.Value().ID, nil)
	require.NoError(t, err)
	b, err := join(second, book.Value().ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, a.Position)
	assert.Equal(t, 2, b.Position)
	assert.Equal(t, models.QueueStatusWaiting, b.Status)

	_, err = join(first, book.Value().ID, nil)
	assert.ErrorIs(t, err, apperrors.ErrResourceAlreadyExists, "a NULL branch still counts for uniqueness")

	atBranch, err := join(first, book.Value().ID, &branchID)
	require.NoError(t, err)
	assert.Equal(t, 1, atBranch.Position, "each branch keeps its own queue")

	notified, err := repos.BookQueue.NotifyNext(ctx, other.Value().ID, nil, time.Now())
	require.NoError(t, err)
	assert.Nil(t, notified)

	// once everybody has been notified the next reader starts a fresh tail
	for range 3 {
		e, err := repos.BookQueue.NotifyNext(ctx, book.Value().ID, &branchID, time.Now())
		require.NoError(t, err)
		require.NotNil(t, e)
	}
	c, err := join(third, book.Value().ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Position)
}

func TestBookQueueRepository_UpdateMovesEntry(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()

	reader, other := fixtureUser("reader"), fixtureUser("other")
	branch := fixtureBranch()
	book, target := fixtureBook("Oblomov"), fixtureBook("Dead Souls")
	fixify.New(t, reader, other, branch, book, target).Iterate(persist(ctx, repos))
	branchID := branch.Value().ID

	queued := &models.BookQueue{UserID: other.Value().ID, BookID: target.Value().ID, BranchID: &branchID}
	require.NoError(t, repos.BookQueue.Join(ctx, queued))
	entry := &models.BookQueue{UserID: reader.Value().ID, BookID: book.Value().ID}
	require.NoError(t, repos.BookQueue.Join(ctx, entry))

	entry.BookID = target.Value().ID
	entry.BranchID = &branchID
	require.NoError(t, repos.BookQueue.Update(ctx, entry))
	assert.Equal(t, 2, entry.Position)

	stored, err := repos.BookQueue.GetByID(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, target.Value().ID, stored.BookID)
	require.NotNil(t, stored.BranchID)
	assert.Equal(t, branchID, *stored.BranchID)
	assert.Equal(t, 2, stored.Position)

	entry.UserID = other.Value().ID
	err = repos.BookQueue.Update(ctx, entry)
	assert.ErrorIs(t, err, apperrors.ErrResourceAlreadyExists)
}

// seatsFit mirrors the booking service capacity rule
func seatsFit(b *models.RoomBooking) CapacityCheck {
	return func(room *models.ReadingRoom, overlapping []models.RoomBooking) error {
		if room.IsAvailable(overlapping, b.BookingDate, b.StartTime, b.EndTime, b.SeatsCount) {
			return nil
		}
		return apperrors.ErrRoomCapacityExceeded
	}
}

func TestRoomBookingRepository_SaveKeepsCapacity(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()

	room := fixtureRoom(3)
	reader := fixtureUser("reader")
	fixify.New(t, reader, fixtureBranch().With(room)).Iterate(persist(ctx, repos))

	day := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	booking := func(start, end models.ClockTime, seats int) *models.RoomBooking {
		return &models.RoomBooking{
			UserID: reader.Value().ID, RoomID: room.Value().ID, BookingDate: day,
			StartTime: start, EndTime: end, SeatsCount: seats, Status: models.RoomBookingConfirmed,
		}
	}

	group := booking("10:00", "12:00", 2)
	require.NoError(t, repos.RoomBookings.Save(ctx, group, seatsFit(group)))

	racers := []*models.RoomBooking{booking("10:30", "11:30", 1), booking("11:00", "12:30", 1)}
	errs := make([]error, len(racers))
	var wg sync.WaitGroup
	for i, b := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = repos.RoomBookings.Save(ctx, b, seatsFit(b))
		}()
	}
	wg.Wait()

	saved, refused := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			saved++
		case assert.ErrorIs(t, err, apperrors.ErrRoomCapacityExceeded):
			refused++
		}
	}
	assert.Equal(t, 1, saved)
	assert.Equal(t, 1, refused)

	later := booking("13:00", "14:00", 3)
	assert.NoError(t, repos.RoomBookings.Save(ctx, later, seatsFit(later)), "a window after the group is free again")
}

func TestFineRepository_SettleUpdatesLoan(t *testing.T) {
	database := testDB(t)
	repos := NewRepositories(database)
	ctx := context.Background()
	now := time.Now().UTC()

	returnedAt := now.AddDate(0, 0, -1)
	open := fixtureLoan(now.AddDate(0, 0, -30), now.AddDate(0, 0, -10))
	returned := fixify.NewModel(&models.BookLoan{
		IssueDate: now.AddDate(0, 0, -30), DueDate: now.AddDate(0, 0, -10),
		ReturnDate: &returnedAt, Status: models.LoanStatusReturned,
	},
		fixify.ConnectorFunc(func(_ testing.TB, l *models.BookLoan, u *models.User) {
			l.UserID = u.ID
		}),
		fixify.ConnectorFunc(func(_ testing.TB, l *models.BookLoan, c *models.BookCopy) {
			l.BookCopyID = c.ID
		}),
	)
	openFine, returnedFine := fixtureLoanFine(15000), fixtureLoanFine(5000)
	bookCopy := fixtureCopy()
	fixify.New(t,
		fixtureBranch().With(bookCopy),
		fixtureBook("The Master and Margarita").With(bookCopy),
		fixtureUser("debtor").With(open, returned, openFine, returnedFine),
		bookCopy.With(open, returned),
		open.With(openFine),
		returned.With(returnedFine),
	).Iterate(persist(ctx, repos))

	pay := func(f *models.Fine) error { return f.MarkAsPaid(now, "") }

	paid, err := repos.Fines.Settle(ctx, openFine.Value().ID, now, pay)
	require.NoError(t, err)
	assert.Equal(t, models.FineStatusPaid, paid.Status)
	loan, err := repos.BookLoans.GetByID(ctx, open.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusFinePaid, loan.Status)

	_, err = repos.Fines.Settle(ctx, returnedFine.Value().ID, now, pay)
	require.NoError(t, err)
	loan, err = repos.BookLoans.GetByID(ctx, returned.Value().ID)
	require.NoError(t, err)
	assert.Equal(t, models.LoanStatusReturned, loan.Status)

	_, err = repos.Fines.Settle(ctx, openFine.Value().ID, now, pay)
	assert.ErrorIs(t, err, apperrors.ErrFineAlreadyPaid)
}

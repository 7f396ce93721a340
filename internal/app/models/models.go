package models

import "time"

// UserType is the role stored on a profile
type UserType string

const (
	UserTypeGuest     UserType = "guest"
	UserTypeReader    UserType = "reader"
	UserTypeLibrarian UserType = "librarian"
	UserTypeAdmin     UserType = "admin"
)

var userTypeLabels = map[UserType]string{
	UserTypeGuest:     "Guest",
	UserTypeReader:    "Reader",
	UserTypeLibrarian: "Librarian",
	UserTypeAdmin:     "Administrator",
}

// Valid reports whether t is a known user type
func (t UserType) Valid() bool {
	_, ok := userTypeLabels[t]
	return ok
}

// Display returns the human-readable label
func (t UserType) Display() string {
	return displayOrUnknown(userTypeLabels, t)
}

// CopyStatus is the state of a BookCopy batch
type CopyStatus string

const (
	CopyStatusActive   CopyStatus = "active"
	CopyStatusReturned CopyStatus = "returned"
	CopyStatusOverdue  CopyStatus = "overdue"
	CopyStatusLost     CopyStatus = "lost"
)

var copyStatusLabels = map[CopyStatus]string{
	CopyStatusActive:   "Active",
	CopyStatusReturned: "Returned",
	CopyStatusOverdue:  "Overdue",
	CopyStatusLost:     "Lost",
}

func (s CopyStatus) Valid() bool {
	_, ok := copyStatusLabels[s]
	return ok
}

func (s CopyStatus) Display() string {
	return displayOrUnknown(copyStatusLabels, s)
}

// BookingStatus is the state of a BookBooking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusReady     BookingStatus = "ready"
	BookingStatusIssued    BookingStatus = "issued"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusExpired   BookingStatus = "expired"
)

var bookingStatusLabels = map[BookingStatus]string{
	BookingStatusPending:   "Processing",
	BookingStatusReady:     "Ready for pickup",
	BookingStatusIssued:    "Issued",
	BookingStatusCancelled: "Cancelled",
	BookingStatusExpired:   "Expired",
}

func (s BookingStatus) Valid() bool {
	_, ok := bookingStatusLabels[s]
	return ok
}

func (s BookingStatus) Display() string {
	return displayOrUnknown(bookingStatusLabels, s)
}

// LoanStatus is the state of a BookLoan
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusOverdue  LoanStatus = "overdue"
	LoanStatusLost     LoanStatus = "lost"
	LoanStatusFinePaid LoanStatus = "fine_paid"
)

var loanStatusLabels = map[LoanStatus]string{
	LoanStatusActive:   "Active",
	LoanStatusReturned: "Returned",
	LoanStatusOverdue:  "Overdue",
	LoanStatusLost:     "Lost",
	LoanStatusFinePaid: "Fine paid",
}

func (s LoanStatus) Valid() bool {
	_, ok := loanStatusLabels[s]
	return ok
}

func (s LoanStatus) Display() string {
	return displayOrUnknown(loanStatusLabels, s)
}

// RoomBookingStatus is the state of a RoomBooking
type RoomBookingStatus string

const (
	RoomBookingConfirmed RoomBookingStatus = "confirmed"
	RoomBookingCancelled RoomBookingStatus = "cancelled"
	RoomBookingCompleted RoomBookingStatus = "completed"
)

var roomBookingStatusLabels = map[RoomBookingStatus]string{
	RoomBookingConfirmed: "Confirmed",
	RoomBookingCancelled: "Cancelled",
	RoomBookingCompleted: "Completed",
}

func (s RoomBookingStatus) Valid() bool {
	_, ok := roomBookingStatusLabels[s]
	return ok
}

func (s RoomBookingStatus) Display() string {
	return displayOrUnknown(roomBookingStatusLabels, s)
}

// FineStatus is the state of a Fine
type FineStatus string

const (
	FineStatusUnpaid    FineStatus = "unpaid"
	FineStatusPaid      FineStatus = "paid"
	FineStatusCancelled FineStatus = "cancelled"
)

var fineStatusLabels = map[FineStatus]string{
	FineStatusUnpaid:    "Unpaid",
	FineStatusPaid:      "Paid",
	FineStatusCancelled: "Cancelled",
}

func (s FineStatus) Valid() bool {
	_, ok := fineStatusLabels[s]
	return ok
}

func (s FineStatus) Display() string {
	return displayOrUnknown(fineStatusLabels, s)
}

// QueueStatus is the state of a BookQueue entry
type QueueStatus string

const (
	QueueStatusWaiting   QueueStatus = "waiting"
	QueueStatusNotified  QueueStatus = "notified"
	QueueStatusCancelled QueueStatus = "cancelled"
	QueueStatusCompleted QueueStatus = "completed"
)

var queueStatusLabels = map[QueueStatus]string{
	QueueStatusWaiting:   "Waiting",
	QueueStatusNotified:  "Notified",
	QueueStatusCancelled: "Cancelled",
	QueueStatusCompleted: "Completed",
}

func (s QueueStatus) Valid() bool {
	_, ok := queueStatusLabels[s]
	return ok
}

func (s QueueStatus) Display() string {
	return displayOrUnknown(queueStatusLabels, s)
}

func displayOrUnknown[K comparable](labels map[K]string, key K) string {
	if label, ok := labels[key]; ok {
		return label
	}
	return "Unknown"
}

// DateOf strips the clock from t so that DATE columns compare by calendar day.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

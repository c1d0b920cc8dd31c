package bookings

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendingPayment Status = "PENDING_PAYMENT"
	StatusConfirmed      Status = "CONFIRMED"
	StatusCancelled      Status = "CANCELLED"
	StatusCompleted      Status = "COMPLETED"
	StatusNoShow         Status = "NO_SHOW"
)

func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// CanTransition описывает допустимые переходы статуса брони.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusPendingPayment:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted || to == StatusNoShow
	default:
		return false
	}
}

// PaidTolerance — допустимое превышение оплаты над ожидаемой суммой из-за округлений.
var PaidTolerance = decimal.RequireFromString("0.01")

type Booking struct {
	ID                   int64
	UserID               int64
	VehicleID            int64
	LocationID           int64
	SlotID               int64
	Status               Status
	EntryExpected        time.Time
	ExitExpected         time.Time
	ActualEntry          *time.Time
	ActualExit           *time.Time
	DurationHours        decimal.Decimal
	AmountExpected       decimal.Decimal
	AmountPaid           decimal.Decimal
	ReservationExpiresAt *time.Time
	Ticket               []byte
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Overpaid — нарушен ли инвариант amount_paid <= amount_expected (+ допуск).
func (b Booking) Overpaid() bool {
	return b.AmountPaid.GreaterThan(b.AmountExpected.Add(PaidTolerance))
}

type PaymentStatus string

const (
	PaymentInitiated     PaymentStatus = "INITIATED"
	PaymentSuccess       PaymentStatus = "SUCCESS"
	PaymentFailed        PaymentStatus = "FAILED"
	PaymentRefunded      PaymentStatus = "REFUNDED"
	PaymentPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

const (
	MethodGateway = "DUMMY_GATEWAY"
	MethodRefund  = "REFUND"
	MethodFine    = "FINE"
)

// Payment — запись журнала платежей. После вставки не меняется, возврат — новая строка.
type Payment struct {
	ID           int64
	BookingID    int64
	Amount       decimal.Decimal
	Currency     string
	Status       PaymentStatus
	GatewayTxnID string
	Method       string
	CreatedAt    time.Time
}

type Extension struct {
	ID          int64
	BookingID   int64
	ExtraHours  decimal.Decimal
	ExtraAmount decimal.Decimal
	PaymentID   int64
	CreatedAt   time.Time
}

type FineStatus string

const (
	FineUnpaid FineStatus = "UNPAID"
	FinePaid   FineStatus = "PAID"
)

type Fine struct {
	ID        int64
	BookingID int64
	Reason    string
	Amount    decimal.Decimal
	Status    FineStatus
	PaidAt    *time.Time
	CreatedAt time.Time
}

type EventType string

const (
	EventEntry EventType = "ENTRY"
	EventExit  EventType = "EXIT"
)

type EntryExitLog struct {
	ID         int64
	BookingID  int64
	EmployeeID *int64
	Event      EventType
	At         time.Time
}

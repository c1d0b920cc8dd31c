// Package ticket собирает билет брони. Картинку QR рисует клиент по полю code.
package ticket

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Spok95/parkaro/internal/domain/bookings"
)

const codePrefix = "BOOKING:"

var ErrBadCode = errors.New("unrecognised ticket code")

type Generator interface {
	Generate(ctx context.Context, b bookings.Booking) ([]byte, error)
}

type Ticket struct {
	Code       string    `json:"code"`
	BookingID  int64     `json:"booking_id"`
	LocationID int64     `json:"location_id"`
	SlotID     int64     `json:"slot_id"`
	VehicleID  int64     `json:"vehicle_id"`
	Entry      time.Time `json:"entry"`
	Exit       time.Time `json:"exit"`
	Amount     string    `json:"amount"`
}

func Code(bookingID int64) string {
	return codePrefix + strconv.FormatInt(bookingID, 10)
}

// ParseCode принимает "BOOKING:<id>" или просто "<id>".
func ParseCode(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, codePrefix); ok {
		s = rest
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrBadCode
	}
	return id, nil
}

type JSON struct{}

func (JSON) Generate(_ context.Context, b bookings.Booking) ([]byte, error) {
	return json.Marshal(Ticket{
		Code:       Code(b.ID),
		BookingID:  b.ID,
		LocationID: b.LocationID,
		SlotID:     b.SlotID,
		VehicleID:  b.VehicleID,
		Entry:      b.EntryExpected.UTC(),
		Exit:       b.ExitExpected.UTC(),
		Amount:     b.AmountPaid.StringFixed(2),
	})
}

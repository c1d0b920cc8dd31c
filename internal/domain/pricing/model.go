package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Clock — время суток, отсчитанное от полуночи.
type Clock time.Duration

func NewClock(hour, minute int) Clock {
	return Clock(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ClockOf берёт время суток из t в его собственной зоне.
func ClockOf(t time.Time) Clock {
	h, m, s := t.Clock()
	return Clock(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute +
		time.Duration(s)*time.Second + time.Duration(t.Nanosecond()))
}

func (c Clock) String() string {
	d := time.Duration(c)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// Weekday: 0 — понедельник ... 6 — воскресенье.
func Weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

type Rule struct {
	ID         int64
	LocationID *int64 // nil — правило для всех парковок
	DayOfWeek  *int   // nil — любой день
	Start      Clock
	End        Clock
	Multiplier decimal.Decimal
	Notes      string
}

// Matches — применимо ли правило к парковке locationID в момент at.
// at должен быть уже переведён в рабочую зону.
func (r Rule) Matches(locationID int64, at time.Time) bool {
	if r.LocationID != nil && *r.LocationID != locationID {
		return false
	}
	if r.DayOfWeek != nil && *r.DayOfWeek != Weekday(at) {
		return false
	}
	c := ClockOf(at)
	return r.Start <= c && c <= r.End
}

func (r Rule) String() string {
	scope := "global"
	if r.LocationID != nil {
		scope = fmt.Sprintf("location %d", *r.LocationID)
	}
	day := "any day"
	if r.DayOfWeek != nil {
		day = fmt.Sprintf("day %d", *r.DayOfWeek)
	}
	return fmt.Sprintf("%s x%s (%s-%s, %s)", scope, r.Multiplier.StringFixed(2), r.Start, r.End, day)
}

type Quote struct {
	Hours      decimal.Decimal
	Amount     decimal.Decimal
	Multiplier decimal.Decimal
	Daily      bool
	Days       int64
}

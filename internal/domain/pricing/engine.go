package pricing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Spok95/parkaro/internal/domain/locations"
)

var (
	one            = decimal.NewFromInt(1)
	dailyThreshold = decimal.NewFromInt(8)
	hoursPerDay    = decimal.NewFromInt(24)
)

type Engine struct {
	tz *time.Location
}

// NewEngine — tz задаёт зону, в которой считаются день недели и время суток для правил.
func NewEngine(tz *time.Location) *Engine {
	if tz == nil {
		tz = time.UTC
	}
	return &Engine{tz: tz}
}

// Hours — длительность окна в часах, округлённая до 2 знаков.
func Hours(from, to time.Time) decimal.Decimal {
	secs := decimal.NewFromInt(int64(to.Sub(from) / time.Second))
	return secs.Div(decimal.NewFromInt(3600)).Round(2)
}

// Multiplier — максимальный множитель среди подходящих правил, минимум 1.
func (e *Engine) Multiplier(rules []Rule, locationID int64, at time.Time) decimal.Decimal {
	local := at.In(e.tz)
	m := one
	for _, r := range rules {
		if r.Matches(locationID, local) && r.Multiplier.GreaterThan(m) {
			m = r.Multiplier
		}
	}
	return m
}

// Quote считает стоимость брони [entry, exit).
// От 8 часов — посуточный тариф без множителя: round(hours/24), но не меньше суток.
func (e *Engine) Quote(loc locations.Location, rules []Rule, entry, exit time.Time) Quote {
	hours := Hours(entry, exit)
	if hours.GreaterThanOrEqual(dailyThreshold) {
		days := hours.Div(hoursPerDay).RoundBank(0).IntPart()
		if days < 1 {
			days = 1
		}
		return Quote{
			Hours:      hours,
			Amount:     loc.DailyRate.Mul(decimal.NewFromInt(days)).Round(2),
			Multiplier: one,
			Daily:      true,
			Days:       days,
		}
	}

	m := e.Multiplier(rules, loc.ID, entry)
	return Quote{
		Hours:      hours,
		Amount:     hours.Mul(loc.HourlyRate).Mul(m).Round(2),
		Multiplier: m,
	}
}

// QuoteExtension — доплата за продление до newExit.
// Множитель ищется по новому времени выезда, посуточный тариф тут не применяется.
func (e *Engine) QuoteExtension(loc locations.Location, rules []Rule, currentExit, newExit time.Time) Quote {
	extra := Hours(currentExit, newExit)
	m := e.Multiplier(rules, loc.ID, newExit)
	return Quote{
		Hours:      extra,
		Amount:     extra.Mul(loc.HourlyRate).Mul(m).Round(2),
		Multiplier: m,
	}
}

package refunds

import (
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Ordered сортирует политики так, как их перебирает Resolve:
// больший порог раньше, при равном пороге — политика парковки раньше глобальной, затем по id.
func Ordered(policies []Policy) []Policy {
	out := append([]Policy(nil), policies...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.MinMinutesBefore != b.MinMinutesBefore {
			return a.MinMinutesBefore > b.MinMinutesBefore
		}
		if (a.LocationID != nil) != (b.LocationID != nil) {
			return a.LocationID != nil
		}
		return a.ID < b.ID
	})
	return out
}

// Resolve выбирает политику для отмены за minutesBefore минут до начала брони.
func Resolve(policies []Policy, locationID int64, minutesBefore float64) (Policy, bool) {
	for _, p := range Ordered(policies) {
		if p.LocationID != nil && *p.LocationID != locationID {
			continue
		}
		if float64(p.MinMinutesBefore) <= minutesBefore {
			return p, true
		}
	}
	return Policy{}, false
}

// Percentage — процент возврата (0, если ни одна политика не подошла).
func Percentage(policies []Policy, locationID int64, minutesBefore float64) decimal.Decimal {
	p, ok := Resolve(policies, locationID, minutesBefore)
	if !ok {
		return decimal.Zero
	}
	return p.RefundPercentage
}

// Refundable — сумма к возврату из оплаченного, округлённая до копеек.
func Refundable(paid, pct decimal.Decimal) decimal.Decimal {
	if pct.LessThanOrEqual(decimal.Zero) || paid.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return paid.Mul(pct).Div(hundred).Round(2)
}

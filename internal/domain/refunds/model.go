package refunds

import (
	"fmt"

	"github.com/shopspring/decimal"
)

type Policy struct {
	ID               int64
	LocationID       *int64 // nil — для всех парковок
	MinMinutesBefore int
	RefundPercentage decimal.Decimal
	Description      string
}

func (p Policy) String() string {
	scope := "global"
	if p.LocationID != nil {
		scope = fmt.Sprintf("location %d", *p.LocationID)
	}
	return fmt.Sprintf("%s: %s%% if >= %d min", scope, p.RefundPercentage.StringFixed(2), p.MinMinutesBefore)
}

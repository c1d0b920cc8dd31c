package payments

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge — что просим списать.
type Charge struct {
	BookingID   int64
	Amount      decimal.Decimal
	Currency    string
	Description string
}

type Status string

const (
	StatusSuccess  Status = "SUCCESS"
	StatusDeclined Status = "DECLINED"
)

type Authorization struct {
	Status Status
	TxnID  string
}

func (a Authorization) Approved() bool { return a.Status == StatusSuccess }

// Gateway — платёжный шлюз. Ошибка означает, что шлюз недоступен; отказ — Status != SUCCESS.
type Gateway interface {
	Authorize(ctx context.Context, c Charge) (Authorization, error)
}

// Stub сразу подтверждает любой платёж. Настоящей интеграции пока нет.
type Stub struct {
	newID func() string
}

func NewStub() *Stub {
	return &Stub{newID: func() string { return "DUMMY-" + uuid.NewString() }}
}

func (s *Stub) Authorize(ctx context.Context, c Charge) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}
	if c.Amount.IsNegative() {
		return Authorization{}, fmt.Errorf("negative amount %s", c.Amount)
	}
	return Authorization{Status: StatusSuccess, TxnID: s.newID()}, nil
}

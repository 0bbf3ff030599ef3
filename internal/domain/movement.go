package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Movement is one journal line of a balance change. The sum of a party's
// movement deltas equals its current balance.
type Movement struct {
	CreatedAt       time.Time
	Entity          LedgerTarget
	Source          ActivityRef
	ID              string
	Delta           decimal.Decimal
	PreviousBalance decimal.Decimal
	CurrentBalance  decimal.Decimal
}

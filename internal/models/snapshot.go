package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is one successful point-in-time extraction of a product page.
// Immutable once created.
type ProductSnapshot struct {
	Name      string
	Price     decimal.Decimal
	FetchedAt time.Time
}

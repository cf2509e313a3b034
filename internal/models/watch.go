package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// WatchState represents the lifecycle stage of a watch
type WatchState string

const (
	// StatePendingCriteria means the product was registered but the user
	// has not submitted a target price or any-sale flag yet
	StatePendingCriteria WatchState = "PENDING_CRITERIA"
	// StateActive means the watch has a stopping criterion and is picked up
	// by reconciliation passes
	StateActive WatchState = "ACTIVE"
	// StateFulfilled means the user was notified; the watch is archived
	StateFulfilled WatchState = "FULFILLED"
)

// Watch represents one user's request to monitor one product
type Watch struct {
	ID              int64
	OwnerName       string
	OwnerContact    string // E.164 phone number
	ProductURL      string
	ProductName     string
	LastKnownPrice  decimal.Decimal
	TargetPrice     decimal.Decimal
	HasTargetPrice  bool
	NotifyOnAnySale bool
	State           WatchState
	CreatedAt       time.Time
	LastChecked     time.Time
}

// HasCriteria reports whether the watch has a defined stopping criterion
func (w *Watch) HasCriteria() bool {
	return w.HasTargetPrice || w.NotifyOnAnySale
}

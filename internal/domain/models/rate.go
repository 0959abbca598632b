package models

import "time"

// RateSnapshot is an immutable record of conversion rates relative to USD,
// as returned by the exchange-rate provider. rate["USD"] == 1 by
// construction of the provider response. Snapshot history is append-only.
type RateSnapshot struct {
	ID        string
	Rates     map[string]float64
	CreatedAt time.Time
}

package models

import "time"

// Account holds no stored balance. The balance is always derived from the
// account's ledger entries at read time.
type Account struct {
	ID            int       `json:"id" db:"id"`
	AccountNumber string    `json:"account_number" db:"account_number"` // 16 chars: YYYYMMDD + NNNNN + XXX
	CustomerID    int       `json:"customer_id" db:"customer_id"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`

	// BalanceCents is populated by the query layer, never persisted.
	BalanceCents int64   `json:"balance_cents"`
	Balance      float64 `json:"balance"`
}

// DailySequence is the per-day counter behind account number allocation,
// one row per YYYYMMDD key.
type DailySequence struct {
	Date     string `json:"date" db:"date"`
	Sequence int    `json:"sequence" db:"sequence"`
}

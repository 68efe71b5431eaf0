package models

import "time"

// Transaction types.
const (
	TransactionDeposit    = "DEPOSIT"
	TransactionTransfer   = "TRANSFER"
	TransactionWithdrawal = "WITHDRAWAL"
)

// Ledger entry types.
const (
	EntryDebit  = "DEBIT"
	EntryCredit = "CREDIT"
)

// Transaction is one atomic economic event. Every transaction owns the
// ledger entries written with it; for transfers the signed entry amounts
// sum to zero. A deposit carries a single CREDIT leg because the source
// of the money is outside the ledger.
type Transaction struct {
	ID              int           `json:"id" db:"id"`
	TransactionType string        `json:"transaction_type" db:"transaction_type"`
	Timestamp       time.Time     `json:"timestamp" db:"timestamp"`
	Description     string        `json:"description" db:"description"`
	Entries         []LedgerEntry `json:"entries"`
}

// LedgerEntry is a single DEBIT or CREDIT leg against an account.
// Amounts are integer cents, always positive; the entry type carries the
// sign. Entries are immutable once written.
type LedgerEntry struct {
	ID            int     `json:"id" db:"id"`
	TransactionID int     `json:"transaction_id" db:"transaction_id"`
	AccountID     int     `json:"account_id" db:"account_id"`
	EntryType     string  `json:"entry_type" db:"entry_type"`
	AmountCents   int64   `json:"amount_cents" db:"amount_cents"`
	Amount        float64 `json:"amount"`
}

// Signed returns the entry amount with CREDIT positive and DEBIT negative.
func (e LedgerEntry) Signed() int64 {
	if e.EntryType == EntryCredit {
		return e.AmountCents
	}
	return -e.AmountCents
}

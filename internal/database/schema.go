package database

import (
	"database/sql"
	"fmt"
)

// Schema statements run at startup. Entries and transactions have no
// UPDATE or DELETE path anywhere in the codebase; rows are append-only.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		hashed_password TEXT NOT NULL,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		failed_login_attempts INT NOT NULL DEFAULT 0,
		last_login TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id SERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS accounts (
		id SERIAL PRIMARY KEY,
		account_number CHAR(16) NOT NULL UNIQUE,
		customer_id INT NOT NULL REFERENCES customers(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id SERIAL PRIMARY KEY,
		transaction_type TEXT NOT NULL CHECK (transaction_type IN ('DEPOSIT', 'TRANSFER', 'WITHDRAWAL')),
		timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS ledger_entries (
		id SERIAL PRIMARY KEY,
		transaction_id INT NOT NULL REFERENCES transactions(id),
		account_id INT NOT NULL REFERENCES accounts(id),
		entry_type TEXT NOT NULL CHECK (entry_type IN ('DEBIT', 'CREDIT')),
		amount_cents BIGINT NOT NULL CHECK (amount_cents > 0)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_account ON ledger_entries (account_id)`,
	`CREATE INDEX IF NOT EXISTS idx_ledger_entries_transaction ON ledger_entries (transaction_id)`,
	`CREATE TABLE IF NOT EXISTS daily_account_sequences (
		date CHAR(8) PRIMARY KEY,
		sequence INT NOT NULL DEFAULT 0
	)`,
}

// Migrate creates the schema if it does not exist.
func Migrate(db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

package services

import (
	"database/sql"
	"fmt"
)

// nextDailySequence advances the per-day counter and returns the new
// value, starting at 1 for the first allocation of a day. The row is
// created at 0 on first use and then read under FOR UPDATE, so
// concurrent allocations for the same date key serialize on the row
// lock and can never see the same value. The lock is held until the
// caller's transaction commits or rolls back.
func (s *LedgerService) nextDailySequence(tx *sql.Tx, dateKey string) (int, error) {
	if _, err := tx.Exec(`
		INSERT INTO daily_account_sequences (date, sequence)
		VALUES ($1, 0)
		ON CONFLICT (date) DO NOTHING`, dateKey); err != nil {
		return 0, fmt.Errorf("creating sequence row for %s: %w", dateKey, err)
	}

	var sequence int
	if err := tx.QueryRow(`
		SELECT sequence FROM daily_account_sequences
		WHERE date = $1
		FOR UPDATE`, dateKey).Scan(&sequence); err != nil {
		return 0, fmt.Errorf("locking sequence row for %s: %w", dateKey, err)
	}

	sequence++
	if sequence > s.cfg.MaxDailySequence {
		return 0, ErrSequenceExhausted
	}

	if _, err := tx.Exec(`
		UPDATE daily_account_sequences SET sequence = $1
		WHERE date = $2`, sequence, dateKey); err != nil {
		return 0, fmt.Errorf("advancing sequence for %s: %w", dateKey, err)
	}

	return sequence, nil
}

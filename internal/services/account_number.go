package services

import (
	cryptorand "crypto/rand"
	"database/sql"
	"fmt"
	"time"
)

const accountNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// allocateAccountNumber builds a 16-character account number inside the
// caller's transaction: 8-digit date, 5-digit zero-padded daily
// sequence, then a short random uppercase-alphanumeric tail. Date and
// sequence are the auditable parts; uniqueness is enforced by the
// account_number unique index, not by the tail.
func (s *LedgerService) allocateAccountNumber(tx *sql.Tx, now time.Time) (string, error) {
	dateKey := now.Format("20060102")

	sequence, err := s.nextDailySequence(tx, dateKey)
	if err != nil {
		return "", err
	}

	suffix, err := randomSuffix(s.cfg.AccountSuffixLength)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s%05d%s", dateKey, sequence, suffix), nil
}

func randomSuffix(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := cryptorand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random suffix: %w", err)
	}
	for i, b := range buf {
		buf[i] = accountNumberAlphabet[int(b)%len(accountNumberAlphabet)]
	}
	return string(buf), nil
}

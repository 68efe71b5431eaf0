package services

import (
	"errors"

	"github.com/lib/pq"
)

// Ledger errors returned to the transport layer. Handlers map these to
// status codes; nothing below the handler boundary retries or swallows
// them.
var (
	ErrCustomerNotFound   = errors.New("customer not found")
	ErrAccountNotFound    = errors.New("one or both accounts not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrAllocationConflict = errors.New("account number already allocated")
	ErrSequenceExhausted  = errors.New("daily account sequence exhausted")
)

const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err is a PostgreSQL duplicate-key
// error. Used to surface an account number collision as an allocation
// conflict rather than a generic store failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation
}

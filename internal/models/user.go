package models

import "time"

// User is an API credential holder. Authentication is glue around the
// ledger; the ledger core never reads this table.
type User struct {
	ID                  int        `json:"id" db:"id"`
	Email               string     `json:"email" db:"email"`
	HashedPassword      string     `json:"-" db:"hashed_password"`
	IsAdmin             bool       `json:"is_admin" db:"is_admin"`
	FailedLoginAttempts int        `json:"-" db:"failed_login_attempts"`
	LastLogin           *time.Time `json:"last_login,omitempty" db:"last_login"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
}

package models

// Customer owns zero or more accounts. Profile fields beyond name/email
// live with the customer-management side and are not the ledger's concern.
type Customer struct {
	ID    int    `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
}

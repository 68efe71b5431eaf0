package services

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/harborbank/backend/internal/models"
)

// CustomerService is the customer-management collaborator the ledger
// consults for existence checks. Customers are created, never updated
// or deleted, by this service.
type CustomerService struct {
	db *sql.DB
}

func NewCustomerService(db *sql.DB) *CustomerService {
	return &CustomerService{db: db}
}

var ErrEmailTaken = errors.New("email already registered")

func (s *CustomerService) CreateCustomer(name, email string) (*models.Customer, error) {
	customer := &models.Customer{Name: name, Email: email}
	err := s.db.QueryRow(`
		INSERT INTO customers (name, email)
		VALUES ($1, $2)
		RETURNING id`, name, email).Scan(&customer.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("inserting customer: %w", err)
	}
	return customer, nil
}

func (s *CustomerService) GetCustomer(id int) (*models.Customer, error) {
	customer := &models.Customer{ID: id}
	err := s.db.QueryRow(`SELECT name, email FROM customers WHERE id = $1`, id).
		Scan(&customer.Name, &customer.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying customer %d: %w", id, err)
	}
	return customer, nil
}

func (s *CustomerService) CustomerExists(id int) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("checking customer %d: %w", id, err)
	}
	return exists, nil
}

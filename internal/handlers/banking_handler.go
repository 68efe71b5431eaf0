package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/harborbank/backend/internal/services"
)

// BankingHandler is the thin HTTP surface over the ledger core. It
// decodes and validates requests, converts dollar amounts to cents
// exactly once at this edge, and maps ledger errors to status codes.
type BankingHandler struct {
	ledger    *services.LedgerService
	customers *services.CustomerService
	validator *services.ValidationHelper
}

func NewBankingHandler(ledger *services.LedgerService, customers *services.CustomerService) *BankingHandler {
	return &BankingHandler{
		ledger:    ledger,
		customers: customers,
		validator: services.NewValidationHelper(),
	}
}

type CustomerCreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type AccountCreateRequest struct {
	CustomerID     int     `json:"customer_id" validate:"required"`
	InitialDeposit float64 `json:"initial_deposit" validate:"required,gt=0"`
}

type TransferCreateRequest struct {
	FromAccountID int     `json:"from_account_id" validate:"required"`
	ToAccountID   int     `json:"to_account_id" validate:"required"`
	Amount        float64 `json:"amount" validate:"required,gt=0"`
	Description   string  `json:"description"`
}

type DepositCreateRequest struct {
	Amount      float64 `json:"amount" validate:"required,gt=0"`
	Description string  `json:"description"`
}

// CreateCustomer registers a new customer record.
func (h *BankingHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req CustomerCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	customer, err := h.customers.CreateCustomer(req.Name, req.Email)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, customer)
}

// GetCustomer returns a customer by id.
func (h *BankingHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(w, r, "customerID")
	if !ok {
		return
	}

	customer, err := h.customers.GetCustomer(customerID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, customer)
}

// CreateAccount opens an account with an opening deposit.
func (h *BankingHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req AccountCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	account, err := h.ledger.CreateAccount(req.CustomerID, toCents(req.InitialDeposit))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

// CreateTransfer moves money between two accounts.
func (h *BankingHandler) CreateTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	transaction, err := h.ledger.Transfer(req.FromAccountID, req.ToAccountID, toCents(req.Amount), req.Description)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

// CreateDeposit credits an account from an external source.
func (h *BankingHandler) CreateDeposit(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}

	var req DepositCreateRequest
	if !h.decode(w, r, &req) {
		return
	}

	transaction, err := h.ledger.Deposit(accountID, toCents(req.Amount), req.Description)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, transaction)
}

// GetBalance returns the derived balance of an account.
func (h *BankingHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}

	balanceCents, err := h.ledger.BalanceOf(accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"balance":       float64(balanceCents) / 100,
		"balance_cents": balanceCents,
	})
}

// GetTransactionHistory returns every transaction touching an account.
func (h *BankingHandler) GetTransactionHistory(w http.ResponseWriter, r *http.Request) {
	accountID, ok := pathID(w, r, "accountID")
	if !ok {
		return
	}

	transactions, err := h.ledger.TransactionsFor(accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"transactions": transactions})
}

// decode reads a single strict JSON object into dst and validates it.
// It writes the error response itself and reports whether the request
// may proceed.
func (h *BankingHandler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	maxBytes := 1_048_576 // 1 MB
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		services.SendErrorResponse(w, "Request body must only contain a single JSON object", http.StatusBadRequest, nil)
		return false
	}

	if err := h.validator.ValidateStruct(dst); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *BankingHandler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrCustomerNotFound), errors.Is(err, services.ErrAccountNotFound):
		services.SendErrorResponse(w, err.Error(), http.StatusNotFound, nil)
	case errors.Is(err, services.ErrInsufficientFunds), errors.Is(err, services.ErrInvalidTransaction),
		errors.Is(err, services.ErrEmailTaken):
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
	case errors.Is(err, services.ErrAllocationConflict), errors.Is(err, services.ErrSequenceExhausted):
		log.Printf("[BANKING] Allocation failure: %v", err)
		services.SendErrorResponse(w, "Failed to allocate account number", http.StatusInternalServerError, nil)
	default:
		log.Printf("[BANKING] Store failure: %v", err)
		services.SendErrorResponse(w, "Failed to process request", http.StatusInternalServerError, nil)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid id in path", http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

// toCents converts a dollar amount to integer cents. Rounding happens
// here once; everything past this point is integer arithmetic.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

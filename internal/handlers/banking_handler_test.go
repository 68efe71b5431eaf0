package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/harborbank/backend/internal/models"
	"github.com/harborbank/backend/internal/services"
)

func newTestRouter(t *testing.T) (*chi.Mux, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	handler := NewBankingHandler(services.NewLedgerService(db), services.NewCustomerService(db))

	r := chi.NewRouter()
	r.Post("/customers", handler.CreateCustomer)
	r.Get("/customers/{customerID}", handler.GetCustomer)
	r.Post("/accounts", handler.CreateAccount)
	r.Post("/transfers", handler.CreateTransfer)
	r.Post("/accounts/{accountID}/deposits", handler.CreateDeposit)
	r.Get("/accounts/{accountID}/balance", handler.GetBalance)
	r.Get("/accounts/{accountID}/transactions", handler.GetTransactionHistory)
	return r, mock
}

func doJSON(t *testing.T, r http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		assert.NoError(t, err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestBankingHandler_CreateCustomer(t *testing.T) {
	r, mock := newTestRouter(t)

	t.Run("successful creation", func(t *testing.T) {
		mock.ExpectQuery("INSERT INTO customers").
			WithArgs("John Doe", "john@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		w := doJSON(t, r, "POST", "/customers", map[string]any{
			"name":  "John Doe",
			"email": "john@example.com",
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var customer models.Customer
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &customer))
		assert.Equal(t, 1, customer.ID)
		assert.Equal(t, "John Doe", customer.Name)
	})

	t.Run("lookup by id", func(t *testing.T) {
		mock.ExpectQuery("SELECT name, email FROM customers").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}).AddRow("John Doe", "john@example.com"))

		w := doJSON(t, r, "GET", "/customers/1", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var customer models.Customer
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &customer))
		assert.Equal(t, "john@example.com", customer.Email)
	})

	t.Run("lookup of unknown customer", func(t *testing.T) {
		mock.ExpectQuery("SELECT name, email FROM customers").
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"name", "email"}))

		w := doJSON(t, r, "GET", "/customers/42", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("invalid email rejected", func(t *testing.T) {
		w := doJSON(t, r, "POST", "/customers", map[string]any{
			"name":  "John Doe",
			"email": "not-an-email",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBankingHandler_CreateAccount(t *testing.T) {
	r, mock := newTestRouter(t)
	dateKey := time.Now().UTC().Format("20060102")

	t.Run("account with opening deposit", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec("INSERT INTO daily_account_sequences").
			WithArgs(dateKey).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("SELECT sequence FROM daily_account_sequences").
			WithArgs(dateKey).
			WillReturnRows(sqlmock.NewRows([]string{"sequence"}).AddRow(0))
		mock.ExpectExec("UPDATE daily_account_sequences").
			WithArgs(1, dateKey).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("INSERT INTO accounts").
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, time.Now()))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(models.TransactionDeposit, "Initial deposit of $1000.00").
			WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(1, time.Now()))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs(1, 1, models.EntryCredit, int64(100000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectCommit()

		w := doJSON(t, r, "POST", "/accounts", map[string]any{
			"customer_id":     7,
			"initial_deposit": 1000.00,
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var account models.Account
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &account))
		assert.Equal(t, int64(100000), account.BalanceCents)
		assert.Equal(t, 1000.00, account.Balance)
		assert.Len(t, account.AccountNumber, 16)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unknown customer", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		w := doJSON(t, r, "POST", "/accounts", map[string]any{
			"customer_id":     999,
			"initial_deposit": 1000.00,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("zero deposit rejected by validation", func(t *testing.T) {
		w := doJSON(t, r, "POST", "/accounts", map[string]any{
			"customer_id":     7,
			"initial_deposit": 0,
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBankingHandler_CreateTransfer(t *testing.T) {
	r, mock := newTestRouter(t)

	t.Run("successful transfer converts dollars once", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery(`COALESCE\(SUM`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100000))
		mock.ExpectQuery("INSERT INTO transactions").
			WithArgs(models.TransactionTransfer, "Test transfer").
			WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(2, time.Now()))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs(2, 1, models.EntryDebit, int64(30000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery("INSERT INTO ledger_entries").
			WithArgs(2, 2, models.EntryCredit, int64(30000)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
		mock.ExpectCommit()

		w := doJSON(t, r, "POST", "/transfers", map[string]any{
			"from_account_id": 1,
			"to_account_id":   2,
			"amount":          300.00,
			"description":     "Test transfer",
		})

		assert.Equal(t, http.StatusCreated, w.Code)

		var transaction models.Transaction
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &transaction))
		assert.Equal(t, models.TransactionTransfer, transaction.TransactionType)
		assert.Len(t, transaction.Entries, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("insufficient funds", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(2).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
		mock.ExpectQuery(`COALESCE\(SUM`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100000))
		mock.ExpectRollback()

		w := doJSON(t, r, "POST", "/transfers", map[string]any{
			"from_account_id": 1,
			"to_account_id":   2,
			"amount":          2000.00,
			"description":     "Test transfer",
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)

		var response services.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response.Error, "insufficient funds")
	})

	t.Run("missing accounts reported coarsely", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectQuery("SELECT id FROM accounts").
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		w := doJSON(t, r, "POST", "/transfers", map[string]any{
			"from_account_id": 1,
			"to_account_id":   999,
			"amount":          10.00,
		})

		assert.Equal(t, http.StatusNotFound, w.Code)

		var response services.ErrorResponse
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Contains(t, response.Error, "one or both accounts not found")
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/transfers", bytes.NewBufferString("not json"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBankingHandler_CreateDeposit(t *testing.T) {
	r, mock := newTestRouter(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM accounts").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery("INSERT INTO transactions").
		WithArgs(models.TransactionDeposit, "Payroll").
		WillReturnRows(sqlmock.NewRows([]string{"id", "timestamp"}).AddRow(4, time.Now()))
	mock.ExpectQuery("INSERT INTO ledger_entries").
		WithArgs(4, 1, models.EntryCredit, int64(10099)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.ExpectCommit()

	w := doJSON(t, r, "POST", "/accounts/1/deposits", map[string]any{
		"amount":      100.99,
		"description": "Payroll",
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var transaction models.Transaction
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &transaction))
	assert.Equal(t, models.TransactionDeposit, transaction.TransactionType)
	assert.Len(t, transaction.Entries, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBankingHandler_GetBalance(t *testing.T) {
	r, mock := newTestRouter(t)

	t.Run("balance in dollars and cents", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`COALESCE\(SUM`).
			WithArgs(1).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow(100000))

		w := doJSON(t, r, "GET", "/accounts/1/balance", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var response struct {
			Balance      float64 `json:"balance"`
			BalanceCents int64   `json:"balance_cents"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, 1000.00, response.Balance)
		assert.Equal(t, int64(100000), response.BalanceCents)
	})

	t.Run("unknown account", func(t *testing.T) {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(999).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		w := doJSON(t, r, "GET", "/accounts/999/balance", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("non-numeric account id", func(t *testing.T) {
		w := doJSON(t, r, "GET", "/accounts/abc/balance", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestBankingHandler_GetTransactionHistory(t *testing.T) {
	r, mock := newTestRouter(t)

	now := time.Now()
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT DISTINCT").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_type", "timestamp", "description"}).
			AddRow(1, models.TransactionDeposit, now, "Initial deposit of $1000.00").
			AddRow(2, models.TransactionTransfer, now, "Test transfer"))
	mock.ExpectQuery("SELECT id, transaction_id, account_id, entry_type, amount_cents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "account_id", "entry_type", "amount_cents"}).
			AddRow(1, 1, 1, models.EntryCredit, 100000).
			AddRow(2, 2, 1, models.EntryDebit, 30000).
			AddRow(3, 2, 2, models.EntryCredit, 30000))

	w := doJSON(t, r, "GET", "/accounts/1/transactions", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Transactions []models.Transaction `json:"transactions"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response.Transactions, 2)

	types := []string{response.Transactions[0].TransactionType, response.Transactions[1].TransactionType}
	assert.Contains(t, types, models.TransactionDeposit)
	assert.Contains(t, types, models.TransactionTransfer)
}

func TestToCents(t *testing.T) {
	// Conversion happens exactly once at the HTTP edge; from here on the
	// ledger only sees integer cents.
	assert.Equal(t, int64(100000), toCents(1000.00))
	assert.Equal(t, int64(10099), toCents(100.99))
	assert.Equal(t, int64(5099), toCents(50.99))
	assert.Equal(t, int64(5000), toCents(100.99-50.99))
	assert.Equal(t, int64(1), toCents(0.01))
}

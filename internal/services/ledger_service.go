package services

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"github.com/harborbank/backend/internal/config"
	"github.com/harborbank/backend/internal/models"
)

// LedgerService is the double-entry core. Accounts store no balance;
// every balance change is a transaction owning one or more immutable
// ledger entries, and the balance of an account is the signed sum of
// its entries at read time. All writes go through a single SQL
// transaction and commit or roll back as a unit.
type LedgerService struct {
	db  *sql.DB
	cfg *config.LedgerConfig
}

func NewLedgerService(db *sql.DB) *LedgerService {
	return &LedgerService{
		db:  db,
		cfg: config.LoadLedgerConfig(),
	}
}

// CreateAccount allocates an account number for the customer and, when
// initialDepositCents is positive, books the opening deposit in the
// same transaction. A duplicate account number at commit time surfaces
// as ErrAllocationConflict; the attempt is not retried.
func (s *LedgerService) CreateAccount(customerID int, initialDepositCents int64) (*models.Account, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning account creation: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking customer %d: %w", customerID, err)
	}
	if !exists {
		return nil, ErrCustomerNotFound
	}

	number, err := s.allocateAccountNumber(tx, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		AccountNumber: number,
		CustomerID:    customerID,
	}
	err = tx.QueryRow(`
		INSERT INTO accounts (account_number, customer_id)
		VALUES ($1, $2)
		RETURNING id, created_at`, number, customerID).Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAllocationConflict
		}
		return nil, fmt.Errorf("inserting account: %w", err)
	}

	if initialDepositCents > 0 {
		description := fmt.Sprintf("Initial deposit of $%.2f", float64(initialDepositCents)/100)
		if _, err := s.recordTransactionTx(tx, models.TransactionDeposit, description, []models.LedgerEntry{
			{AccountID: account.ID, EntryType: models.EntryCredit, AmountCents: initialDepositCents},
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrAllocationConflict
		}
		return nil, fmt.Errorf("committing account creation: %w", err)
	}

	account.BalanceCents = initialDepositCents
	account.Balance = float64(initialDepositCents) / 100
	log.Printf("[LEDGER] Created account %s for customer %d", number, customerID)
	return account, nil
}

// Deposit credits an account from outside the ledger. The transaction
// carries a single CREDIT leg; the matching debit lives with whoever
// sent the money, not in this ledger.
func (s *LedgerService) Deposit(accountID int, amountCents int64, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: deposit amount must be positive", ErrInvalidTransaction)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning deposit: %w", err)
	}
	defer tx.Rollback()

	if err := lockAccount(tx, accountID); err != nil {
		return nil, err
	}

	transaction, err := s.recordTransactionTx(tx, models.TransactionDeposit, description, []models.LedgerEntry{
		{AccountID: accountID, EntryType: models.EntryCredit, AmountCents: amountCents},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing deposit: %w", err)
	}
	return transaction, nil
}

// Transfer moves amountCents between two accounts as a DEBIT/CREDIT
// pair. Both account rows are locked in ascending id order so that two
// opposing transfers cannot deadlock, and the source balance is derived
// under that lock; a transfer of exactly the balance is allowed,
// anything above it is rejected.
func (s *LedgerService) Transfer(fromAccountID, toAccountID int, amountCents int64, description string) (*models.Transaction, error) {
	if amountCents <= 0 {
		return nil, fmt.Errorf("%w: transfer amount must be positive", ErrInvalidTransaction)
	}
	if fromAccountID == toAccountID {
		return nil, fmt.Errorf("%w: source and destination accounts are the same", ErrInvalidTransaction)
	}
	if description == "" {
		description = s.cfg.DefaultTransferMemo
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transfer: %w", err)
	}
	defer tx.Rollback()

	firstLock, secondLock := fromAccountID, toAccountID
	if firstLock > secondLock {
		firstLock, secondLock = secondLock, firstLock
	}
	if err := lockAccount(tx, firstLock); err != nil {
		return nil, err
	}
	if err := lockAccount(tx, secondLock); err != nil {
		return nil, err
	}

	balance, err := balanceOfTx(tx, fromAccountID)
	if err != nil {
		return nil, err
	}
	if balance < amountCents {
		return nil, ErrInsufficientFunds
	}

	transaction, err := s.recordTransactionTx(tx, models.TransactionTransfer, description, []models.LedgerEntry{
		{AccountID: fromAccountID, EntryType: models.EntryDebit, AmountCents: amountCents},
		{AccountID: toAccountID, EntryType: models.EntryCredit, AmountCents: amountCents},
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}
	log.Printf("[LEDGER] Transferred %d cents from account %d to %d", amountCents, fromAccountID, toAccountID)
	return transaction, nil
}

// RecordTransaction writes an arbitrary balanced entry set as one
// transaction. Deposit and Transfer are the two shapes the API exposes;
// this is the underlying operation they share.
func (s *LedgerService) RecordTransaction(transactionType, description string, entries []models.LedgerEntry) (*models.Transaction, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	transaction, err := s.recordTransactionTx(tx, transactionType, description, entries)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return transaction, nil
}

// BalanceOf derives the current balance from the account's committed
// entries. Nothing is cached; rereading always folds over the same
// immutable rows.
func (s *LedgerService) BalanceOf(accountID int) (int64, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking account %d: %w", accountID, err)
	}
	if !exists {
		return 0, ErrAccountNotFound
	}

	var balance int64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount_cents ELSE -amount_cents END), 0)
		FROM ledger_entries
		WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("summing entries for account %d: %w", accountID, err)
	}
	return balance, nil
}

// TransactionsFor returns every transaction with at least one entry
// against the account, ordered by transaction id ascending (serial ids,
// so commit order), each with its complete entry set.
func (s *LedgerService) TransactionsFor(accountID int) ([]models.Transaction, error) {
	var exists bool
	if err := s.db.QueryRow(`SELECT EXISTS (SELECT 1 FROM accounts WHERE id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("checking account %d: %w", accountID, err)
	}
	if !exists {
		return nil, ErrAccountNotFound
	}

	rows, err := s.db.Query(`
		SELECT DISTINCT t.id, t.transaction_type, t.timestamp, t.description
		FROM transactions t
		JOIN ledger_entries e ON e.transaction_id = t.id
		WHERE e.account_id = $1
		ORDER BY t.id`, accountID)
	if err != nil {
		return nil, fmt.Errorf("querying transactions for account %d: %w", accountID, err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	var ids []int
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.TransactionType, &t.Timestamp, &t.Description); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		transactions = append(transactions, t)
		ids = append(ids, t.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading transactions: %w", err)
	}
	if len(ids) == 0 {
		return transactions, nil
	}

	byID := make(map[int]*models.Transaction, len(transactions))
	for i := range transactions {
		byID[transactions[i].ID] = &transactions[i]
	}

	entryRows, err := s.db.Query(`
		SELECT id, transaction_id, account_id, entry_type, amount_cents
		FROM ledger_entries
		WHERE transaction_id = ANY($1)
		ORDER BY id`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("querying entries: %w", err)
	}
	defer entryRows.Close()

	for entryRows.Next() {
		var e models.LedgerEntry
		if err := entryRows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &e.EntryType, &e.AmountCents); err != nil {
			return nil, fmt.Errorf("scanning entry: %w", err)
		}
		e.Amount = float64(e.AmountCents) / 100
		if t, ok := byID[e.TransactionID]; ok {
			t.Entries = append(t.Entries, e)
		}
	}
	if err := entryRows.Err(); err != nil {
		return nil, fmt.Errorf("reading entries: %w", err)
	}

	return transactions, nil
}

// recordTransactionTx validates the entry set and writes the
// transaction plus its entries inside the caller's SQL transaction.
// Transfers must balance to zero; deposits are allowed a lone CREDIT
// leg because their counter-leg is external.
func (s *LedgerService) recordTransactionTx(tx *sql.Tx, transactionType, description string, entries []models.LedgerEntry) (*models.Transaction, error) {
	if err := validateEntries(transactionType, entries); err != nil {
		return nil, err
	}

	transaction := &models.Transaction{
		TransactionType: transactionType,
		Description:     description,
	}
	err := tx.QueryRow(`
		INSERT INTO transactions (transaction_type, description)
		VALUES ($1, $2)
		RETURNING id, timestamp`, transactionType, description).Scan(&transaction.ID, &transaction.Timestamp)
	if err != nil {
		return nil, fmt.Errorf("inserting transaction: %w", err)
	}

	for _, entry := range entries {
		entry.TransactionID = transaction.ID
		err := tx.QueryRow(`
			INSERT INTO ledger_entries (transaction_id, account_id, entry_type, amount_cents)
			VALUES ($1, $2, $3, $4)
			RETURNING id`, entry.TransactionID, entry.AccountID, entry.EntryType, entry.AmountCents).Scan(&entry.ID)
		if err != nil {
			return nil, fmt.Errorf("inserting %s entry for account %d: %w", entry.EntryType, entry.AccountID, err)
		}
		entry.Amount = float64(entry.AmountCents) / 100
		transaction.Entries = append(transaction.Entries, entry)
	}

	return transaction, nil
}

func validateEntries(transactionType string, entries []models.LedgerEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: no ledger entries", ErrInvalidTransaction)
	}

	var signedSum int64
	for _, entry := range entries {
		if entry.AmountCents <= 0 {
			return fmt.Errorf("%w: entry amount must be positive", ErrInvalidTransaction)
		}
		switch entry.EntryType {
		case models.EntryDebit, models.EntryCredit:
		default:
			return fmt.Errorf("%w: unknown entry type %q", ErrInvalidTransaction, entry.EntryType)
		}
		signedSum += entry.Signed()
	}

	if transactionType == models.TransactionTransfer && signedSum != 0 {
		return fmt.Errorf("%w: transfer entries must sum to zero, got %d", ErrInvalidTransaction, signedSum)
	}
	return nil
}

// lockAccount takes a row-level lock on the account for the duration of
// the surrounding transaction. The not-found error is deliberately
// coarse; the transfer API does not report which side is missing.
func lockAccount(tx *sql.Tx, accountID int) error {
	var id int
	err := tx.QueryRow(`SELECT id FROM accounts WHERE id = $1 FOR UPDATE`, accountID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("locking account %d: %w", accountID, err)
	}
	return nil
}

// balanceOfTx derives the balance inside an open transaction, used for
// the sufficient-funds check while the account rows are locked.
func balanceOfTx(tx *sql.Tx, accountID int) (int64, error) {
	var balance int64
	err := tx.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN entry_type = 'CREDIT' THEN amount_cents ELSE -amount_cents END), 0)
		FROM ledger_entries
		WHERE account_id = $1`, accountID).Scan(&balance)
	if err != nil {
		return 0, fmt.Errorf("summing entries for account %d: %w", accountID, err)
	}
	return balance, nil
}

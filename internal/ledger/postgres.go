package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

// PostgresStore persists wallets and their transaction log in PostgreSQL.
// Per-wallet serialization is achieved by locking the wallet row for the
// duration of each posting.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const walletColumns = `id, user_id, balance, currency,
        COALESCE(account_number, ''), COALESCE(bank_name, ''), COALESCE(customer_code, ''),
        is_active, created_at, updated_at`

// CreateWallet inserts a wallet record. Exactly one wallet may exist per user.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, balance, currency, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)`,
		walletID, userID, w.Balance, w.Currency, w.IsActive, w.CreatedAt.UTC())
	if isUniqueViolation(err) {
		return ErrWalletExists
	}
	return err
}

// GetWallet fetches a wallet by identifier.
func (s *PostgresStore) GetWallet(ctx context.Context, id string) (Wallet, error) {
	walletID, err := uuid.Parse(id)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE id = $1`, walletID)
	return scanWallet(row)
}

// GetWalletByUser fetches the wallet owned by the given user.
func (s *PostgresStore) GetWalletByUser(ctx context.Context, userID string) (Wallet, error) {
	uid, err := uuid.Parse(userID)
	if err != nil {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE user_id = $1`, uid)
	return scanWallet(row)
}

// GetWalletByCustomerCode resolves a wallet from the processor's customer
// identifier recorded during provisioning.
func (s *PostgresStore) GetWalletByCustomerCode(ctx context.Context, code string) (Wallet, error) {
	if code == "" {
		return Wallet{}, ErrWalletNotFound
	}
	row := s.db.QueryRow(ctx, `SELECT `+walletColumns+` FROM wallets WHERE customer_code = $1`, code)
	return scanWallet(row)
}

// UpdateAccountDetails persists the receiving-account descriptor. The balance
// and the transaction log are never touched here.
func (s *PostgresStore) UpdateAccountDetails(ctx context.Context, walletID string, d AccountDetails) error {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return ErrWalletNotFound
	}
	cmd, err := s.db.Exec(ctx, `UPDATE wallets
        SET account_number = $1, bank_name = $2, customer_code = $3, updated_at = $4
        WHERE id = $5`,
		d.AccountNumber, d.BankName, d.CustomerCode, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrWalletNotFound
	}
	return nil
}

// ListEntries returns the wallet's transactions ordered by recency.
func (s *PostgresStore) ListEntries(ctx context.Context, walletID string, limit, offset int) ([]Entry, error) {
	id, err := uuid.Parse(walletID)
	if err != nil {
		return nil, ErrWalletNotFound
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx, `SELECT `+entryColumns+`
        FROM wallet_transactions WHERE wallet_id = $1
        ORDER BY created_at DESC, id DESC
        LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Apply posts a transaction against a wallet: it validates preconditions,
// writes the log entry and updates the balance, all inside one database
// transaction with the wallet row locked.
func (s *PostgresStore) Apply(ctx context.Context, input ApplyInput) (ApplyResult, error) {
	if !input.Amount.IsPositive() {
		return ApplyResult{}, fmt.Errorf("amount must be positive")
	}
	switch input.Type {
	case TypeDeposit, TypeWithdrawal, TypePayment, TypeRefund:
	default:
		return ApplyResult{}, fmt.Errorf("unknown entry type %q", input.Type)
	}
	walletID, err := uuid.Parse(input.WalletID)
	if err != nil {
		return ApplyResult{}, ErrWalletNotFound
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return ApplyResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var (
		balance  decimal.Decimal
		isActive bool
	)
	err = tx.QueryRow(ctx, `SELECT balance, is_active FROM wallets WHERE id = $1 FOR UPDATE`, walletID).
		Scan(&balance, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ApplyResult{}, ErrWalletNotFound
		}
		return ApplyResult{}, err
	}
	if !isActive {
		return ApplyResult{}, ErrWalletInactive
	}

	if input.ExternalReference != "" {
		row := tx.QueryRow(ctx, `SELECT `+entryColumns+`
            FROM wallet_transactions WHERE external_reference = $1`, input.ExternalReference)
		prior, err := scanEntry(row)
		if err == nil {
			return ApplyResult{Entry: prior, Balance: balance}, ErrDuplicateEvent
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return ApplyResult{}, err
		}
	}

	balanceAfter := balance.Add(input.Amount)
	if !Credits(input.Type) {
		balanceAfter = balance.Sub(input.Amount)
		if balanceAfter.IsNegative() {
			return ApplyResult{}, ErrInsufficientFunds
		}
	}

	now := time.Now().UTC()
	entry := Entry{
		ID:                uuid.NewString(),
		WalletID:          input.WalletID,
		Type:              input.Type,
		Amount:            input.Amount,
		BalanceBefore:     balance,
		BalanceAfter:      balanceAfter,
		Status:            StatusFor(input.Type),
		Reference:         uuid.NewString(),
		ExternalReference: input.ExternalReference,
		Description:       input.Description,
		Metadata:          input.Metadata,
		CreatedAt:         now,
	}
	if entry.Status == StatusCompleted {
		entry.CompletedAt = &now
	}

	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return ApplyResult{}, err
	}
	_, err = tx.Exec(ctx, `INSERT INTO wallet_transactions
        (id, wallet_id, type, amount, balance_before, balance_after, status,
         reference, external_reference, description, metadata, created_at, completed_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), $10, $11, $12, $13)`,
		uuid.MustParse(entry.ID), walletID, entry.Type, entry.Amount,
		entry.BalanceBefore, entry.BalanceAfter, entry.Status,
		entry.Reference, entry.ExternalReference, entry.Description,
		metadata, entry.CreatedAt, entry.CompletedAt)
	if err != nil {
		if isUniqueViolation(err) {
			// the in-tx dup check raced a commit on another connection; the
			// insert aborted our tx, so fetch the winning entry outside it
			_ = tx.Rollback(ctx)
			return s.priorResult(ctx, walletID, input.ExternalReference)
		}
		return ApplyResult{}, err
	}

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1, updated_at = $2 WHERE id = $3`,
		balanceAfter, now, walletID); err != nil {
		return ApplyResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{Entry: entry, Balance: balanceAfter}, nil
}

// priorResult loads the already-applied entry for an external reference so a
// duplicate posting returns the original outcome, never an empty one.
func (s *PostgresStore) priorResult(ctx context.Context, walletID uuid.UUID, externalRef string) (ApplyResult, error) {
	if externalRef == "" {
		return ApplyResult{}, ErrDuplicateEvent
	}
	row := s.db.QueryRow(ctx, `SELECT `+entryColumns+`
        FROM wallet_transactions WHERE external_reference = $1`, externalRef)
	prior, err := scanEntry(row)
	if err != nil {
		return ApplyResult{}, ErrDuplicateEvent
	}
	var balance decimal.Decimal
	if err := s.db.QueryRow(ctx, `SELECT balance FROM wallets WHERE id = $1`, walletID).Scan(&balance); err != nil {
		balance = prior.BalanceAfter
	}
	return ApplyResult{Entry: prior, Balance: balance}, ErrDuplicateEvent
}

// ResolveWithdrawal transitions a pending withdrawal to its final status once
// the processor confirms the transfer outcome. Re-deliveries of the same
// confirmation return the already-resolved entry with ErrDuplicateEvent.
func (s *PostgresStore) ResolveWithdrawal(ctx context.Context, externalRef, outcome string) (Entry, error) {
	if outcome != StatusCompleted && outcome != StatusFailed {
		return Entry{}, fmt.Errorf("invalid withdrawal outcome %q", outcome)
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Entry{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	row := tx.QueryRow(ctx, `SELECT `+entryColumns+`
        FROM wallet_transactions
        WHERE external_reference = $1 AND type = $2
        FOR UPDATE`, externalRef, TypeWithdrawal)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Entry{}, ErrEntryNotFound
		}
		return Entry{}, err
	}
	if entry.Status != StatusPending {
		return entry, ErrDuplicateEvent
	}

	now := time.Now().UTC()
	if _, err := tx.Exec(ctx, `UPDATE wallet_transactions
        SET status = $1, completed_at = $2 WHERE id = $3`,
		outcome, now, uuid.MustParse(entry.ID)); err != nil {
		return Entry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Entry{}, err
	}

	entry.Status = outcome
	entry.CompletedAt = &now
	return entry, nil
}

const entryColumns = `id, wallet_id, type, amount, balance_before, balance_after,
        status, reference, COALESCE(external_reference, ''), description, metadata,
        created_at, completed_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var (
		entry       Entry
		id          uuid.UUID
		walletID    uuid.UUID
		metadata    []byte
		completedAt *time.Time
	)
	err := row.Scan(&id, &walletID, &entry.Type, &entry.Amount,
		&entry.BalanceBefore, &entry.BalanceAfter, &entry.Status,
		&entry.Reference, &entry.ExternalReference, &entry.Description,
		&metadata, &entry.CreatedAt, &completedAt)
	if err != nil {
		return Entry{}, err
	}
	entry.ID = id.String()
	entry.WalletID = walletID.String()
	entry.CreatedAt = entry.CreatedAt.UTC()
	if completedAt != nil {
		t := completedAt.UTC()
		entry.CompletedAt = &t
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
			return Entry{}, err
		}
	}
	return entry, nil
}

func scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w      Wallet
		id     uuid.UUID
		userID uuid.UUID
	)
	err := row.Scan(&id, &userID, &w.Balance, &w.Currency,
		&w.AccountNumber, &w.BankName, &w.CustomerCode,
		&w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = w.CreatedAt.UTC()
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

/*
Package sqlite provides a SQLite-backed household store.

PURPOSE:
  Persists what the engine reads and what it must remember between runs:
  the transaction history, the category list and the two JSON blobs
  (predictor snapshot, adaptive policy) behind generic.BlobStore.

INTERFACES IMPLEMENTED:
  generic.BlobStore: kv_blobs table

APPEND-ONLY TRANSACTIONS:
  Transactions are immutable once recorded:
  - No UPDATE statements on the transactions table
  - A second insert with the same ID is ErrDuplicateTransaction
  - Only Reset removes them (demo/testing)

KEY TABLES:
  transactions: Income/expense history, amounts in integer cents
  categories:   Category metadata and spending nature (upserted)
  kv_blobs:     Opaque JSON blobs by key

TIMESTAMPS:
  Transaction instants are stored as Unix nanoseconds so ordering is
  numeric. They come back in UTC; month bucketing applies the household
  time zone later.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety and a single connection, which also
  keeps ":memory:" databases alive across calls.

USAGE:
  store, err := sqlite.New("./data/household.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  policies := brain.NewPolicyRepository(store)

SEE ALSO:
  - generic/store.go: BlobStore contract
  - generic/store/memory.go: In-memory blob store for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/household-engine/generic"
)

// Store persists transactions, categories and blobs in SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Transactions (append-only)
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		tx_type TEXT NOT NULL,
		amount_cents INTEGER NOT NULL,
		category_id TEXT NOT NULL,
		occurred_at INTEGER NOT NULL,
		is_superfluous INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_occurred_at
		ON transactions(occurred_at);
	CREATE INDEX IF NOT EXISTS idx_transactions_category
		ON transactions(category_id);

	-- Categories
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		spending_nature TEXT NOT NULL DEFAULT '',
		updated_at TEXT NOT NULL
	);

	-- Key/value blobs (predictor snapshot, adaptive policy)
	CREATE TABLE IF NOT EXISTS kv_blobs (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		updated_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// AppendTransaction records one transaction.
func (s *Store) AppendTransaction(ctx context.Context, tx generic.TransactionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.appendTx(ctx, s.db, tx)
}

func (s *Store) appendTx(ctx context.Context, db execer, tx generic.TransactionSample) error {
	if tx.ID == "" {
		return fmt.Errorf("%w: missing id", generic.ErrInvalidTransaction)
	}
	if !tx.Valid() {
		return fmt.Errorf("%w: %s", generic.ErrInvalidTransaction, tx.ID)
	}

	query := `
		INSERT INTO transactions
		(id, tx_type, amount_cents, category_id, occurred_at, is_superfluous, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.ExecContext(ctx, query,
		tx.ID,
		string(tx.Type),
		tx.Magnitude(),
		tx.CategoryID,
		tx.Timestamp.UnixNano(),
		tx.IsSuperfluous,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateTransaction, tx.ID)
		}
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}

// AppendTransactions records transactions atomically: all or none.
func (s *Store) AppendTransactions(ctx context.Context, txs []generic.TransactionSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]bool, len(txs))
	for _, tx := range txs {
		if seen[tx.ID] {
			return fmt.Errorf("%w: %s", generic.ErrDuplicateTransaction, tx.ID)
		}
		seen[tx.ID] = true
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, tx := range txs {
		if err := s.appendTx(ctx, sqlTx, tx); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// ListTransactions returns every transaction, oldest first.
func (s *Store) ListTransactions(ctx context.Context) ([]generic.TransactionSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tx_type, amount_cents, category_id, occurred_at, is_superfluous
		FROM transactions
		ORDER BY occurred_at ASC, id ASC
	`
	return s.queryTransactions(ctx, query)
}

// ListTransactionsBetween returns transactions in [from, to), oldest first.
func (s *Store) ListTransactionsBetween(ctx context.Context, from, to time.Time) ([]generic.TransactionSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, tx_type, amount_cents, category_id, occurred_at, is_superfluous
		FROM transactions
		WHERE occurred_at >= ? AND occurred_at < ?
		ORDER BY occurred_at ASC, id ASC
	`
	return s.queryTransactions(ctx, query, from.UnixNano(), to.UnixNano())
}

// CountTransactions returns the number of recorded transactions.
func (s *Store) CountTransactions(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]generic.TransactionSample, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []generic.TransactionSample
	for rows.Next() {
		var (
			tx         generic.TransactionSample
			txType     string
			occurredAt int64
		)
		if err := rows.Scan(&tx.ID, &txType, &tx.AmountCents, &tx.CategoryID, &occurredAt, &tx.IsSuperfluous); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = generic.TxType(txType)
		tx.Timestamp = time.Unix(0, occurredAt).UTC()
		txs = append(txs, tx)
	}

	return txs, rows.Err()
}

// =============================================================================
// CATEGORIES
// =============================================================================

// SaveCategory creates or replaces a category.
func (s *Store) SaveCategory(ctx context.Context, c generic.CategoryMeta) error {
	return s.SaveCategories(ctx, []generic.CategoryMeta{c})
}

// SaveCategories upserts categories atomically.
func (s *Store) SaveCategories(ctx context.Context, cats []generic.CategoryMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	query := `
		INSERT INTO categories (id, name, spending_nature, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			spending_nature = excluded.spending_nature,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	for _, c := range cats {
		if c.ID == "" {
			return fmt.Errorf("%w: category without id", generic.ErrInvalidTransaction)
		}
		if _, err := sqlTx.ExecContext(ctx, query, c.ID, c.Name, string(c.SpendingNature), now); err != nil {
			return fmt.Errorf("failed to save category %s: %w", c.ID, err)
		}
	}
	return sqlTx.Commit()
}

// ListCategories returns every category ordered by ID.
func (s *Store) ListCategories(ctx context.Context) ([]generic.CategoryMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT id, name, spending_nature FROM categories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer rows.Close()

	var cats []generic.CategoryMeta
	for rows.Next() {
		var c generic.CategoryMeta
		var nature string
		if err := rows.Scan(&c.ID, &c.Name, &nature); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		c.SpendingNature = generic.SpendingNature(nature)
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// =============================================================================
// BLOBS (generic.BlobStore interface)
// =============================================================================

func (s *Store) GetBlob(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value []byte
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv_blobs WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", generic.ErrStoreUnavailable, err)
	}
	return value, nil
}

func (s *Store) SetBlob(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO kv_blobs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) RemoveBlob(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_blobs WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: %v", generic.ErrStoreUnavailable, err)
	}
	return nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "categories", "kv_blobs"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY"))
}

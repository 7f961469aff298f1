package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// schema creates the ledger table and its retention index.
const schema = `
CREATE TABLE IF NOT EXISTS usage_records (
    id                TEXT PRIMARY KEY,
    protocol          TEXT NOT NULL,
    model             TEXT NOT NULL,
    endpoint          TEXT NOT NULL,
    streamed          INTEGER NOT NULL,
    prompt_tokens     INTEGER NOT NULL,
    completion_tokens INTEGER NOT NULL,
    fault_retries     INTEGER NOT NULL,
    duration_ms       INTEGER NOT NULL,
    created_at        TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_created_at ON usage_records(created_at);
`

const insertRecord = `
INSERT INTO usage_records (
    id, protocol, model, endpoint, streamed,
    prompt_tokens, completion_tokens, fault_retries, duration_ms, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

// StoreConfig contains configuration for the SQLite usage store.
type StoreConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultStoreConfig returns the default store configuration.
func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Path:         "data/usage.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// Store is the SQLite-backed usage ledger. It is safe for concurrent use.
type Store struct {
	db     *sql.DB
	config *StoreConfig
	insert *sql.Stmt
	logger *slog.Logger
}

// NewStore opens the database, applies pragmas, and creates the schema.
func NewStore(config *StoreConfig) (*Store, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}

	logger := slog.Default().With("component", "usage.store")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, fmt.Errorf("opening usage database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("usage store initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

func (s *Store) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enabling WAL mode: %w", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("creating usage schema: %w", err)
	}

	insert, err := s.db.Prepare(insertRecord)
	if err != nil {
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	s.insert = insert

	return nil
}

// Record persists one usage row.
func (s *Store) Record(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.insert.ExecContext(ctx,
		rec.ID,
		rec.Protocol,
		rec.Model,
		rec.Endpoint,
		rec.Streamed,
		rec.PromptTokens,
		rec.CompletionTokens,
		rec.FaultRetries,
		rec.Duration.Milliseconds(),
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// Prune deletes rows created before cutoff and returns the count.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM usage_records WHERE created_at < ?", cutoff.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning usage records: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned records: %w", err)
	}
	return deleted, nil
}

// Count returns the number of rows in the ledger.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM usage_records").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting usage records: %w", err)
	}
	return count, nil
}

// Close releases the prepared statement and the database handle.
func (s *Store) Close() error {
	if s.insert != nil {
		s.insert.Close()
	}
	return s.db.Close()
}

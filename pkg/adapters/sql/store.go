package sql

import (
	"context"
	stdsql "database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/turnstile/internal/logging"
	"github.com/aretw0/turnstile/pkg/domain"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func dialectOf(driver string) (string, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
		return driver, nil
	default:
		return "", fmt.Errorf("unsupported sql driver %q (want %s or %s)", driver, DriverPostgres, DriverSQLite)
	}
}

// Store implements ports.StateStore on a relational database.
// Optimistic concurrency is a conditional UPDATE on the version column.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger

	skipMigrations bool
}

// Option configures the Store.
type Option func(*Store)

// WithLogger configures a logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithoutMigrations skips the schema migration on Open.
func WithoutMigrations() Option {
	return func(s *Store) {
		s.skipMigrations = true
	}
}

// Open migrates the schema, then connects and verifies connectivity.
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	if _, err := dialectOf(driver); err != nil {
		return nil, err
	}

	s := &Store{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	if !s.skipMigrations {
		if err := Migrate(driver, dsn, s.logger); err != nil {
			return nil, err
		}
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	if driver == DriverSQLite {
		// SQLite allows a single writer
		db.SetMaxOpenConns(1)
	}
	s.db = db

	s.logger.Info("db connected", "driver", driver)
	return s, nil
}

// NewFromDB wraps an existing, already migrated connection pool.
func NewFromDB(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DB returns the underlying pool.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

type stackRow struct {
	Version int64  `db:"version"`
	Frames  string `db:"frames"`
}

type identityRow struct {
	ChannelID      string `db:"channel_id"`
	ConversationID string `db:"conversation_id"`
	UserID         string `db:"user_id"`
}

const insertStack = `
INSERT INTO dialog_stacks (channel_id, conversation_id, user_id, version, frames, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (channel_id, conversation_id, user_id) DO NOTHING`

const updateStack = `
UPDATE dialog_stacks
SET version = ?, frames = ?, updated_at = ?
WHERE channel_id = ? AND conversation_id = ? AND user_id = ? AND version = ?`

// Save persists the stack if the stored version still matches.
func (s *Store) Save(ctx context.Context, id domain.Identity, stack *domain.DialogStack) error {
	frames := stack.Frames
	if frames == nil {
		frames = []domain.Frame{}
	}
	data, err := json.Marshal(frames)
	if err != nil {
		return fmt.Errorf("failed to marshal frames: %w", err)
	}

	next := stack.Version + 1
	now := time.Now().UTC().UnixMilli()

	var res stdsql.Result
	if stack.Version == 0 {
		res, err = s.db.ExecContext(ctx, s.db.Rebind(insertStack),
			id.ChannelID, id.ConversationID, id.UserID, next, string(data), now)
	} else {
		res, err = s.db.ExecContext(ctx, s.db.Rebind(updateStack),
			next, string(data), now, id.ChannelID, id.ConversationID, id.UserID, stack.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to save stack: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.ErrConflict
	}

	stack.Version = next
	return nil
}

// Load retrieves the stack of an identity.
func (s *Store) Load(ctx context.Context, id domain.Identity) (*domain.DialogStack, error) {
	var row stackRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
SELECT version, frames FROM dialog_stacks
WHERE channel_id = ? AND conversation_id = ? AND user_id = ?`),
		id.ChannelID, id.ConversationID, id.UserID)
	if err != nil {
		if errors.Is(err, stdsql.ErrNoRows) {
			return nil, domain.ErrStackNotFound
		}
		return nil, fmt.Errorf("failed to load stack: %w", err)
	}

	stack := &domain.DialogStack{Version: row.Version}
	if err := json.Unmarshal([]byte(row.Frames), &stack.Frames); err != nil {
		return nil, fmt.Errorf("failed to unmarshal frames: %w", err)
	}
	if stack.Frames == nil {
		stack.Frames = []domain.Frame{}
	}
	return stack, nil
}

// Delete removes the stack of an identity.
func (s *Store) Delete(ctx context.Context, id domain.Identity) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
DELETE FROM dialog_stacks
WHERE channel_id = ? AND conversation_id = ? AND user_id = ?`),
		id.ChannelID, id.ConversationID, id.UserID)
	if err != nil {
		return fmt.Errorf("failed to delete stack: %w", err)
	}
	return nil
}

// List returns identities with a stored stack, most recently updated first.
func (s *Store) List(ctx context.Context) ([]domain.Identity, error) {
	var rows []identityRow
	err := s.db.SelectContext(ctx, &rows, `
SELECT channel_id, conversation_id, user_id FROM dialog_stacks
ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list stacks: %w", err)
	}

	ids := make([]domain.Identity, len(rows))
	for i, r := range rows {
		ids[i] = domain.Identity{ChannelID: r.ChannelID, ConversationID: r.ConversationID, UserID: r.UserID}
	}
	return ids, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

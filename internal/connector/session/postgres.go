package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/tansive/ideconnector/internal/common/apperrors"
	"github.com/tansive/ideconnector/internal/common/uuid"
	"github.com/tansive/ideconnector/internal/connector/cms"
)

// DefaultTable is the table sessions are kept in when none is configured.
const DefaultTable = "ideconnector_sessions"

// statementTimeout bounds every statement; the Store interface carries no context.
const statementTimeout = 5 * time.Second

// uniqueViolation is the PostgreSQL error code of a duplicate key.
const uniqueViolation = "23505"

var validTableNameRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*(?:\.[a-zA-Z_][a-zA-Z0-9_]*)?$`)

// RestoreFunc rebuilds the execution context of a principal whose session was created by an
// earlier server process.
type RestoreFunc func(principal string) cms.Context

// PostgresStore is a Store that keeps sessions in a PostgreSQL table, so that tokens stay
// valid across server restarts and can be shared by several servers. The contexts handed
// out by this process are cached, so every lookup of a token returns the same context as
// long as the session lives.
type PostgresStore struct {
	db      *sql.DB
	table   string // quoted
	restore RestoreFunc

	mu   sync.Mutex
	live map[string]cms.Context
}

// OpenPostgresStore connects to the database at dsn and prepares the sessions table.
func OpenPostgresStore(ctx context.Context, dsn, table string, restore RestoreFunc) (*PostgresStore, apperrors.Error) {
	if !validTableNameRegex.MatchString(table) {
		return nil, ErrInvalidStoreConfig.Msg("invalid table name: " + table)
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Error().Err(err).Msg("failed to open db")
		return nil, ErrSessionError.MsgErr("failed to open database connection", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		log.Error().Err(err).Msg("failed to ping db")
		return nil, ErrSessionError.MsgErr("failed to ping database", err)
	}
	s, aerr := NewPostgresStore(ctx, db, table, restore)
	if aerr != nil {
		db.Close()
		return nil, aerr
	}
	return s, nil
}

// NewPostgresStore uses db and creates the sessions table if it does not exist.
func NewPostgresStore(ctx context.Context, db *sql.DB, table string, restore RestoreFunc) (*PostgresStore, apperrors.Error) {
	if !validTableNameRegex.MatchString(table) {
		return nil, ErrInvalidStoreConfig.Msg("invalid table name: " + table)
	}
	if restore == nil {
		return nil, ErrInvalidStoreConfig.Msg("a restore function is required")
	}
	s := &PostgresStore{
		db:      db,
		table:   quoteTable(table),
		restore: restore,
		live:    make(map[string]cms.Context),
	}
	ctx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			token      TEXT PRIMARY KEY,
			principal  TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, s.table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		log.Error().Err(err).Msg("failed to create sessions table")
		return nil, ErrSessionError.MsgErr("failed to create sessions table", err)
	}
	return s, nil
}

func quoteTable(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(name)
	}
	return pq.QuoteIdentifier(table)
}

// Close closes the database.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Create(c cms.Context) (string, apperrors.Error) {
	if c == nil {
		return "", ErrInvalidSession.Msg("no execution context")
	}
	token, err := uuid.NewToken()
	if err != nil {
		return "", ErrSessionError.MsgErr("unable to generate a session token", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), statementTimeout)
	defer cancel()

	query := fmt.Sprintf(`INSERT INTO %s (token, principal) VALUES ($1, $2)`, s.table)
	if _, err := s.db.ExecContext(ctx, query, token, c.Principal()); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", ErrAlreadyExists
		}
		log.Error().Err(err).Msg("failed to insert session")
		return "", ErrSessionError.MsgErr("failed to store session", err)
	}

	s.mu.Lock()
	s.live[token] = c
	s.mu.Unlock()
	return token, nil
}

// Lookup reads the session from the table, which other servers may have changed, and
// returns the cached context or restores one.
func (s *PostgresStore) Lookup(token string) (cms.Context, bool) {
	if token == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), statementTimeout)
	defer cancel()

	var principal string
	query := fmt.Sprintf(`SELECT principal FROM %s WHERE token = $1`, s.table)
	err := s.db.QueryRowContext(ctx, query, token).Scan(&principal)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			log.Error().Err(err).Msg("failed to look up session")
		}
		s.forget(token)
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.live[token]
	if !ok || c.Principal() != principal {
		c = s.restore(principal)
		s.live[token] = c
	}
	return c, true
}

func (s *PostgresStore) Destroy(token string) {
	if token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), statementTimeout)
	defer cancel()
	query := fmt.Sprintf(`DELETE FROM %s WHERE token = $1`, s.table)
	if _, err := s.db.ExecContext(ctx, query, token); err != nil {
		log.Error().Err(err).Msg("failed to delete session")
	}
	s.forget(token)
}

// Len returns the number of sessions in the table, including those of other servers.
func (s *PostgresStore) Len() int {
	ctx, cancel := context.WithTimeout(context.Background(), statementTimeout)
	defer cancel()
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n); err != nil {
		log.Error().Err(err).Msg("failed to count sessions")
		return 0
	}
	return n
}

func (s *PostgresStore) forget(token string) {
	s.mu.Lock()
	delete(s.live, token)
	s.mu.Unlock()
}

var _ Store = (*PostgresStore)(nil)

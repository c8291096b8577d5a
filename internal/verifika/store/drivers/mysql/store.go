package mysql

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/bluesystem/verifika/internal/verifika/store"
	gomysql "github.com/go-sql-driver/mysql"
)

// Config describes how to reach the credential database.
type Config struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	TLS          bool
	MaxOpenConns int
	Timeout      time.Duration
}

// DSN renders the go-sql-driver DSN. multiStatements is only enabled for the
// migration handle.
func (c Config) DSN(multiStatements bool) string {
	cfg := gomysql.NewConfig()
	cfg.User = c.User
	cfg.Passwd = c.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	cfg.DBName = c.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Collation = "utf8mb4_unicode_ci"
	cfg.ClientFoundRows = true
	cfg.MultiStatements = multiStatements
	if c.Timeout > 0 {
		cfg.Timeout = c.Timeout
		cfg.ReadTimeout = c.Timeout
		cfg.WriteTimeout = c.Timeout
	}
	if c.TLS {
		cfg.TLSConfig = "true"
	}
	return cfg.FormatDSN()
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	cfg *Config
}

// Open connects to MySQL with a bounded pool and verifies the connection.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("mysql", cfg.DSN(false))
	if err != nil {
		return nil, err
	}

	limit := cfg.MaxOpenConns
	if limit <= 0 {
		limit = 10
	}
	db.SetMaxOpenConns(limit)
	db.SetMaxIdleConns(limit)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, cfg: &cfg}, nil
}

// NewStore wraps an existing handle. ApplyMigrations is unavailable on a
// store built this way.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Stats() sql.DBStats { return s.db.Stats() }

// Tx starts a read/write transaction and returns a Tx-scoped Store.
func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return newTx(tx), nil
}

// WithTx executes fn within a transaction, automatically handling commit/rollback.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}

	// Rollback after a successful commit returns sql.ErrTxDone and is harmless.
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) Accounts() store.Accounts         { return &accountsRepo{q: s.db} }
func (s *Store) Technicians() store.Technicians   { return &techniciansRepo{q: s.db} }
func (s *Store) Clients() store.Clients           { return &clientsRepo{q: s.db} }
func (s *Store) Competencies() store.Competencies { return &competenciesRepo{q: s.db} }
func (s *Store) Assignments() store.Assignments   { return &assignmentsRepo{q: s.db} }
func (s *Store) Activities() store.Activities     { return &activitiesRepo{q: s.db} }
func (s *Store) Validations() store.Validations   { return &validationsRepo{q: s.db} }

const (
	errDuplicateEntry = 1062
	errNoReferenced   = 1452
)

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// mapWriteErr turns MySQL constraint errors into store sentinels.
func mapWriteErr(err error) error {
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case errDuplicateEntry:
			return errors.Join(store.ErrAlreadyExists, err)
		case errNoReferenced:
			return errors.Join(store.ErrNotFound, err)
		}
	}
	return err
}

// requireAffected reports ErrNotFound when res touched no rows. The DSN sets
// clientFoundRows so matched-but-unchanged rows still count.
func requireAffected(res sql.Result, err error) error {
	if err != nil {
		return mapWriteErr(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

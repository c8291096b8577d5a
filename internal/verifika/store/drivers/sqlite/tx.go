package sqlite

import (
	"context"
	"database/sql"

	"github.com/bluesystem/verifika/internal/verifika/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Close is a no-op; the caller commits or rolls back.
func (t *txStore) Close() error { return nil }

func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Stats() sql.DBStats { return sql.DBStats{} }

// Tx refuses to nest: SQLite has a single writer and the outer transaction
// already holds it.
func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return sql.ErrTxDone
}

func (t *txStore) ApplyMigrations() error { return nil }

func (t *txStore) Accounts() store.Accounts         { return &accountsRepo{q: t.tx} }
func (t *txStore) Technicians() store.Technicians   { return &techniciansRepo{q: t.tx} }
func (t *txStore) Clients() store.Clients           { return &clientsRepo{q: t.tx} }
func (t *txStore) Competencies() store.Competencies { return &competenciesRepo{q: t.tx} }
func (t *txStore) Assignments() store.Assignments   { return &assignmentsRepo{q: t.tx} }
func (t *txStore) Activities() store.Activities     { return &activitiesRepo{q: t.tx} }
func (t *txStore) Validations() store.Validations   { return &validationsRepo{q: t.tx} }

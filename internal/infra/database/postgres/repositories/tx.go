// Package repositories implements every domain repository port against
// Postgres with database/sql and github.com/lib/pq, following the teacher's
// raw-SQL, explicit-column-list style (no ORM). Grounded on the teacher's
// patient_repository.go.
package repositories

import (
	"context"
	"database/sql"

	"clinic-scheduler-backend/internal/domain/ports/repositories"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// dbtx is satisfied by both *sql.DB and *sql.Tx, letting every repository
// method run unchanged whether or not a transaction is active on ctx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

// withTx returns a context carrying tx, picked up by dbFrom in every
// repository sharing this package.
func withTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// dbFrom returns the active transaction on ctx, falling back to db when
// no transaction is active (a call made outside UnitOfWork.WithinTx).
func dbFrom(ctx context.Context, db *sql.DB) dbtx {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return tx
	}
	return db
}

// UnitOfWork implements repositories.UnitOfWork, grounded on the teacher's
// patient_repository.go CreatePatientWithOrganization inline BeginTx/defer
// Rollback/Commit pattern, generalized so any combination of the repositories
// in this package can share one transaction via ctx.
type UnitOfWork struct {
	db *sql.DB
}

func NewUnitOfWork(db *sql.DB) repositories.UnitOfWork {
	return &UnitOfWork{db: db}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := u.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	txCtx := withTx(ctx, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// pqUUIDArray adapts a []uuid.UUID to the pq.Array driver value used by
// ANY($n) placeholders.
func pqUUIDArray(ids []uuid.UUID) interface{} {
	return pq.Array(ids)
}

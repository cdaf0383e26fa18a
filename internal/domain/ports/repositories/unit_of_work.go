package repositories

import "context"

// UnitOfWork lets a usecase that spans several repositories (the service
// catalog bundle save, the appointment create/edit row-locked re-check)
// run them against a single database transaction. Concrete repository
// implementations pick the active *sql.Tx off ctx when present and fall
// back to the plain *sql.DB otherwise, following the teacher's
// BeginTx/defer Rollback/Commit convention in patient_repository.go's
// CreatePatientWithOrganization, generalized so it composes across
// multiple repository ports instead of being hand-rolled per method.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

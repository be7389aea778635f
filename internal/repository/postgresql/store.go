package postgresql

import (
	"context"
	"database/sql"
	"fmt"

	"parking_facility/internal/repository"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so every repository can be
// bound to the pool or to one transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Repositories returns the pool-bound repository set.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.db)
}

func (s *Store) Transact(ctx context.Context, fn func(r repository.Repositories) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(newRepositories(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func newRepositories(db DBTX) repository.Repositories {
	return repository.Repositories{
		Users:        NewPgUserRepository(db),
		Lots:         NewPgParkingLotRepository(db),
		Vehicles:     NewPgVehicleRepository(db),
		Reservations: NewPgReservationRepository(db),
		Sessions:     NewPgSessionRepository(db),
		Payments:     NewPgPaymentRepository(db),
		Discounts:    NewPgDiscountRepository(db),
	}
}

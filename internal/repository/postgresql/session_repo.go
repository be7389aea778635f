package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"github.com/lib/pq"
)

type pgSessionRepository struct {
	db DBTX
}

func NewPgSessionRepository(db DBTX) repository.SessionRepository {
	return &pgSessionRepository{db: db}
}

const sessionColumns = `id, lot_id, user_id, license_plate, reservation_id, start_time, end_time, cost, created_at, updated_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*domain.Session, error) {
	s := &domain.Session{}
	err := row.Scan(&s.ID, &s.LotID, &s.UserID, &s.LicensePlate, &s.ReservationID,
		&s.StartTime, &s.EndTime, &s.Cost, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.StartTime = s.StartTime.In(time.UTC)
	if s.EndTime.Valid {
		s.EndTime.Time = s.EndTime.Time.In(time.UTC)
	}
	s.CreatedAt = s.CreatedAt.In(time.UTC)
	s.UpdatedAt = s.UpdatedAt.In(time.UTC)
	return s, nil
}

func (r *pgSessionRepository) Create(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	query := `INSERT INTO sessions (lot_id, user_id, license_plate, reservation_id, start_time)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		session.LotID, session.UserID, session.LicensePlate, session.ReservationID, session.StartTime,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		// A partial unique index on license_plate WHERE end_time IS NULL keeps
		// the at-most-one-open-session invariant even across racing inserts.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: vehicle '%s' already has an open session", repository.ErrDuplicateEntry, session.LicensePlate)
		}
		return nil, fmt.Errorf("SessionRepository.Create: %w", err)
	}
	session.CreatedAt = session.CreatedAt.In(time.UTC)
	session.UpdatedAt = session.UpdatedAt.In(time.UTC)
	return session, nil
}

func (r *pgSessionRepository) FindByID(ctx context.Context, id int) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("SessionRepository.FindByID: %w", err)
	}
	return session, nil
}

func (r *pgSessionRepository) FindOpenByPlate(ctx context.Context, plate string) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE license_plate = $1 AND end_time IS NULL`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, plate))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("SessionRepository.FindOpenByPlate: %w", err)
	}
	return session, nil
}

func (r *pgSessionRepository) FindOpenByReservation(ctx context.Context, reservationID int) (*domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE reservation_id = $1 AND end_time IS NULL`
	session, err := scanSession(r.db.QueryRowContext(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoActiveSession
		}
		return nil, fmt.Errorf("SessionRepository.FindOpenByReservation: %w", err)
	}
	return session, nil
}

func (r *pgSessionRepository) HasOpenByLot(ctx context.Context, lotID int) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM sessions WHERE lot_id = $1 AND end_time IS NULL)`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, lotID).Scan(&exists); err != nil {
		return false, fmt.Errorf("SessionRepository.HasOpenByLot: %w", err)
	}
	return exists, nil
}

func (r *pgSessionRepository) Close(ctx context.Context, id int, end time.Time, cost float64) (bool, error) {
	query := `UPDATE sessions SET end_time = $1, cost = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3 AND end_time IS NULL`
	result, err := r.db.ExecContext(ctx, query, end, cost, id)
	if err != nil {
		return false, fmt.Errorf("SessionRepository.Close: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("SessionRepository.Close (checking rows affected): %w", err)
	}
	return affected > 0, nil
}

func (r *pgSessionRepository) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE 1=1`
	var args []any
	if filter.LotID != nil {
		args = append(args, *filter.LotID)
		query += fmt.Sprintf(" AND lot_id = $%d", len(args))
	}
	if filter.LicensePlate != nil {
		args = append(args, *filter.LicensePlate)
		query += fmt.Sprintf(" AND license_plate = $%d", len(args))
	}
	if filter.Open != nil {
		if *filter.Open {
			query += " AND end_time IS NULL"
		} else {
			query += " AND end_time IS NOT NULL"
		}
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("SessionRepository.Find: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("SessionRepository.Find (scanning row): %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("SessionRepository.Find (rows error): %w", err)
	}
	return sessions, nil
}

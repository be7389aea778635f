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

type pgReservationRepository struct {
	db DBTX
}

func NewPgReservationRepository(db DBTX) repository.ReservationRepository {
	return &pgReservationRepository{db: db}
}

const reservationColumns = `id, user_id, vehicle_id, lot_id, start_time, end_time, status, cost, discount_code, created_at, updated_at`

func scanReservation(row interface{ Scan(dest ...any) error }) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	err := row.Scan(&res.ID, &res.UserID, &res.VehicleID, &res.LotID, &res.StartTime, &res.EndTime,
		&res.Status, &res.Cost, &res.DiscountCode, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	res.StartTime = res.StartTime.In(time.UTC)
	if res.EndTime.Valid {
		res.EndTime.Time = res.EndTime.Time.In(time.UTC)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error) {
	query := `INSERT INTO reservations (user_id, vehicle_id, lot_id, start_time, end_time, status, cost, discount_code)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		res.UserID, res.VehicleID, res.LotID, res.StartTime, res.EndTime, res.Status, res.Cost, res.DiscountCode,
	).Scan(&res.ID, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		// The reservations table carries an exclusion constraint on
		// (vehicle_id, tstzrange(start_time, end_time)) for rows still in a
		// live status, so the overlap check holds even when two bookings for
		// the same vehicle race past the application-level read.
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "exclusion_violation" {
			return nil, fmt.Errorf("%w: vehicle %d already has a reservation in this window", repository.ErrOverlap, res.VehicleID)
		}
		return nil, fmt.Errorf("ReservationRepository.Create: %w", err)
	}
	res.CreatedAt = res.CreatedAt.In(time.UTC)
	res.UpdatedAt = res.UpdatedAt.In(time.UTC)
	return res, nil
}

func (r *pgReservationRepository) FindByID(ctx context.Context, id int) (*domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = $1`
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ReservationRepository.FindByID: %w", err)
	}
	return res, nil
}

func (r *pgReservationRepository) Find(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []any
	if filter.LotID != nil {
		args = append(args, *filter.LotID)
		query += fmt.Sprintf(" AND lot_id = $%d", len(args))
	}
	if filter.VehicleID != nil {
		args = append(args, *filter.VehicleID)
		query += fmt.Sprintf(" AND vehicle_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += " ORDER BY start_time DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepository.Find (scanning row): %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.Find (rows error): %w", err)
	}
	return reservations, nil
}

func (r *pgReservationRepository) FindByUser(ctx context.Context, userID int) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = $1 ORDER BY start_time DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUser: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("ReservationRepository.FindByUser (scanning row): %w", err)
		}
		reservations = append(reservations, *res)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ReservationRepository.FindByUser (rows error): %w", err)
	}
	return reservations, nil
}

func (r *pgReservationRepository) HasOverlapping(ctx context.Context, vehicleID int, start, end time.Time) (bool, error) {
	// Open-ended reservations (end_time NULL) block every later window.
	query := `SELECT EXISTS (
	            SELECT 1 FROM reservations
	            WHERE vehicle_id = $1
	              AND status IN ('booked', 'active')
	              AND start_time < $3
	              AND (end_time IS NULL OR end_time > $2)
	          )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, vehicleID, start, end).Scan(&exists); err != nil {
		return false, fmt.Errorf("ReservationRepository.HasOverlapping: %w", err)
	}
	return exists, nil
}

func (r *pgReservationRepository) HasFutureByLot(ctx context.Context, lotID int, after time.Time) (bool, error) {
	query := `SELECT EXISTS (
	            SELECT 1 FROM reservations
	            WHERE lot_id = $1
	              AND status IN ('booked', 'active')
	              AND (end_time IS NULL OR end_time > $2)
	          )`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, lotID, after).Scan(&exists); err != nil {
		return false, fmt.Errorf("ReservationRepository.HasFutureByLot: %w", err)
	}
	return exists, nil
}

func (r *pgReservationRepository) UpdateStatus(ctx context.Context, id int, status domain.ReservationStatus) error {
	query := `UPDATE reservations SET status = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("ReservationRepository.UpdateStatus: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ReservationRepository.UpdateStatus (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

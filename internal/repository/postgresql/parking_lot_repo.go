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

type pgParkingLotRepository struct {
	db DBTX
}

func NewPgParkingLotRepository(db DBTX) repository.ParkingLotRepository {
	return &pgParkingLotRepository{db: db}
}

const lotColumns = `id, name, address, capacity, tariff, daytariff, status, reserved_count, occupied_count, created_at, updated_at`

func (r *pgParkingLotRepository) scanLot(row interface{ Scan(dest ...any) error }) (*domain.ParkingLot, error) {
	lot := &domain.ParkingLot{}
	err := row.Scan(&lot.ID, &lot.Name, &lot.Address, &lot.Capacity, &lot.Tariff, &lot.DayTariff,
		&lot.Status, &lot.ReservedCount, &lot.OccupiedCount, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		return nil, err
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `INSERT INTO parking_lots (name, address, capacity, tariff, daytariff, status)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, reserved_count, occupied_count, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Capacity, lot.Tariff, lot.DayTariff, lot.Status).
		Scan(&lot.ID, &lot.ReservedCount, &lot.OccupiedCount, &lot.CreatedAt, &lot.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Create: %w", err)
	}
	lot.CreatedAt = lot.CreatedAt.In(time.UTC)
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) FindByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE id = $1 AND status <> 'deleted'`
	lot, err := r.scanLot(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("ParkingLotRepository.FindByID: %w", err)
	}
	return lot, nil
}

func (r *pgParkingLotRepository) FindAll(ctx context.Context) ([]domain.ParkingLot, error) {
	query := `SELECT ` + lotColumns + ` FROM parking_lots WHERE status <> 'deleted' ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var lots []domain.ParkingLot
	for rows.Next() {
		lot, err := r.scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("ParkingLotRepository.FindAll (scanning row): %w", err)
		}
		lots = append(lots, *lot)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("ParkingLotRepository.FindAll (rows error): %w", err)
	}
	return lots, nil
}

func (r *pgParkingLotRepository) Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error) {
	query := `UPDATE parking_lots
	          SET name = $1, address = $2, capacity = $3, tariff = $4, daytariff = $5, status = $6, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $7 AND status <> 'deleted'
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, lot.Name, lot.Address, lot.Capacity, lot.Tariff, lot.DayTariff, lot.Status, lot.ID).
		Scan(&lot.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: parking lot '%s'", repository.ErrDuplicateEntry, lot.Name)
		}
		return nil, fmt.Errorf("ParkingLotRepository.Update: %w", err)
	}
	lot.UpdatedAt = lot.UpdatedAt.In(time.UTC)
	return lot, nil
}

func (r *pgParkingLotRepository) SoftDelete(ctx context.Context, id int) error {
	query := `UPDATE parking_lots SET status = 'deleted', updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND status <> 'deleted'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.SoftDelete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ParkingLotRepository.SoftDelete (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// The counter mutations below are single conditional UPDATEs; the WHERE clause
// carries the admission check so two racing callers cannot both take the last
// slot. A false return means no row satisfied the condition.

func (r *pgParkingLotRepository) Reserve(ctx context.Context, id int) (bool, error) {
	query := `UPDATE parking_lots
	          SET reserved_count = reserved_count + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND status = 'open' AND reserved_count + occupied_count < capacity`
	return r.execCounter(ctx, "Reserve", query, id)
}

func (r *pgParkingLotRepository) Release(ctx context.Context, id int) (bool, error) {
	query := `UPDATE parking_lots
	          SET reserved_count = reserved_count - 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND reserved_count > 0`
	return r.execCounter(ctx, "Release", query, id)
}

func (r *pgParkingLotRepository) Occupy(ctx context.Context, id int) (bool, error) {
	query := `UPDATE parking_lots
	          SET occupied_count = occupied_count + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND status = 'open' AND reserved_count + occupied_count < capacity`
	return r.execCounter(ctx, "Occupy", query, id)
}

func (r *pgParkingLotRepository) Vacate(ctx context.Context, id int) (bool, error) {
	query := `UPDATE parking_lots
	          SET occupied_count = occupied_count - 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND occupied_count > 0`
	return r.execCounter(ctx, "Vacate", query, id)
}

func (r *pgParkingLotRepository) ConvertHold(ctx context.Context, id int) (bool, error) {
	query := `UPDATE parking_lots
	          SET reserved_count = reserved_count - 1, occupied_count = occupied_count + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND reserved_count > 0`
	return r.execCounter(ctx, "ConvertHold", query, id)
}

func (r *pgParkingLotRepository) execCounter(ctx context.Context, op, query string, id int) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("ParkingLotRepository.%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ParkingLotRepository.%s (checking rows affected): %w", op, err)
	}
	return affected > 0, nil
}

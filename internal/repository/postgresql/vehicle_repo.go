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

type pgVehicleRepository struct {
	db DBTX
}

func NewPgVehicleRepository(db DBTX) repository.VehicleRepository {
	return &pgVehicleRepository{db: db}
}

func (r *pgVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `INSERT INTO vehicles (owner_id, license_plate, model)
	          VALUES ($1, $2, $3) RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query, vehicle.OwnerID, vehicle.LicensePlate, vehicle.Model).
		Scan(&vehicle.ID, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: license plate '%s'", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
		return nil, fmt.Errorf("VehicleRepository.Create: %w", err)
	}
	vehicle.CreatedAt = vehicle.CreatedAt.In(time.UTC)
	vehicle.UpdatedAt = vehicle.UpdatedAt.In(time.UTC)
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByID(ctx context.Context, id int) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	query := `SELECT id, owner_id, license_plate, model, created_at, updated_at FROM vehicles WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&vehicle.ID, &vehicle.OwnerID, &vehicle.LicensePlate, &vehicle.Model, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByID: %w", err)
	}
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	vehicle := &domain.Vehicle{}
	query := `SELECT id, owner_id, license_plate, model, created_at, updated_at FROM vehicles WHERE license_plate = $1`
	err := r.db.QueryRowContext(ctx, query, plate).Scan(
		&vehicle.ID, &vehicle.OwnerID, &vehicle.LicensePlate, &vehicle.Model, &vehicle.CreatedAt, &vehicle.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("VehicleRepository.FindByPlate: %w", err)
	}
	return vehicle, nil
}

func (r *pgVehicleRepository) FindByOwner(ctx context.Context, ownerID int) ([]domain.Vehicle, error) {
	query := `SELECT id, owner_id, license_plate, model, created_at, updated_at
	          FROM vehicles WHERE owner_id = $1 ORDER BY license_plate`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByOwner: %w", err)
	}
	defer rows.Close()

	var vehicles []domain.Vehicle
	for rows.Next() {
		var v domain.Vehicle
		if err := rows.Scan(&v.ID, &v.OwnerID, &v.LicensePlate, &v.Model, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("VehicleRepository.FindByOwner (scanning row): %w", err)
		}
		vehicles = append(vehicles, v)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("VehicleRepository.FindByOwner (rows error): %w", err)
	}
	return vehicles, nil
}

func (r *pgVehicleRepository) Update(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error) {
	query := `UPDATE vehicles SET license_plate = $1, model = $2, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $3 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, vehicle.LicensePlate, vehicle.Model, vehicle.ID).Scan(&vehicle.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: license plate '%s'", repository.ErrDuplicateEntry, vehicle.LicensePlate)
		}
		return nil, fmt.Errorf("VehicleRepository.Update: %w", err)
	}
	return vehicle, nil
}

func (r *pgVehicleRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("VehicleRepository.Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("VehicleRepository.Delete (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

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

type pgDiscountRepository struct {
	db DBTX
}

func NewPgDiscountRepository(db DBTX) repository.DiscountRepository {
	return &pgDiscountRepository{db: db}
}

const discountColumns = `id, code, type, value, owner_id, use_limit, used_count, active, valid_from, valid_until, start_hour, end_hour, created_at, updated_at`

func scanDiscount(row interface{ Scan(dest ...any) error }) (*domain.Discount, error) {
	d := &domain.Discount{}
	err := row.Scan(&d.ID, &d.Code, &d.Type, &d.Value, &d.OwnerID, &d.UseLimit, &d.UsedCount,
		&d.Active, &d.ValidFrom, &d.ValidUntil, &d.StartHour, &d.EndHour, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.CreatedAt = d.CreatedAt.In(time.UTC)
	d.UpdatedAt = d.UpdatedAt.In(time.UTC)
	return d, nil
}

func (r *pgDiscountRepository) Create(ctx context.Context, d *domain.Discount) (*domain.Discount, error) {
	query := `INSERT INTO discounts (code, type, value, owner_id, use_limit, active, valid_from, valid_until, start_hour, end_hour)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id, used_count, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		d.Code, d.Type, d.Value, d.OwnerID, d.UseLimit, d.Active, d.ValidFrom, d.ValidUntil, d.StartHour, d.EndHour,
	).Scan(&d.ID, &d.UsedCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return nil, fmt.Errorf("%w: discount code '%s'", repository.ErrDuplicateEntry, d.Code)
		}
		return nil, fmt.Errorf("DiscountRepository.Create: %w", err)
	}
	return d, nil
}

func (r *pgDiscountRepository) FindByCode(ctx context.Context, code string) (*domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE code = $1`
	d, err := scanDiscount(r.db.QueryRowContext(ctx, query, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DiscountRepository.FindByCode: %w", err)
	}
	return d, nil
}

func (r *pgDiscountRepository) FindAll(ctx context.Context) ([]domain.Discount, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts ORDER BY code`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("DiscountRepository.FindAll: %w", err)
	}
	defer rows.Close()

	var discounts []domain.Discount
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			return nil, fmt.Errorf("DiscountRepository.FindAll (scanning row): %w", err)
		}
		discounts = append(discounts, *d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("DiscountRepository.FindAll (rows error): %w", err)
	}
	return discounts, nil
}

func (r *pgDiscountRepository) Update(ctx context.Context, d *domain.Discount) (*domain.Discount, error) {
	query := `UPDATE discounts
	          SET type = $1, value = $2, owner_id = $3, use_limit = $4, active = $5,
	              valid_from = $6, valid_until = $7, start_hour = $8, end_hour = $9, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $10 RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query,
		d.Type, d.Value, d.OwnerID, d.UseLimit, d.Active, d.ValidFrom, d.ValidUntil, d.StartHour, d.EndHour, d.ID,
	).Scan(&d.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("DiscountRepository.Update: %w", err)
	}
	return d, nil
}

func (r *pgDiscountRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM discounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("DiscountRepository.Delete: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("DiscountRepository.Delete (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgDiscountRepository) ConsumeUse(ctx context.Context, id int) (bool, error) {
	query := `UPDATE discounts SET used_count = used_count + 1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1 AND used_count < use_limit`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("DiscountRepository.ConsumeUse: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("DiscountRepository.ConsumeUse (checking rows affected): %w", err)
	}
	return affected > 0, nil
}

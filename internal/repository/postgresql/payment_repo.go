package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

type pgPaymentRepository struct {
	db DBTX
}

func NewPgPaymentRepository(db DBTX) repository.PaymentRepository {
	return &pgPaymentRepository{db: db}
}

const paymentColumns = `id, user_id, amount, transaction_hash, validation_hash, completed, refund_requested, session_id, reservation_id, created_at, updated_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (*domain.Payment, error) {
	p := &domain.Payment{}
	err := row.Scan(&p.ID, &p.UserID, &p.Amount, &p.TransactionHash, &p.ValidationHash,
		&p.Completed, &p.RefundRequested, &p.SessionID, &p.ReservationID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = p.CreatedAt.In(time.UTC)
	p.UpdatedAt = p.UpdatedAt.In(time.UTC)
	return p, nil
}

func (r *pgPaymentRepository) Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	query := `INSERT INTO payments (user_id, amount, transaction_hash, completed, session_id, reservation_id)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		payment.UserID, payment.Amount, payment.TransactionHash, payment.Completed,
		payment.SessionID, payment.ReservationID,
	).Scan(&payment.ID, &payment.CreatedAt, &payment.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.Create: %w", err)
	}
	payment.CreatedAt = payment.CreatedAt.In(time.UTC)
	payment.UpdatedAt = payment.UpdatedAt.In(time.UTC)
	return payment, nil
}

func (r *pgPaymentRepository) FindByID(ctx context.Context, id int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PaymentRepository.FindByID: %w", err)
	}
	return payment, nil
}

func (r *pgPaymentRepository) FindByReservation(ctx context.Context, reservationID int) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE reservation_id = $1 ORDER BY created_at LIMIT 1`
	payment, err := scanPayment(r.db.QueryRowContext(ctx, query, reservationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("PaymentRepository.FindByReservation: %w", err)
	}
	return payment, nil
}

func (r *pgPaymentRepository) FindByUser(ctx context.Context, userID int) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("PaymentRepository.FindByUser: %w", err)
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("PaymentRepository.FindByUser (scanning row): %w", err)
		}
		payments = append(payments, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("PaymentRepository.FindByUser (rows error): %w", err)
	}
	return payments, nil
}

func (r *pgPaymentRepository) AddAmount(ctx context.Context, id int, delta float64) (bool, error) {
	// Completed payments are immutable; the condition keeps a racing "pay"
	// action from losing the top-up.
	query := `UPDATE payments SET amount = amount + $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND completed = false`
	result, err := r.db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return false, fmt.Errorf("PaymentRepository.AddAmount: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("PaymentRepository.AddAmount (checking rows affected): %w", err)
	}
	return affected > 0, nil
}

func (r *pgPaymentRepository) MarkCompleted(ctx context.Context, id int, validationHash string) error {
	query := `UPDATE payments SET completed = true, validation_hash = $1, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $2 AND completed = false`
	result, err := r.db.ExecContext(ctx, query, validationHash, id)
	if err != nil {
		return fmt.Errorf("PaymentRepository.MarkCompleted: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("PaymentRepository.MarkCompleted (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgPaymentRepository) RequestRefund(ctx context.Context, id int) error {
	query := `UPDATE payments SET refund_requested = true, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("PaymentRepository.RequestRefund: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("PaymentRepository.RequestRefund (checking rows affected): %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

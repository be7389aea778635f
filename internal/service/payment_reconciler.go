package service

import (
	"context"
	"fmt"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

// PaymentReconciler turns a closed session's cost into payment records. The
// business rule is asymmetric on purpose: an incomplete payment is topped up
// in place, a completed payment is an immutable financial record and any
// overage spawns a new one.
type PaymentReconciler struct{}

func NewPaymentReconciler() *PaymentReconciler {
	return &PaymentReconciler{}
}

// SettleWalkIn creates the payment for a session that had no reservation
// behind it.
func (p *PaymentReconciler) SettleWalkIn(ctx context.Context, payments repository.PaymentRepository, session *domain.Session, cost float64) (*domain.Payment, error) {
	payment := &domain.Payment{
		UserID:          session.UserID,
		Amount:          cost,
		TransactionHash: uuid.NewString(),
		SessionID:       null.IntFrom(int64(session.ID)),
	}
	created, err := payments.Create(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("creating session payment: %w", err)
	}
	return created, nil
}

// SettleOverage routes an overtime charge against the reservation's existing
// payment. A zero overage leaves everything untouched: the stay was already
// covered by the booking payment.
func (p *PaymentReconciler) SettleOverage(ctx context.Context, payments repository.PaymentRepository, session *domain.Session, existing *domain.Payment, overage float64) (*domain.Payment, error) {
	if overage <= 0 {
		return existing, nil
	}

	if existing == nil || existing.Completed {
		payment := &domain.Payment{
			UserID:          session.UserID,
			Amount:          overage,
			TransactionHash: uuid.NewString(),
			SessionID:       null.IntFrom(int64(session.ID)),
			ReservationID:   session.ReservationID,
		}
		created, err := payments.Create(ctx, payment)
		if err != nil {
			return nil, fmt.Errorf("creating overage payment: %w", err)
		}
		return created, nil
	}

	ok, err := payments.AddAmount(ctx, existing.ID, overage)
	if err != nil {
		return nil, fmt.Errorf("topping up payment %d: %w", existing.ID, err)
	}
	if !ok {
		// The payment completed between our read and the update; the overage
		// must become its own record.
		payment := &domain.Payment{
			UserID:          session.UserID,
			Amount:          overage,
			TransactionHash: uuid.NewString(),
			SessionID:       null.IntFrom(int64(session.ID)),
			ReservationID:   session.ReservationID,
		}
		created, err := payments.Create(ctx, payment)
		if err != nil {
			return nil, fmt.Errorf("creating overage payment: %w", err)
		}
		return created, nil
	}
	existing.Amount += overage
	return existing, nil
}

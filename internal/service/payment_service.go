package service

import (
	"context"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"github.com/google/uuid"
)

type PaymentService struct {
	repos repository.Repositories
}

func NewPaymentService(repos repository.Repositories) *PaymentService {
	return &PaymentService{repos: repos}
}

func (s *PaymentService) GetByID(ctx context.Context, actor Actor, id int) (*domain.Payment, error) {
	payment, err := s.repos.Payments.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && payment.UserID.Valid && int(payment.UserID.Int64) != actor.UserID {
		return nil, repository.ErrNotFound
	}
	return payment, nil
}

func (s *PaymentService) ListForUser(ctx context.Context, userID int) ([]domain.Payment, error) {
	return s.repos.Payments.FindByUser(ctx, userID)
}

// Pay marks the payment completed and stamps the validation hash. From here on
// the amount is frozen.
func (s *PaymentService) Pay(ctx context.Context, actor Actor, id int) (*domain.Payment, error) {
	payment, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	validation := uuid.NewString()
	if err := s.repos.Payments.MarkCompleted(ctx, payment.ID, validation); err != nil {
		return nil, err
	}
	return s.repos.Payments.FindByID(ctx, payment.ID)
}

func (s *PaymentService) RequestRefund(ctx context.Context, actor Actor, id int) (*domain.Payment, error) {
	payment, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Payments.RequestRefund(ctx, payment.ID); err != nil {
		return nil, err
	}
	return s.repos.Payments.FindByID(ctx, payment.ID)
}

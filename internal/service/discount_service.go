package service

import (
	"context"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"gopkg.in/guregu/null.v4"
)

// DiscountService is the admin CRUD surface for discount codes; the booking
// path validates codes through validateDiscount instead.
type DiscountService struct {
	repos repository.Repositories
}

func NewDiscountService(repos repository.Repositories) *DiscountService {
	return &DiscountService{repos: repos}
}

func discountFromDTO(dto domain.DiscountDTO) *domain.Discount {
	d := &domain.Discount{
		Code:      dto.Code,
		Type:      domain.DiscountType(dto.Type),
		Value:     dto.Value,
		UseLimit:  dto.UseLimit,
		Active:    true,
		StartHour: dto.StartHour,
		EndHour:   dto.EndHour,
	}
	if dto.Active != nil {
		d.Active = *dto.Active
	}
	if dto.OwnerID != nil {
		d.OwnerID = null.IntFrom(int64(*dto.OwnerID))
	}
	if dto.ValidFrom != nil {
		d.ValidFrom = null.TimeFrom(*dto.ValidFrom)
	}
	if dto.ValidUntil != nil {
		d.ValidUntil = null.TimeFrom(*dto.ValidUntil)
	}
	return d
}

func (s *DiscountService) Create(ctx context.Context, dto domain.DiscountDTO) (*domain.Discount, error) {
	return s.repos.Discounts.Create(ctx, discountFromDTO(dto))
}

func (s *DiscountService) GetByCode(ctx context.Context, code string) (*domain.Discount, error) {
	return s.repos.Discounts.FindByCode(ctx, code)
}

func (s *DiscountService) GetAll(ctx context.Context) ([]domain.Discount, error) {
	return s.repos.Discounts.FindAll(ctx)
}

func (s *DiscountService) Update(ctx context.Context, code string, dto domain.DiscountDTO) (*domain.Discount, error) {
	existing, err := s.repos.Discounts.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	d := discountFromDTO(dto)
	d.ID = existing.ID
	d.Code = existing.Code
	return s.repos.Discounts.Update(ctx, d)
}

func (s *DiscountService) Delete(ctx context.Context, code string) error {
	existing, err := s.repos.Discounts.FindByCode(ctx, code)
	if err != nil {
		return err
	}
	return s.repos.Discounts.Delete(ctx, existing.ID)
}

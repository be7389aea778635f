package service

import (
	"context"
	"fmt"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

type LotService struct {
	repos repository.Repositories
	now   func() time.Time
}

func NewLotService(repos repository.Repositories) *LotService {
	return &LotService{repos: repos, now: time.Now}
}

func (s *LotService) Create(ctx context.Context, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	status := domain.LotOpen
	if dto.Status != "" {
		var err error
		status, err = parseLotStatus(dto.Status)
		if err != nil {
			return nil, err
		}
	}
	lot := &domain.ParkingLot{
		Name:      dto.Name,
		Address:   dto.Address,
		Capacity:  dto.Capacity,
		Tariff:    dto.Tariff,
		DayTariff: dto.DayTariff,
		Status:    status,
	}
	return s.repos.Lots.Create(ctx, lot)
}

func (s *LotService) GetByID(ctx context.Context, id int) (*domain.ParkingLot, error) {
	return s.repos.Lots.FindByID(ctx, id)
}

func (s *LotService) GetAll(ctx context.Context) ([]domain.ParkingLot, error) {
	return s.repos.Lots.FindAll(ctx)
}

func (s *LotService) Update(ctx context.Context, id int, dto domain.ParkingLotDTO) (*domain.ParkingLot, error) {
	lot, err := s.repos.Lots.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lot.Name = dto.Name
	lot.Address = dto.Address
	if dto.Capacity > 0 {
		lot.Capacity = dto.Capacity
	}
	lot.Tariff = dto.Tariff
	lot.DayTariff = dto.DayTariff
	if dto.Status != "" {
		status, err := parseLotStatus(dto.Status)
		if err != nil {
			return nil, err
		}
		lot.Status = status
	}
	return s.repos.Lots.Update(ctx, lot)
}

// Delete soft-deletes a lot, refused while any session is open in it or any
// live booking still points at it.
func (s *LotService) Delete(ctx context.Context, id int) error {
	open, err := s.repos.Sessions.HasOpenByLot(ctx, id)
	if err != nil {
		return err
	}
	if open {
		return fmt.Errorf("%w: lot %d has open sessions", ErrLotInUse, id)
	}
	booked, err := s.repos.Reservations.HasFutureByLot(ctx, id, s.now())
	if err != nil {
		return err
	}
	if booked {
		return fmt.Errorf("%w: lot %d has live bookings", ErrLotInUse, id)
	}
	return s.repos.Lots.SoftDelete(ctx, id)
}

func parseLotStatus(raw string) (domain.LotStatus, error) {
	switch domain.LotStatus(raw) {
	case domain.LotOpen, domain.LotClosed, domain.LotMaintenance, domain.LotFull:
		return domain.LotStatus(raw), nil
	default:
		return "", fmt.Errorf("invalid lot status: %s", raw)
	}
}

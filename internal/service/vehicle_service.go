package service

import (
	"context"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

type VehicleService struct {
	repos repository.Repositories
}

func NewVehicleService(repos repository.Repositories) *VehicleService {
	return &VehicleService{repos: repos}
}

func (s *VehicleService) Create(ctx context.Context, actor Actor, dto domain.VehicleDTO) (*domain.Vehicle, error) {
	return s.repos.Vehicles.Create(ctx, &domain.Vehicle{
		OwnerID:      actor.UserID,
		LicensePlate: dto.LicensePlate,
		Model:        dto.Model,
	})
}

func (s *VehicleService) GetByID(ctx context.Context, actor Actor, id int) (*domain.Vehicle, error) {
	vehicle, err := s.repos.Vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && vehicle.OwnerID != actor.UserID {
		return nil, ErrNotVehicleOwner
	}
	return vehicle, nil
}

func (s *VehicleService) ListForOwner(ctx context.Context, ownerID int) ([]domain.Vehicle, error) {
	return s.repos.Vehicles.FindByOwner(ctx, ownerID)
}

func (s *VehicleService) Update(ctx context.Context, actor Actor, id int, dto domain.VehicleDTO) (*domain.Vehicle, error) {
	vehicle, err := s.GetByID(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	vehicle.LicensePlate = dto.LicensePlate
	vehicle.Model = dto.Model
	return s.repos.Vehicles.Update(ctx, vehicle)
}

func (s *VehicleService) Delete(ctx context.Context, actor Actor, id int) error {
	if _, err := s.GetByID(ctx, actor, id); err != nil {
		return err
	}
	return s.repos.Vehicles.Delete(ctx, id)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

// Actor is the authorization capability the HTTP layer resolves from the JWT
// and hands into the core. Admin bypasses ownership checks, nothing else.
type Actor struct {
	UserID int
	Admin  bool
}

type ReservationService struct {
	store  repository.Store
	repos  repository.Repositories
	ledger *CapacityLedger
	tariff *TariffCalculator
	now    func() time.Time
}

func NewReservationService(store repository.Store, repos repository.Repositories, ledger *CapacityLedger, tariff *TariffCalculator) *ReservationService {
	return &ReservationService{
		store:  store,
		repos:  repos,
		ledger: ledger,
		tariff: tariff,
		now:    time.Now,
	}
}

// Create books a slot: time-window and overlap validation, discount
// preconditions, the capacity claim, the cost quote and the unpaid payment all
// commit in one transaction.
func (s *ReservationService) Create(ctx context.Context, actor Actor, dto domain.CreateReservationDTO) (*domain.Reservation, error) {
	now := s.now()
	if !dto.StartTime.Before(dto.EndTime) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidTimeWindow)
	}
	if dto.StartTime.Before(now) {
		return nil, fmt.Errorf("%w: start is in the past", ErrInvalidTimeWindow)
	}

	var reservation *domain.Reservation
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		vehicle, err := r.Vehicles.FindByID(ctx, dto.VehicleID)
		if err != nil {
			return err
		}
		if !actor.Admin && vehicle.OwnerID != actor.UserID {
			return ErrNotVehicleOwner
		}

		overlapping, err := r.Reservations.HasOverlapping(ctx, dto.VehicleID, dto.StartTime, dto.EndTime)
		if err != nil {
			return err
		}
		if overlapping {
			return ErrReservationConflict
		}

		var discount *domain.Discount
		if dto.DiscountCode != "" {
			discount, err = r.Discounts.FindByCode(ctx, dto.DiscountCode)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return fmt.Errorf("%w: unknown code", ErrDiscountRejected)
				}
				return err
			}
			if err := validateDiscount(discount, actor.UserID, now); err != nil {
				return err
			}
			consumed, err := r.Discounts.ConsumeUse(ctx, discount.ID)
			if err != nil {
				return err
			}
			if !consumed {
				return ErrDiscountExhausted
			}
		}

		if err := s.ledger.Reserve(ctx, r.Lots, dto.LotID); err != nil {
			return err
		}
		lot, err := r.Lots.FindByID(ctx, dto.LotID)
		if err != nil {
			return err
		}

		cost := s.tariff.Quote(lot, dto.StartTime, dto.EndTime, discount)

		res := &domain.Reservation{
			UserID:    actor.UserID,
			VehicleID: dto.VehicleID,
			LotID:     dto.LotID,
			StartTime: dto.StartTime,
			EndTime:   null.TimeFrom(dto.EndTime),
			Status:    domain.ReservationBooked,
			Cost:      cost,
		}
		if dto.DiscountCode != "" {
			res.DiscountCode = null.StringFrom(dto.DiscountCode)
		}
		reservation, err = r.Reservations.Create(ctx, res)
		if err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return ErrReservationConflict
			}
			return err
		}

		_, err = r.Payments.Create(ctx, &domain.Payment{
			UserID:          null.IntFrom(int64(actor.UserID)),
			Amount:          cost,
			TransactionHash: uuid.NewString(),
			ReservationID:   null.IntFrom(int64(reservation.ID)),
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

// Cancel is valid only while the reservation is still booked; the slot hold
// goes back to the lot in the same transaction.
func (s *ReservationService) Cancel(ctx context.Context, actor Actor, reservationID int) (*domain.Reservation, error) {
	var reservation *domain.Reservation
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		res, err := r.Reservations.FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !actor.Admin && res.UserID != actor.UserID {
			return ErrNotReservationOwner
		}
		if res.Status != domain.ReservationBooked {
			return fmt.Errorf("%w: status is %s", ErrReservationFinal, res.Status)
		}
		if err := s.ledger.Release(ctx, r.Lots, res.LotID); err != nil {
			return err
		}
		if err := r.Reservations.UpdateStatus(ctx, res.ID, domain.ReservationCancelled); err != nil {
			return err
		}
		res.Status = domain.ReservationCancelled
		reservation = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reservation, nil
}

func (s *ReservationService) GetByID(ctx context.Context, actor Actor, id int) (*domain.Reservation, error) {
	res, err := s.repos.Reservations.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && res.UserID != actor.UserID {
		return nil, ErrNotReservationOwner
	}
	return res, nil
}

func (s *ReservationService) ListForUser(ctx context.Context, userID int) ([]domain.Reservation, error) {
	return s.repos.Reservations.FindByUser(ctx, userID)
}

func (s *ReservationService) Find(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error) {
	return s.repos.Reservations.Find(ctx, filter)
}

// completeReservation advances booked/active to completed. Capacity is not
// touched here: the backing session's vacate already freed the slot.
func completeReservation(ctx context.Context, r repository.Repositories, res *domain.Reservation) error {
	if res.Status == domain.ReservationCompleted || res.Status == domain.ReservationCancelled {
		return fmt.Errorf("%w: status is %s", ErrReservationFinal, res.Status)
	}
	if err := r.Reservations.UpdateStatus(ctx, res.ID, domain.ReservationCompleted); err != nil {
		return err
	}
	res.Status = domain.ReservationCompleted
	return nil
}

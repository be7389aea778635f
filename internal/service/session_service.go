package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"

	"gopkg.in/guregu/null.v4"
)

type SessionService struct {
	store      repository.Store
	repos      repository.Repositories
	ledger     *CapacityLedger
	tariff     *TariffCalculator
	reconciler *PaymentReconciler
	now        func() time.Time
}

func NewSessionService(store repository.Store, repos repository.Repositories, ledger *CapacityLedger, tariff *TariffCalculator, reconciler *PaymentReconciler) *SessionService {
	return &SessionService{
		store:      store,
		repos:      repos,
		ledger:     ledger,
		tariff:     tariff,
		reconciler: reconciler,
		now:        time.Now,
	}
}

// Start opens a walk-in session: the occupancy claim and the row insert commit
// together, and the partial unique index backs up the open-session check.
func (s *SessionService) Start(ctx context.Context, actor Actor, dto domain.StartSessionDTO) (*domain.Session, error) {
	now := s.now()
	var session *domain.Session
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		if _, err := r.Sessions.FindOpenByPlate(ctx, dto.LicensePlate); err == nil {
			return fmt.Errorf("%w: plate %s", ErrVehicleAlreadyParked, dto.LicensePlate)
		} else if !errors.Is(err, repository.ErrNoActiveSession) {
			return err
		}

		if err := s.ledger.Occupy(ctx, r.Lots, dto.LotID); err != nil {
			return err
		}

		sess := &domain.Session{
			LotID:        dto.LotID,
			LicensePlate: dto.LicensePlate,
			StartTime:    now,
		}
		if actor.UserID != 0 {
			sess.UserID = null.IntFrom(int64(actor.UserID))
		}
		created, err := r.Sessions.Create(ctx, sess)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("%w: plate %s", ErrVehicleAlreadyParked, dto.LicensePlate)
			}
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// StartFromReservation opens the occupancy for a booked reservation. The
// reservation's slot hold converts into an occupancy hold in the same
// transaction, so the lot never double-counts or momentarily frees the slot.
func (s *SessionService) StartFromReservation(ctx context.Context, actor Actor, reservationID int) (*domain.Session, error) {
	now := s.now()
	var session *domain.Session
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		res, err := r.Reservations.FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !actor.Admin && res.UserID != actor.UserID {
			return ErrNotReservationOwner
		}
		switch res.Status {
		case domain.ReservationBooked:
		case domain.ReservationActive:
			return fmt.Errorf("%w: reservation %d", ErrSessionAlreadyExists, res.ID)
		default:
			return fmt.Errorf("%w: status is %s", ErrReservationFinal, res.Status)
		}

		vehicle, err := r.Vehicles.FindByID(ctx, res.VehicleID)
		if err != nil {
			return err
		}
		if _, err := r.Sessions.FindOpenByPlate(ctx, vehicle.LicensePlate); err == nil {
			return fmt.Errorf("%w: plate %s", ErrVehicleAlreadyParked, vehicle.LicensePlate)
		} else if !errors.Is(err, repository.ErrNoActiveSession) {
			return err
		}

		if err := s.ledger.ConvertHold(ctx, r.Lots, res.LotID); err != nil {
			return err
		}
		if err := r.Reservations.UpdateStatus(ctx, res.ID, domain.ReservationActive); err != nil {
			return err
		}

		created, err := r.Sessions.Create(ctx, &domain.Session{
			LotID:         res.LotID,
			UserID:        null.IntFrom(int64(res.UserID)),
			LicensePlate:  vehicle.LicensePlate,
			ReservationID: null.IntFrom(int64(res.ID)),
			StartTime:     now,
		})
		if err != nil {
			if errors.Is(err, repository.ErrDuplicateEntry) {
				return fmt.Errorf("%w: plate %s", ErrVehicleAlreadyParked, vehicle.LicensePlate)
			}
			return err
		}
		session = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Stop closes a walk-in session. Reservation-backed sessions must go through
// StopFromReservation; using this path instead is a permission error, not a
// data error.
func (s *SessionService) Stop(ctx context.Context, actor Actor, sessionID int) (*domain.Session, error) {
	now := s.now()
	var session *domain.Session
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		sess, err := r.Sessions.FindByID(ctx, sessionID)
		if err != nil {
			return err
		}
		if !sess.Open() {
			return fmt.Errorf("%w: session %d", ErrSessionAlreadyStopped, sess.ID)
		}
		if sess.ReservationID.Valid {
			return fmt.Errorf("%w: session %d", ErrReservationSessionMismatch, sess.ID)
		}
		if !actor.Admin && sess.UserID.Valid && int(sess.UserID.Int64) != actor.UserID {
			return ErrNotSessionOwner
		}
		session, err = s.closeWalkIn(ctx, r, sess, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// StopFromReservation closes the open session behind a reservation and settles
// any overtime. The overage is priced over [reservation end, now) only, never
// over the whole stay: the booked window was already paid at booking time.
func (s *SessionService) StopFromReservation(ctx context.Context, actor Actor, reservationID int) (*domain.Session, error) {
	now := s.now()
	var session *domain.Session
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		res, err := r.Reservations.FindByID(ctx, reservationID)
		if err != nil {
			return err
		}
		if !actor.Admin && res.UserID != actor.UserID {
			return ErrNotReservationOwner
		}
		sess, err := r.Sessions.FindOpenByReservation(ctx, res.ID)
		if err != nil {
			if errors.Is(err, repository.ErrNoActiveSession) {
				return fmt.Errorf("%w: reservation %d", ErrNoActiveSession, res.ID)
			}
			return err
		}
		session, err = s.closeReservationBacked(ctx, r, sess, res, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// CheckOutByPlate closes whatever open session the plate has, routing
// reservation-backed sessions through the reservation path. The gate consumer
// uses it when a vehicle passes the exit barrier.
func (s *SessionService) CheckOutByPlate(ctx context.Context, plate string) (*domain.Session, error) {
	now := s.now()
	var session *domain.Session
	err := s.store.Transact(ctx, func(r repository.Repositories) error {
		sess, err := r.Sessions.FindOpenByPlate(ctx, plate)
		if err != nil {
			return err
		}
		if sess.ReservationID.Valid {
			res, err := r.Reservations.FindByID(ctx, int(sess.ReservationID.Int64))
			if err != nil {
				return err
			}
			session, err = s.closeReservationBacked(ctx, r, sess, res, now)
			return err
		}
		session, err = s.closeWalkIn(ctx, r, sess, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Preview quotes the cost of an open session up to the supplied end without
// closing anything.
func (s *SessionService) Preview(ctx context.Context, sessionID int, end time.Time) (float64, error) {
	sess, err := s.repos.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !sess.Open() {
		return sess.Cost.Float64, nil
	}
	lot, err := s.repos.Lots.FindByID(ctx, sess.LotID)
	if err != nil {
		return 0, err
	}
	return s.tariff.Quote(lot, sess.StartTime, end, nil), nil
}

func (s *SessionService) GetByID(ctx context.Context, id int) (*domain.Session, error) {
	return s.repos.Sessions.FindByID(ctx, id)
}

func (s *SessionService) Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.Session, error) {
	return s.repos.Sessions.Find(ctx, filter)
}

func (s *SessionService) closeWalkIn(ctx context.Context, r repository.Repositories, sess *domain.Session, now time.Time) (*domain.Session, error) {
	lot, err := r.Lots.FindByID(ctx, sess.LotID)
	if err != nil {
		return nil, err
	}
	cost := s.tariff.Quote(lot, sess.StartTime, now, nil)

	closed, err := r.Sessions.Close(ctx, sess.ID, now, cost)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, fmt.Errorf("%w: session %d", ErrSessionAlreadyStopped, sess.ID)
	}
	if err := s.ledger.Vacate(ctx, r.Lots, sess.LotID); err != nil {
		return nil, err
	}
	if _, err := s.reconciler.SettleWalkIn(ctx, r.Payments, sess, cost); err != nil {
		return nil, err
	}

	sess.EndTime = null.TimeFrom(now)
	sess.Cost = null.FloatFrom(cost)
	return sess, nil
}

func (s *SessionService) closeReservationBacked(ctx context.Context, r repository.Repositories, sess *domain.Session, res *domain.Reservation, now time.Time) (*domain.Session, error) {
	lot, err := r.Lots.FindByID(ctx, sess.LotID)
	if err != nil {
		return nil, err
	}
	// The frozen session cost covers the whole physical stay; the booking
	// payment covers the reserved window.
	cost := s.tariff.Quote(lot, sess.StartTime, now, nil)

	closed, err := r.Sessions.Close(ctx, sess.ID, now, cost)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, fmt.Errorf("%w: session %d", ErrSessionAlreadyStopped, sess.ID)
	}
	if err := s.ledger.Vacate(ctx, r.Lots, sess.LotID); err != nil {
		return nil, err
	}

	if res.EndTime.Valid && now.After(res.EndTime.Time) {
		overage := s.tariff.Quote(lot, res.EndTime.Time, now, nil)
		existing, err := r.Payments.FindByReservation(ctx, res.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if _, err := s.reconciler.SettleOverage(ctx, r.Payments, sess, existing, overage); err != nil {
			return nil, err
		}
	}

	if err := completeReservation(ctx, r, res); err != nil {
		return nil, err
	}

	sess.EndTime = null.TimeFrom(now)
	sess.Cost = null.FloatFrom(cost)
	return sess, nil
}

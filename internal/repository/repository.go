package repository

import (
	"context"
	"errors"
	"time"

	"parking_facility/internal/domain"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEntry = errors.New("record already exists")
var ErrOverlap = errors.New("record overlaps an existing one")
var ErrNoActiveSession = errors.New("no active parking session for the given criteria")

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id int) (*domain.User, error)
}

// ParkingLotRepository owns the lot's admission counters. Reserve, Release,
// Occupy, Vacate and ConvertHold are single conditional UPDATEs; the boolean
// reports whether a row matched, so a false result means the precondition
// (free slot available, counter above zero) did not hold at commit time.
type ParkingLotRepository interface {
	Create(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	FindByID(ctx context.Context, id int) (*domain.ParkingLot, error)
	FindAll(ctx context.Context) ([]domain.ParkingLot, error)
	Update(ctx context.Context, lot *domain.ParkingLot) (*domain.ParkingLot, error)
	SoftDelete(ctx context.Context, id int) error

	Reserve(ctx context.Context, id int) (bool, error)
	Release(ctx context.Context, id int) (bool, error)
	Occupy(ctx context.Context, id int) (bool, error)
	Vacate(ctx context.Context, id int) (bool, error)
	// ConvertHold turns one reservation hold into an occupancy hold when the
	// backing session starts.
	ConvertHold(ctx context.Context, id int) (bool, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	FindByID(ctx context.Context, id int) (*domain.Vehicle, error)
	FindByPlate(ctx context.Context, plate string) (*domain.Vehicle, error)
	FindByOwner(ctx context.Context, ownerID int) ([]domain.Vehicle, error)
	Update(ctx context.Context, vehicle *domain.Vehicle) (*domain.Vehicle, error)
	Delete(ctx context.Context, id int) error
}

type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) (*domain.Reservation, error)
	FindByID(ctx context.Context, id int) (*domain.Reservation, error)
	Find(ctx context.Context, filter domain.ReservationFilterDTO) ([]domain.Reservation, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Reservation, error)
	// HasOverlapping reports whether the vehicle already holds a booked or
	// active reservation intersecting [start, end).
	HasOverlapping(ctx context.Context, vehicleID int, start, end time.Time) (bool, error)
	HasFutureByLot(ctx context.Context, lotID int, after time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id int, status domain.ReservationStatus) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *domain.Session) (*domain.Session, error)
	FindByID(ctx context.Context, id int) (*domain.Session, error)
	FindOpenByPlate(ctx context.Context, plate string) (*domain.Session, error)
	FindOpenByReservation(ctx context.Context, reservationID int) (*domain.Session, error)
	HasOpenByLot(ctx context.Context, lotID int) (bool, error)
	// Close writes the end timestamp and the frozen cost; it matches only an
	// open session, so a second Close finds no row.
	Close(ctx context.Context, id int, end time.Time, cost float64) (bool, error)
	Find(ctx context.Context, filter domain.SessionFilterDTO) ([]domain.Session, error)
}

type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	FindByID(ctx context.Context, id int) (*domain.Payment, error)
	FindByReservation(ctx context.Context, reservationID int) (*domain.Payment, error)
	FindByUser(ctx context.Context, userID int) ([]domain.Payment, error)
	// AddAmount tops up an incomplete payment; it matches only rows with
	// completed = false.
	AddAmount(ctx context.Context, id int, delta float64) (bool, error)
	MarkCompleted(ctx context.Context, id int, validationHash string) error
	RequestRefund(ctx context.Context, id int) error
}

type DiscountRepository interface {
	Create(ctx context.Context, d *domain.Discount) (*domain.Discount, error)
	FindByCode(ctx context.Context, code string) (*domain.Discount, error)
	FindAll(ctx context.Context) ([]domain.Discount, error)
	Update(ctx context.Context, d *domain.Discount) (*domain.Discount, error)
	Delete(ctx context.Context, id int) error
	// ConsumeUse increments used_count only while uses remain.
	ConsumeUse(ctx context.Context, id int) (bool, error)
}

// Repositories bundles every repository bound to the same database handle,
// either the shared pool or one transaction.
type Repositories struct {
	Users        UserRepository
	Lots         ParkingLotRepository
	Vehicles     VehicleRepository
	Reservations ReservationRepository
	Sessions     SessionRepository
	Payments     PaymentRepository
	Discounts    DiscountRepository
}

// Store runs fn with transaction-bound repositories; fn returning an error
// rolls everything back. Lifecycle operations that touch a counter and insert
// a row use this so the admission check and the write commit together.
type Store interface {
	Transact(ctx context.Context, fn func(r Repositories) error) error
}

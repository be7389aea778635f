package service

import (
	"context"
	"errors"
	"fmt"

	"parking_facility/internal/domain"
	"parking_facility/internal/repository"
)

// AvailabilityNotifier receives a lot snapshot after every successful counter
// change. The websocket manager implements it; a nil notifier disables the feed.
type AvailabilityNotifier interface {
	BroadcastAvailability(a domain.LotAvailability)
}

// CapacityLedger is the admission-control chokepoint. Every booking and entry
// passes through it; the underlying repository methods are conditional UPDATEs,
// so the check and the increment commit as one atomic step and two racing
// requests cannot both take the last slot.
type CapacityLedger struct {
	notifier AvailabilityNotifier
}

func NewCapacityLedger(notifier AvailabilityNotifier) *CapacityLedger {
	return &CapacityLedger{notifier: notifier}
}

// Reserve claims a slot for a future booking.
func (l *CapacityLedger) Reserve(ctx context.Context, lots repository.ParkingLotRepository, lotID int) error {
	return l.admit(ctx, lots, lotID, lots.Reserve)
}

// Occupy claims a slot for a vehicle physically entering without a reservation.
func (l *CapacityLedger) Occupy(ctx context.Context, lots repository.ParkingLotRepository, lotID int) error {
	return l.admit(ctx, lots, lotID, lots.Occupy)
}

// Release gives back a reservation hold (cancellation).
func (l *CapacityLedger) Release(ctx context.Context, lots repository.ParkingLotRepository, lotID int) error {
	return l.relinquish(ctx, lots, lotID, lots.Release)
}

// Vacate gives back an occupancy hold (vehicle left).
func (l *CapacityLedger) Vacate(ctx context.Context, lots repository.ParkingLotRepository, lotID int) error {
	return l.relinquish(ctx, lots, lotID, lots.Vacate)
}

// ConvertHold turns a reservation hold into an occupancy hold the moment the
// backing session starts, so the slot is never counted twice and never freed
// in between.
func (l *CapacityLedger) ConvertHold(ctx context.Context, lots repository.ParkingLotRepository, lotID int) error {
	ok, err := lots.ConvertHold(ctx, lotID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: lot %d has no reservation hold to convert", ErrNothingHeld, lotID)
	}
	l.notify(ctx, lots, lotID)
	return nil
}

type counterOp func(ctx context.Context, id int) (bool, error)

func (l *CapacityLedger) admit(ctx context.Context, lots repository.ParkingLotRepository, lotID int, op counterOp) error {
	ok, err := op(ctx, lotID)
	if err != nil {
		return err
	}
	if ok {
		l.notify(ctx, lots, lotID)
		return nil
	}
	// The conditional update matched no row; re-read only to name the reason.
	lot, err := lots.FindByID(ctx, lotID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return err
	}
	if lot.Status != domain.LotOpen {
		return fmt.Errorf("%w: lot %d is %s", ErrLotNotOpen, lotID, lot.Status)
	}
	return fmt.Errorf("%w: lot %d", ErrLotFull, lotID)
}

func (l *CapacityLedger) relinquish(ctx context.Context, lots repository.ParkingLotRepository, lotID int, op counterOp) error {
	ok, err := op(ctx, lotID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: lot %d", ErrNothingHeld, lotID)
	}
	l.notify(ctx, lots, lotID)
	return nil
}

func (l *CapacityLedger) notify(ctx context.Context, lots repository.ParkingLotRepository, lotID int) {
	if l.notifier == nil {
		return
	}
	lot, err := lots.FindByID(ctx, lotID)
	if err != nil {
		return
	}
	l.notifier.BroadcastAvailability(domain.LotAvailability{
		LotID:     lot.ID,
		Capacity:  lot.Capacity,
		Reserved:  lot.ReservedCount,
		Occupied:  lot.OccupiedCount,
		Available: lot.AvailableSlots(),
		Status:    string(lot.Status),
	})
}

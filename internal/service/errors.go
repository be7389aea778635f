package service

import (
	"errors"
	"fmt"
)

// Every rejected precondition gets its own sentinel so callers (and tests) can
// tell the failures apart with errors.Is.
var (
	ErrLotNotOpen  = errors.New("parking lot is not open")
	ErrLotFull     = errors.New("parking lot has no free slots")
	ErrLotInUse    = errors.New("parking lot still has open sessions or future bookings")
	ErrNothingHeld = errors.New("no slot held to release")

	ErrInvalidTimeWindow   = errors.New("invalid reservation time window")
	ErrReservationConflict = errors.New("vehicle already has a reservation in this window")
	ErrNotReservationOwner = errors.New("reservation belongs to another user")
	ErrNotVehicleOwner     = errors.New("vehicle belongs to another user")
	ErrReservationFinal    = errors.New("reservation is already completed or cancelled")

	ErrVehicleAlreadyParked       = errors.New("vehicle already has an open session")
	ErrNotSessionOwner            = errors.New("session belongs to another user")
	ErrSessionAlreadyExists       = errors.New("reservation already has an open session")
	ErrSessionAlreadyStopped      = errors.New("session is already stopped")
	ErrReservationSessionMismatch = errors.New("reservation-backed session must be stopped through its reservation")
	ErrNoActiveSession            = errors.New("no active session for this reservation")
)

// Discount rejections all wrap ErrDiscountRejected, so one errors.Is catches
// the family while the sub-reason stays visible to the caller.
var ErrDiscountRejected = errors.New("discount code rejected")

var (
	ErrDiscountWrongOwner    = fmt.Errorf("%w: belongs to another user", ErrDiscountRejected)
	ErrDiscountExhausted     = fmt.Errorf("%w: no uses left", ErrDiscountRejected)
	ErrDiscountInactive      = fmt.Errorf("%w: inactive", ErrDiscountRejected)
	ErrDiscountExpired       = fmt.Errorf("%w: outside validity dates", ErrDiscountRejected)
	ErrDiscountOutsideWindow = fmt.Errorf("%w: outside time-of-day window", ErrDiscountRejected)
)

package service

import (
	"time"

	"parking_facility/internal/domain"
)

// validateDiscount enforces the booking-time preconditions of a discount code.
// `at` is the moment of booking, `userID` the booking user. Each failed
// precondition returns its own sentinel.
func validateDiscount(d *domain.Discount, userID int, at time.Time) error {
	if !d.Active {
		return ErrDiscountInactive
	}
	if d.OwnerID.Valid && int(d.OwnerID.Int64) != userID {
		return ErrDiscountWrongOwner
	}
	if d.UsedCount >= d.UseLimit {
		return ErrDiscountExhausted
	}
	if d.ValidFrom.Valid && at.Before(d.ValidFrom.Time) {
		return ErrDiscountExpired
	}
	if d.ValidUntil.Valid && at.After(d.ValidUntil.Time) {
		return ErrDiscountExpired
	}
	if !withinHourWindow(d.StartHour, d.EndHour, at.Hour()) {
		return ErrDiscountOutsideWindow
	}
	return nil
}

// withinHourWindow treats start == end as "always"; a window wrapping past
// midnight (start > end) covers [start, 24) and [0, end).
func withinHourWindow(start, end, hour int) bool {
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

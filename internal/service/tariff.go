package service

import (
	"math"
	"time"

	"parking_facility/internal/domain"
)

// GracePeriod is the free window at the start of every stay.
const GracePeriod = 3 * time.Minute

// TariffCalculator converts an elapsed interval into a charge. Quote takes an
// explicit end; callers previewing an in-progress session substitute the wall
// clock themselves, keeping this function deterministic.
type TariffCalculator struct{}

func NewTariffCalculator() *TariffCalculator {
	return &TariffCalculator{}
}

// Quote prices the stay [start, end) against the lot's hourly tariff and day
// tariff, then applies the optional discount.
//
// Stays shorter than the grace period are free. A stay crossing a calendar-day
// boundary is billed at the day tariff per day touched; a same-day stay is
// billed per started hour, capped at the day tariff.
func (c *TariffCalculator) Quote(lot *domain.ParkingLot, start, end time.Time, discount *domain.Discount) float64 {
	elapsed := end.Sub(start)
	if elapsed < GracePeriod {
		return 0
	}

	var price float64
	days := calendarDaysSpanned(start, end)
	if days > 0 {
		price = lot.DayTariff * float64(days+1)
	} else {
		price = lot.Tariff * math.Ceil(elapsed.Hours())
		if price > lot.DayTariff {
			price = lot.DayTariff
		}
	}

	if discount != nil {
		switch discount.Type {
		case domain.DiscountFixed:
			price -= discount.Value
		case domain.DiscountPercent:
			price *= 1 - discount.Value/100
		}
	}

	if price < 0 {
		price = 0
	}
	return round2(price)
}

// calendarDaysSpanned counts the midnights between start and end, evaluated in
// start's location. The dates are re-anchored at noon UTC before differencing,
// so a DST transition shortening or stretching a local day cannot skew the
// count.
func calendarDaysSpanned(start, end time.Time) int {
	loc := start.Location()
	sy, sm, sd := start.Date()
	ey, em, ed := end.In(loc).Date()
	startDay := time.Date(sy, sm, sd, 12, 0, 0, 0, time.UTC)
	endDay := time.Date(ey, em, ed, 12, 0, 0, 0, time.UTC)
	return int(endDay.Sub(startDay).Hours() / 24)
}

// round2 rounds to two decimals, half away from zero upward.
func round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

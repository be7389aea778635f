package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type ReservationStatus string

const (
	ReservationBooked    ReservationStatus = "booked"
	ReservationActive    ReservationStatus = "active"
	ReservationCompleted ReservationStatus = "completed"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation status only moves forward: booked -> active -> completed, or
// booked -> cancelled. EndTime is open (null) only for admin-created
// reservations that are still in progress.
type Reservation struct {
	ID           int               `json:"id"`
	UserID       int               `json:"user_id"`
	VehicleID    int               `json:"vehicle_id"`
	LotID        int               `json:"lot_id"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      null.Time         `json:"end_time"`
	Status       ReservationStatus `json:"status"`
	Cost         float64           `json:"cost"`
	DiscountCode null.String       `json:"discount_code,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

type CreateReservationDTO struct {
	VehicleID    int       `json:"vehicle_id" binding:"required"`
	LotID        int       `json:"lot_id" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
	DiscountCode string    `json:"discount_code,omitempty"`
}

type ReservationFilterDTO struct {
	LotID     *int    `form:"lotId"`
	VehicleID *int    `form:"vehicleId"`
	Status    *string `form:"status"`
}

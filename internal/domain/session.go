package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Session is a physical occupancy event. EndTime and Cost stay null while the
// vehicle is inside; both are written exactly once when it leaves. At most one
// session per license plate may have a null EndTime, enforced by a partial
// unique index in the database.
type Session struct {
	ID            int        `json:"id"`
	LotID         int        `json:"lot_id"`
	UserID        null.Int   `json:"user_id"`
	LicensePlate  string     `json:"license_plate"`
	ReservationID null.Int   `json:"reservation_id"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       null.Time  `json:"end_time"`
	Cost          null.Float `json:"cost"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (s *Session) Open() bool {
	return !s.EndTime.Valid
}

type StartSessionDTO struct {
	LotID        int    `json:"lot_id" binding:"required"`
	LicensePlate string `json:"license_plate" binding:"required"`
}

type SessionFilterDTO struct {
	LotID        *int    `form:"lotId"`
	LicensePlate *string `form:"licensePlate"`
	Open         *bool   `form:"open"`
}

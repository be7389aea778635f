package domain

import "time"

type LotStatus string

const (
	LotOpen        LotStatus = "open"
	LotClosed      LotStatus = "closed"
	LotMaintenance LotStatus = "maintenance"
	LotFull        LotStatus = "full"
	LotDeleted     LotStatus = "deleted"
)

// ParkingLot carries two admission counters: ReservedCount holds slots claimed
// by future bookings, OccupiedCount slots with a vehicle physically present.
// Both are mutated only through the conditional updates in the lot repository.
type ParkingLot struct {
	ID            int       `json:"id"`
	Name          string    `json:"name"`
	Address       string    `json:"address,omitempty"`
	Capacity      int       `json:"capacity"`
	Tariff        float64   `json:"tariff"`
	DayTariff     float64   `json:"daytariff"`
	Status        LotStatus `json:"status"`
	ReservedCount int       `json:"reserved_count"`
	OccupiedCount int       `json:"occupied_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (l *ParkingLot) AvailableSlots() int {
	return l.Capacity - l.ReservedCount - l.OccupiedCount
}

type ParkingLotDTO struct {
	Name      string  `json:"name" binding:"required"`
	Address   string  `json:"address"`
	Capacity  int     `json:"capacity" binding:"required,gt=0"`
	Tariff    float64 `json:"tariff" binding:"min=0"`
	DayTariff float64 `json:"daytariff" binding:"min=0"`
	Status    string  `json:"status,omitempty"`
}

// LotAvailability is the snapshot pushed to websocket subscribers whenever a
// lot's counters change.
type LotAvailability struct {
	LotID     int    `json:"lot_id"`
	Capacity  int    `json:"capacity"`
	Reserved  int    `json:"reserved"`
	Occupied  int    `json:"occupied"`
	Available int    `json:"available"`
	Status    string `json:"status"`
}

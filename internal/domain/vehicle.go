package domain

import "time"

type Vehicle struct {
	ID           int       `json:"id"`
	OwnerID      int       `json:"owner_id"`
	LicensePlate string    `json:"license_plate"`
	Model        string    `json:"model,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type VehicleDTO struct {
	LicensePlate string `json:"license_plate" binding:"required"`
	Model        string `json:"model"`
}

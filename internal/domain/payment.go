package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

// Payment amounts are frozen once Completed is true; overtime on a completed
// payment spawns a new record instead of mutating the old one.
type Payment struct {
	ID              int         `json:"id"`
	UserID          null.Int    `json:"user_id"`
	Amount          float64     `json:"amount"`
	TransactionHash string      `json:"transaction_hash"`
	ValidationHash  null.String `json:"validation_hash"`
	Completed       bool        `json:"completed"`
	RefundRequested bool        `json:"refund_requested"`
	SessionID       null.Int    `json:"session_id"`
	ReservationID   null.Int    `json:"reservation_id"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

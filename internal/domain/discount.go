package domain

import (
	"time"

	"gopkg.in/guregu/null.v4"
)

type DiscountType string

const (
	DiscountFixed   DiscountType = "fixed"
	DiscountPercent DiscountType = "percent"
)

type Discount struct {
	ID         int          `json:"id"`
	Code       string       `json:"code"`
	Type       DiscountType `json:"type"`
	Value      float64      `json:"value"`
	OwnerID    null.Int     `json:"owner_id"`
	UseLimit   int          `json:"use_limit"`
	UsedCount  int          `json:"used_count"`
	Active     bool         `json:"active"`
	ValidFrom  null.Time    `json:"valid_from"`
	ValidUntil null.Time    `json:"valid_until"`
	// Optional time-of-day window, hours in [0, 24). Zero values mean the
	// code is valid around the clock.
	StartHour int       `json:"start_hour"`
	EndHour   int       `json:"end_hour"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DiscountDTO struct {
	Code       string     `json:"code" binding:"required"`
	Type       string     `json:"type" binding:"required,oneof=fixed percent"`
	Value      float64    `json:"value" binding:"required,gt=0"`
	OwnerID    *int       `json:"owner_id"`
	UseLimit   int        `json:"use_limit" binding:"required,gt=0"`
	Active     *bool      `json:"active"`
	ValidFrom  *time.Time `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until"`
	StartHour  int        `json:"start_hour" binding:"min=0,max=23"`
	EndHour    int        `json:"end_hour" binding:"min=0,max=23"`
}

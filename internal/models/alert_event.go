package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AlertKind distinguishes the two notification triggers a ladder step can
// produce.
type AlertKind string

const (
	AlertBeforeTarget AlertKind = "BEFORE_TARGET"
	AlertOnReach      AlertKind = "ON_REACH"
)

// AlertEvent is a fired trigger handed to the external delivery mechanism.
// Delivery success or failure is invisible here; the row records only that
// the trigger condition was met.
type AlertEvent struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	StepID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"step_id"`
	Kind         AlertKind       `gorm:"not null" json:"kind"`
	FiredAt      time.Time       `gorm:"not null" json:"fired_at"`
	Price        decimal.Decimal `gorm:"type:decimal(32,16)" json:"price"`
	ChannelHints string          `json:"channel_hints,omitempty"`
}

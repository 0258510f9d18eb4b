package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Package is a sellable internet service plan.
type Package struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	Speed        string          `gorm:"not null" json:"speed"`
	MonthlyPrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"monthly_price"`
	Currency     string          `gorm:"not null;default:'PKR'" json:"currency"`
	Active       bool            `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

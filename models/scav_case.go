package models

import "time"

// ScavCase is one logged exchange: a fixed cost paid for a set of returned items.
// Return is always recomputed from the line items inside the creating/updating
// transaction; nothing else may write it.
type ScavCase struct {
	ID            uint `gorm:"primaryKey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Cost          int64          `gorm:"not null;default:0"`
	Return        int64          `gorm:"column:return_value;not null;default:0"`
	Type          string         `gorm:"size:50;not null"`
	NumberOfItems int            `gorm:"not null;default:0"`
	UserID        uint           `gorm:"index;not null"`
	Items         []ScavCaseItem `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// Profit is return minus cost at the time of the last item mutation.
func (s *ScavCase) Profit() int64 {
	return s.Return - s.Cost
}

// ScavCaseItem is one priced line within a ScavCase. Name and Price are frozen
// copies taken at creation time so later catalog renames or market moves never
// rewrite history.
type ScavCaseItem struct {
	ID         uint `gorm:"primaryKey"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ScavCaseID uint   `gorm:"index;not null"`
	TarkovID   string `gorm:"size:50;index;not null"`
	Name       string `gorm:"size:100;not null"`
	Amount     int    `gorm:"not null"`
	Price      int64  `gorm:"not null"`
}

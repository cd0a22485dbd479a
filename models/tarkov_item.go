package models

import "time"

// TarkovItem is one recognizable in-game item from the tarkov.dev catalog.
// Rows are seeded/refreshed by cmd/fetch_items and treated as read-only everywhere else.
type TarkovItem struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	Name      string `gorm:"size:100;not null"`
	TarkovID  string `gorm:"size:50;not null;uniqueIndex"`
	Category  string `gorm:"size:64"`
}

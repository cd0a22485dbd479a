// Package catalog provides a shared read-through snapshot of the item catalog.
package catalog

import (
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"scavlog/models"
	"scavlog/pkg/ocr"
)

// Cache holds an in-memory snapshot of the tarkov_item table. The table only
// changes when the refresh job runs, so one snapshot is safely shared across
// concurrent requests and reloaded on a coarse TTL.
type Cache struct {
	db  *gorm.DB
	ttl time.Duration

	mu       sync.RWMutex
	entries  []ocr.CatalogEntry
	loadedAt time.Time
	version  uint64
}

func New(db *gorm.DB, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Cache{db: db, ttl: ttl}
}

// Snapshot returns the current catalog entries, reloading from the database
// when the cached copy has expired. The returned slice must be treated as
// read-only.
func (c *Cache) Snapshot() ([]ocr.CatalogEntry, error) {
	c.mu.RLock()
	if c.entries != nil && time.Since(c.loadedAt) < c.ttl {
		entries := c.entries
		c.mu.RUnlock()
		return entries, nil
	}
	c.mu.RUnlock()
	return c.reload()
}

// Version increments on every reload; useful for debugging stale-match reports.
func (c *Cache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Invalidate forces the next Snapshot to hit the database.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.loadedAt = time.Time{}
	c.mu.Unlock()
}

func (c *Cache) reload() ([]ocr.CatalogEntry, error) {
	var items []models.TarkovItem
	if err := c.db.Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	entries := make([]ocr.CatalogEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ocr.CatalogEntry{
			TarkovID: it.TarkovID,
			Name:     it.Name,
			Category: it.Category,
		})
	}
	c.mu.Lock()
	c.entries = entries
	c.loadedAt = time.Now()
	c.version++
	c.mu.Unlock()
	return entries, nil
}

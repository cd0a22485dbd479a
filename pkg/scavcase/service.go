// Package scavcase holds the transaction-building logic shared by the web
// handlers and the bulk ingestion tool.
package scavcase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"scavlog/models"
)

// PriceSource is the slice of the market client the service depends on.
type PriceSource interface {
	ItemPrice(ctx context.Context, id string) (*int64, error)
	ItemPrices(ctx context.Context, ids []string) (map[string]*int64, error)
}

// Case types whose cost is the live price of a reference item rather than a
// rouble figure embedded in the label.
var caseCostItems = map[string]string{
	"moonshine":    "5d1b376e86f774252519444e", // Bottle of Fierce Hatchling moonshine
	"intelligence": "5c12613b86f7743bbe2c3f76", // Intelligence folder
}

// ErrCostUnavailable is returned when the case-type's own cost cannot be
// resolved from the market. Unlike per-item prices this never degrades to
// zero: a zero-cost case would silently corrupt every profit figure built on
// top of it.
var ErrCostUnavailable = errors.New("case cost could not be resolved from the market")

// ValidationError is caller-correctable bad input: malformed case type or a
// malformed item payload. Never retried automatically.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Entry is one requested line item, as produced by OCR extraction or the
// manual search UI.
type Entry struct {
	TarkovID string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ItemEdit is one line of an item-set edit. A non-zero ID refers to an
// existing line item whose price stays frozen; a zero ID is a new line priced
// at the current market.
type ItemEdit struct {
	ID       uint   `json:"id,omitempty"`
	TarkovID string `json:"tarkov_id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// Service builds and mutates scav case records. All multi-row writes run
// inside one database transaction (a savepoint when already nested) so a
// partial case is never visible.
type Service struct {
	DB     *gorm.DB
	Prices PriceSource
}

// ResolveCaseCost turns a case-type label into its rouble cost. Moonshine and
// Intelligence cases cost whatever their reference item currently trades for;
// every other label embeds a literal figure like "₽15000".
func (s *Service) ResolveCaseCost(ctx context.Context, caseType string) (int64, error) {
	key := strings.ToLower(strings.TrimSpace(caseType))
	if id, ok := caseCostItems[key]; ok {
		price, err := s.Prices.ItemPrice(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCostUnavailable, err)
		}
		if price == nil {
			return 0, fmt.Errorf("%w: reference item %s has no sale sources", ErrCostUnavailable, id)
		}
		return *price, nil
	}
	raw := strings.TrimSpace(strings.ReplaceAll(caseType, "₽", ""))
	cost, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || cost <= 0 {
		return 0, validationErrorf("invalid scav case type %q", caseType)
	}
	return cost, nil
}

// Create persists one scav case together with its priced line items. The whole
// batch is validated up front and rejected as a unit; a pricing outage for the
// line items degrades to zero-priced rows rather than losing the submission.
func (s *Service) Create(ctx context.Context, caseType string, entries []Entry, userID uint) (*models.ScavCase, error) {
	cost, err := s.ResolveCaseCost(ctx, caseType)
	if err != nil {
		return nil, err
	}
	if err := validateEntries(entries); err != nil {
		return nil, err
	}

	prices, err := s.Prices.ItemPrices(ctx, uniqueIDs(entries))
	if err != nil {
		log.Printf("WARN bulk price lookup failed, recording zero prices: %v", err)
		prices = map[string]*int64{}
	}

	sc := &models.ScavCase{Type: caseType, Cost: cost, UserID: userID}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// parent first so its generated key is available to the children
		if err := tx.Create(sc).Error; err != nil {
			return fmt.Errorf("create scav case: %w", err)
		}
		var total int64
		for _, e := range entries {
			var price int64
			if p := prices[e.TarkovID]; p != nil {
				price = *p
			}
			item := models.ScavCaseItem{
				ScavCaseID: sc.ID,
				TarkovID:   e.TarkovID,
				Name:       e.Name,
				Amount:     e.Quantity,
				Price:      price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create scav case item: %w", err)
			}
			total += price * int64(e.Quantity)
		}
		sc.Return = total
		sc.NumberOfItems = len(entries)
		if err := tx.Model(sc).Updates(map[string]any{
			"return_value":    total,
			"number_of_items": len(entries),
		}).Error; err != nil {
			return fmt.Errorf("update scav case totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sc, nil
}

// UpdateItems replaces the item set of an existing case. Surviving lines keep
// their frozen price and only change quantity; removed lines are deleted; new
// lines are priced at the current market. The return value is recomputed from
// scratch inside the same transaction.
func (s *Service) UpdateItems(ctx context.Context, caseID uint, edits []ItemEdit) (*models.ScavCase, error) {
	for i, e := range edits {
		if strings.TrimSpace(e.TarkovID) == "" {
			return nil, validationErrorf("item %d is missing an id", i)
		}
		if e.Quantity <= 0 {
			return nil, validationErrorf("item %d has a non-positive quantity", i)
		}
	}

	var newIDs []string
	for _, e := range edits {
		if e.ID == 0 {
			newIDs = append(newIDs, e.TarkovID)
		}
	}
	prices, err := s.Prices.ItemPrices(ctx, dedupe(newIDs))
	if err != nil {
		log.Printf("WARN price lookup for edited case failed, new items get zero prices: %v", err)
		prices = map[string]*int64{}
	}

	var sc models.ScavCase
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").First(&sc, caseID).Error; err != nil {
			return fmt.Errorf("load scav case %d: %w", caseID, err)
		}
		existing := make(map[uint]*models.ScavCaseItem, len(sc.Items))
		for i := range sc.Items {
			existing[sc.Items[i].ID] = &sc.Items[i]
		}
		kept := make(map[uint]bool, len(edits))
		for _, e := range edits {
			if e.ID != 0 {
				kept[e.ID] = true
			}
		}
		for id, item := range existing {
			if !kept[id] {
				if err := tx.Delete(item).Error; err != nil {
					return fmt.Errorf("delete scav case item %d: %w", id, err)
				}
			}
		}

		var total int64
		for _, e := range edits {
			if item, ok := existing[e.ID]; e.ID != 0 && ok {
				item.Amount = e.Quantity
				if err := tx.Save(item).Error; err != nil {
					return fmt.Errorf("update scav case item %d: %w", item.ID, err)
				}
				total += item.Price * int64(e.Quantity)
				continue
			}
			var price int64
			if p := prices[e.TarkovID]; p != nil {
				price = *p
			}
			item := models.ScavCaseItem{
				ScavCaseID: sc.ID,
				TarkovID:   e.TarkovID,
				Name:       e.Name,
				Amount:     e.Quantity,
				Price:      price,
			}
			if err := tx.Create(&item).Error; err != nil {
				return fmt.Errorf("create scav case item: %w", err)
			}
			total += price * int64(e.Quantity)
		}

		sc.Return = total
		sc.NumberOfItems = len(edits)
		if err := tx.Model(&sc).Updates(map[string]any{
			"return_value":    total,
			"number_of_items": len(edits),
		}).Error; err != nil {
			return fmt.Errorf("update scav case totals: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &sc, nil
}

func validateEntries(entries []Entry) error {
	if len(entries) == 0 {
		return validationErrorf("at least one item is required")
	}
	for i, e := range entries {
		if strings.TrimSpace(e.TarkovID) == "" {
			return validationErrorf("item %d is missing an id", i)
		}
		if e.Quantity <= 0 {
			return validationErrorf("item %d has a non-positive quantity", i)
		}
	}
	return nil
}

func uniqueIDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.TarkovID)
	}
	return dedupe(ids)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

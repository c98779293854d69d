package snapshot

import (
	"time"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// UnitInfo locates a product unit within the catalog hierarchy.
type UnitInfo struct {
	ProductID  uuid.UUID
	CategoryID uuid.UUID
}

// PriceEntry is one unit price row as seen by the evaluator.
type PriceEntry struct {
	UnitPriceID uuid.UUID
	PriceCents  int64
	Window      timewindow.Window
}

// LineEntry is one complete promotion rule as seen by the evaluator. Lines
// without an attached detail never make it into a snapshot.
type LineEntry struct {
	LineID     uuid.UUID
	TargetType enums.PromotionTarget
	TargetID   uuid.UUID
	Type       enums.PromotionType
	Window     timewindow.Window
	Detail     promotions.Detail
}

// Snapshot is an immutable view of prices and promotion rules. Evaluations pin
// one snapshot so a concurrent admin mutation cannot produce a half-applied
// rule set mid-order.
type Snapshot struct {
	Version  int64
	LoadedAt time.Time

	units         map[uuid.UUID]UnitInfo
	prices        map[uuid.UUID][]PriceEntry
	productLines  map[uuid.UUID][]LineEntry
	categoryLines map[uuid.UUID][]LineEntry
}

// Build assembles a snapshot from catalog and rule rows. Rows are expected in
// validity-start order; Build preserves that order per key. Promotion lines
// whose detail is missing or inconsistent with the line type are dropped, an
// incomplete rule must never grant a discount.
func Build(version int64, loadedAt time.Time, units []models.ProductUnit, products []models.Product, prices []models.UnitPrice, lines []models.PromotionLine) *Snapshot {
	snap := &Snapshot{
		Version:       version,
		LoadedAt:      loadedAt,
		units:         make(map[uuid.UUID]UnitInfo, len(units)),
		prices:        make(map[uuid.UUID][]PriceEntry),
		productLines:  make(map[uuid.UUID][]LineEntry),
		categoryLines: make(map[uuid.UUID][]LineEntry),
	}

	categoryByProduct := make(map[uuid.UUID]uuid.UUID, len(products))
	for i := range products {
		categoryByProduct[products[i].ID] = products[i].CategoryID
	}
	for i := range units {
		snap.units[units[i].ID] = UnitInfo{
			ProductID:  units[i].ProductID,
			CategoryID: categoryByProduct[units[i].ProductID],
		}
	}

	for i := range prices {
		entry := PriceEntry{
			UnitPriceID: prices[i].ID,
			PriceCents:  prices[i].PriceCents,
			Window:      timewindow.New(prices[i].TimeStart, prices[i].TimeEnd),
		}
		snap.prices[prices[i].ProductUnitID] = append(snap.prices[prices[i].ProductUnitID], entry)
	}

	for i := range lines {
		detail, err := promotions.DetailFromRow(lines[i].Detail, lines[i].Type)
		if err != nil || detail == nil {
			continue
		}
		entry := LineEntry{
			LineID:     lines[i].ID,
			TargetType: lines[i].TargetType,
			TargetID:   lines[i].TargetID,
			Type:       lines[i].Type,
			Window:     timewindow.New(lines[i].StartDate, lines[i].EndDate),
			Detail:     detail,
		}
		switch lines[i].TargetType {
		case enums.PromotionTargetProduct:
			snap.productLines[lines[i].TargetID] = append(snap.productLines[lines[i].TargetID], entry)
		case enums.PromotionTargetCategory:
			snap.categoryLines[lines[i].TargetID] = append(snap.categoryLines[lines[i].TargetID], entry)
		}
	}

	return snap
}

// Unit resolves a product unit to its product and category.
func (s *Snapshot) Unit(unitID uuid.UUID) (UnitInfo, bool) {
	info, ok := s.units[unitID]
	return info, ok
}

// ResolvePrice finds the price row covering the instant for one unit. The
// disjointness invariant guarantees at most one row matches.
func (s *Snapshot) ResolvePrice(unitID uuid.UUID, at time.Time) (PriceEntry, bool) {
	for _, entry := range s.prices[unitID] {
		if entry.Window.Contains(at) {
			return entry, true
		}
	}
	return PriceEntry{}, false
}

// ActiveLines returns the promotion rules applying to one unit at the instant.
// A product-targeted line suppresses category lines for the unit's category.
func (s *Snapshot) ActiveLines(unitID uuid.UUID, at time.Time) []LineEntry {
	info, ok := s.units[unitID]
	if !ok {
		return nil
	}

	var active []LineEntry
	for _, entry := range s.productLines[info.ProductID] {
		if entry.Window.Contains(at) {
			active = append(active, entry)
		}
	}
	if len(active) > 0 {
		return active
	}
	for _, entry := range s.categoryLines[info.CategoryID] {
		if entry.Window.Contains(at) {
			active = append(active, entry)
		}
	}
	return active
}

package pricing

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/internal/conflict"
	"github.com/velmora/retail-admin-backend/pkg/db/models"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// Service exposes price list management operations.
type Service interface {
	CreateHeader(ctx context.Context, input CreateHeaderInput) (*HeaderDTO, error)
	GetHeader(ctx context.Context, headerID uuid.UUID) (*HeaderDTO, error)
	InsertPrice(ctx context.Context, input PriceInput) (*PriceDTO, error)
	BulkInsertPrices(ctx context.Context, headerID uuid.UUID, items []BulkPriceItem) ([]PriceDTO, error)
	ResolvePrice(ctx context.Context, productUnitID uuid.UUID, at time.Time) (*ResolvedPrice, error)
	DeactivatePrice(ctx context.Context, priceID uuid.UUID) error
}

// CreateHeaderInput holds the validated payload to create a price list.
type CreateHeaderInput struct {
	Name        string
	Description *string
	Window      timewindow.Window
}

// PriceInput holds the validated payload to add one price row.
type PriceInput struct {
	HeaderID      uuid.UUID
	ProductUnitID uuid.UUID
	PriceCents    int64
	Window        timewindow.Window
}

// BulkPriceItem is one row of a bulk insert. The batch commits atomically or
// not at all.
type BulkPriceItem struct {
	ProductUnitID uuid.UUID
	PriceCents    int64
	Window        timewindow.Window
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type unitLoader interface {
	FindUnitByID(ctx context.Context, id uuid.UUID) (*models.ProductUnit, error)
}

type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

type service struct {
	repo        *Repository
	dbClient    txRunner
	units       unitLoader
	locks       *conflict.KeyedMutex
	invalidator snapshotInvalidator
	metrics     *metrics.EngineMetrics
	logg        *logger.Logger
}

// NewService constructs a pricing service instance.
func NewService(repo *Repository, dbClient txRunner, units unitLoader, locks *conflict.KeyedMutex, invalidator snapshotInvalidator, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("pricing repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if units == nil {
		return nil, fmt.Errorf("unit loader required")
	}
	if locks == nil {
		return nil, fmt.Errorf("keyed mutex required")
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		units:       units,
		locks:       locks,
		invalidator: invalidator,
		metrics:     engineMetrics,
		logg:        logg,
	}, nil
}

// CreateHeader creates a named price list.
func (s *service) CreateHeader(ctx context.Context, input CreateHeaderInput) (*HeaderDTO, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price list name is required")
	}
	if err := input.Window.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price list window")
	}

	header := &models.PriceHeader{
		Name:        input.Name,
		Description: input.Description,
		TimeStart:   input.Window.Start,
		TimeEnd:     input.Window.End,
	}
	created, err := s.repo.CreateHeader(ctx, header)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert price header")
	}
	return NewHeaderDTO(created), nil
}

// GetHeader loads a price list with its rows.
func (s *service) GetHeader(ctx context.Context, headerID uuid.UUID) (*HeaderDTO, error) {
	header, err := s.repo.GetHeaderDetail(ctx, headerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price header not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price header")
	}
	return NewHeaderDTO(header), nil
}

// InsertPrice adds a conflict-checked price row. The row's window must lie
// within the header window, and no other active row for the same product unit
// may overlap it.
func (s *service) InsertPrice(ctx context.Context, input PriceInput) (*PriceDTO, error) {
	header, err := s.loadHeader(ctx, input.HeaderID)
	if err != nil {
		return nil, err
	}
	if err := s.validateItem(ctx, header, input.ProductUnitID, input.PriceCents, input.Window, -1); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(conflict.PriceKey(input.ProductUnitID))
	defer unlock()

	ix, err := s.indexForUnit(ctx, input.ProductUnitID)
	if err != nil {
		return nil, err
	}
	if hit, found := ix.Conflicting(input.Window); found {
		return nil, s.conflictError(hit, -1)
	}

	price := &models.UnitPrice{
		ProductUnitID: input.ProductUnitID,
		PriceCents:    input.PriceCents,
		PriceHeaderID: header.ID,
		TimeStart:     input.Window.Start,
		TimeEnd:       input.Window.End,
		Active:        true,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreatePrice(ctx, price)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert unit price")
	}

	s.invalidateSnapshot(ctx)
	return NewPriceDTO(price), nil
}

// BulkInsertPrices inserts a batch atomically. Any invalid or conflicting item
// aborts the whole batch; the error names the offending item by its position.
// Items within the batch are checked against the stored rows and against each
// other.
func (s *service) BulkInsertPrices(ctx context.Context, headerID uuid.UUID, items []BulkPriceItem) ([]PriceDTO, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk insert requires at least one item")
	}

	header, err := s.loadHeader(ctx, headerID)
	if err != nil {
		return nil, err
	}
	for i, item := range items {
		if err := s.validateItem(ctx, header, item.ProductUnitID, item.PriceCents, item.Window, i); err != nil {
			return nil, err
		}
	}

	// Lock every distinct unit in a stable order so concurrent batches cannot
	// deadlock against each other.
	unlocks := s.lockUnits(items)
	defer func() {
		for _, unlock := range unlocks {
			unlock()
		}
	}()

	indexes := make(map[uuid.UUID]*conflict.Index)
	itemByInterval := make(map[uuid.UUID]int)
	for i, item := range items {
		ix := indexes[item.ProductUnitID]
		if ix == nil {
			ix, err = s.indexForUnit(ctx, item.ProductUnitID)
			if err != nil {
				return nil, err
			}
			indexes[item.ProductUnitID] = ix
		}
		if hit, found := ix.Conflicting(item.Window); found {
			if sibling, ok := itemByInterval[hit.ID]; ok {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "price windows overlap within the batch").
					WithDetails(map[string]string{
						"item_index":         strconv.Itoa(i),
						"conflicting_item":   strconv.Itoa(sibling),
						"conflicting_window": hit.Window.String(),
						"product_unit_id":    item.ProductUnitID.String(),
					})
			}
			return nil, s.conflictError(hit, i)
		}
		intervalID := uuid.New()
		itemByInterval[intervalID] = i
		ix.Add(conflict.Interval{ID: intervalID, Window: item.Window})
	}

	rows := make([]*models.UnitPrice, len(items))
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		for i, item := range items {
			row := &models.UnitPrice{
				ProductUnitID: item.ProductUnitID,
				PriceCents:    item.PriceCents,
				PriceHeaderID: header.ID,
				TimeStart:     item.Window.Start,
				TimeEnd:       item.Window.End,
				Active:        true,
			}
			if _, err := txRepo.CreatePrice(ctx, row); err != nil {
				return err
			}
			rows[i] = row
		}
		return nil
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: bulk insert unit prices")
	}

	s.invalidateSnapshot(ctx)
	dtos := make([]PriceDTO, len(rows))
	for i, row := range rows {
		dtos[i] = *NewPriceDTO(row)
	}
	return dtos, nil
}

// ResolvePrice answers the price of one product unit at an instant. Reads the
// authoritative rows; the evaluation path uses the in-process snapshot instead.
func (s *service) ResolvePrice(ctx context.Context, productUnitID uuid.UUID, at time.Time) (*ResolvedPrice, error) {
	if _, err := s.units.FindUnitByID(ctx, productUnitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product unit not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product unit")
	}

	prices, err := s.repo.ListActivePricesByUnit(ctx, productUnitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit prices")
	}
	for i := range prices {
		if PriceWindow(&prices[i]).Contains(at) {
			return &ResolvedPrice{
				ProductUnitID: productUnitID,
				PriceCents:    prices[i].PriceCents,
				UnitPriceID:   prices[i].ID,
				At:            at.UTC(),
			}, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no price covers the requested instant").
		WithDetails(map[string]string{
			"product_unit_id": productUnitID.String(),
			"at":              at.UTC().Format(time.RFC3339),
		})
}

// DeactivatePrice soft-disables a price row.
func (s *service) DeactivatePrice(ctx context.Context, priceID uuid.UUID) error {
	if _, err := s.repo.FindPriceByID(ctx, priceID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "unit price not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit price")
	}
	if err := s.repo.DeactivatePrice(ctx, priceID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate unit price")
	}
	s.invalidateSnapshot(ctx)
	return nil
}

func (s *service) loadHeader(ctx context.Context, headerID uuid.UUID) (*models.PriceHeader, error) {
	header, err := s.repo.FindHeaderByID(ctx, headerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price header not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load price header")
	}
	return header, nil
}

// validateItem checks one row against shared rules. itemIndex is -1 for the
// single-row path and the batch position otherwise.
func (s *service) validateItem(ctx context.Context, header *models.PriceHeader, unitID uuid.UUID, priceCents int64, window timewindow.Window, itemIndex int) error {
	annotate := func(err *pkgerrors.Error) error {
		if itemIndex < 0 {
			return err
		}
		return err.WithDetails(map[string]string{"item_index": strconv.Itoa(itemIndex)})
	}

	if priceCents <= 0 {
		return annotate(pkgerrors.New(pkgerrors.CodeValidation, "price must be positive"))
	}
	if err := window.Validate(); err != nil {
		return annotate(pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price window"))
	}
	if !HeaderWindow(header).ContainsWindow(window) {
		return annotate(pkgerrors.New(pkgerrors.CodeValidation, "price window must lie within the price list window"))
	}
	if _, err := s.units.FindUnitByID(ctx, unitID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return annotate(pkgerrors.New(pkgerrors.CodeNotFound, "product unit not found"))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product unit")
	}
	return nil
}

func (s *service) indexForUnit(ctx context.Context, productUnitID uuid.UUID) (*conflict.Index, error) {
	existing, err := s.repo.ListActivePricesByUnit(ctx, productUnitID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load prices for conflict check")
	}
	ix := conflict.NewIndex()
	headerNames := make(map[uuid.UUID]string)
	for i := range existing {
		name, ok := headerNames[existing[i].PriceHeaderID]
		if !ok {
			if header, err := s.repo.FindHeaderByID(ctx, existing[i].PriceHeaderID); err == nil {
				name = header.Name
			}
			headerNames[existing[i].PriceHeaderID] = name
		}
		ix.Add(conflict.Interval{ID: existing[i].ID, Label: name, Window: PriceWindow(&existing[i])})
	}
	return ix, nil
}

func (s *service) lockUnits(items []BulkPriceItem) []func() {
	keys := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		key := conflict.PriceKey(item.ProductUnitID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	unlocks := make([]func(), 0, len(keys))
	for _, key := range keys {
		unlocks = append(unlocks, s.locks.Lock(key))
	}
	return unlocks
}

func (s *service) conflictError(hit conflict.Interval, itemIndex int) error {
	s.metrics.IncConflict("prices")

	details := map[string]string{
		"conflicting_price_id": hit.ID.String(),
		"conflicting_window":   hit.Window.String(),
	}
	if hit.Label != "" {
		details["conflicting_header_name"] = hit.Label
	}
	if itemIndex >= 0 {
		details["item_index"] = strconv.Itoa(itemIndex)
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "price window overlaps an existing row for this product unit").
		WithDetails(details)
}

func (s *service) invalidateSnapshot(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCatalog(ctx, "prices"), "failed to bump snapshot version")
	}
}

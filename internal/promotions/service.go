package promotions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/internal/conflict"
	"github.com/velmora/retail-admin-backend/pkg/db"
	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

// Service exposes promotion campaign management operations.
type Service interface {
	CreateHeader(ctx context.Context, input CreateHeaderInput) (*HeaderDTO, error)
	GetHeader(ctx context.Context, headerID uuid.UUID) (*HeaderDTO, error)
	InsertLine(ctx context.Context, input InsertLineInput) (*LineDTO, error)
	InsertDetail(ctx context.Context, lineID uuid.UUID, input DetailInput) (*LineDTO, error)
	ResolveActiveLines(ctx context.Context, targetType enums.PromotionTarget, targetID uuid.UUID, at time.Time) ([]LineDTO, error)
	ResolveLinesForProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]LineDTO, error)
	DeactivateLine(ctx context.Context, lineID uuid.UUID) error
	DeactivateHeader(ctx context.Context, headerID uuid.UUID) error
}

// CreateHeaderInput holds the validated payload to create a campaign.
type CreateHeaderInput struct {
	Name   string
	Window timewindow.Window
	Active bool
}

// InsertLineInput holds the validated payload to add a line to a campaign.
type InsertLineInput struct {
	HeaderID   uuid.UUID
	TargetType enums.PromotionTarget
	TargetID   uuid.UUID
	Type       enums.PromotionType
	Window     timewindow.Window
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type productLoader interface {
	FindProductByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type categoryLoader interface {
	FindCategoryByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
}

type snapshotInvalidator interface {
	Invalidate(ctx context.Context) error
}

// service implements the promotion service.
type service struct {
	repo        *Repository
	dbClient    txRunner
	products    productLoader
	categories  categoryLoader
	locks       *conflict.KeyedMutex
	invalidator snapshotInvalidator
	metrics     *metrics.EngineMetrics
	logg        *logger.Logger
}

// NewService constructs a promotion service instance.
func NewService(repo *Repository, dbClient txRunner, products productLoader, categories categoryLoader, locks *conflict.KeyedMutex, invalidator snapshotInvalidator, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("promotion repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if products == nil {
		return nil, fmt.Errorf("product loader required")
	}
	if categories == nil {
		return nil, fmt.Errorf("category loader required")
	}
	if locks == nil {
		return nil, fmt.Errorf("keyed mutex required")
	}
	return &service{
		repo:        repo,
		dbClient:    dbClient,
		products:    products,
		categories:  categories,
		locks:       locks,
		invalidator: invalidator,
		metrics:     engineMetrics,
		logg:        logg,
	}, nil
}

// CreateHeader creates a named campaign.
func (s *service) CreateHeader(ctx context.Context, input CreateHeaderInput) (*HeaderDTO, error) {
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "campaign name is required")
	}
	if err := input.Window.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid campaign window")
	}

	header := &models.PromotionHeader{
		Name:      input.Name,
		StartDate: input.Window.Start,
		EndDate:   input.Window.End,
		Active:    input.Active,
	}
	created, err := s.repo.CreateHeader(ctx, header)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert promotion header")
	}
	return NewHeaderDTO(created), nil
}

// GetHeader loads a campaign with its lines and details.
func (s *service) GetHeader(ctx context.Context, headerID uuid.UUID) (*HeaderDTO, error) {
	header, err := s.repo.GetHeaderDetail(ctx, headerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion header not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion header")
	}
	return NewHeaderDTO(header), nil
}

// InsertLine adds a conflict-checked line to a campaign. The line's window must
// lie within the campaign window, and no other active line for the same target
// may overlap it.
func (s *service) InsertLine(ctx context.Context, input InsertLineInput) (*LineDTO, error) {
	if !input.TargetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown promotion target type")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown promotion type")
	}
	if err := input.Window.Validate(); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line window")
	}
	if err := s.ensureTargetExists(ctx, input.TargetType, input.TargetID); err != nil {
		return nil, err
	}

	header, err := s.repo.FindHeaderByID(ctx, input.HeaderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion header not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion header")
	}
	if !HeaderWindow(header).ContainsWindow(input.Window) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line window must lie within the campaign window").
			WithDetails(map[string]string{
				"campaign_window": HeaderWindow(header).String(),
				"line_window":     input.Window.String(),
			})
	}

	unlock := s.locks.Lock(conflict.TargetKey(input.TargetType, input.TargetID))
	defer unlock()

	existing, err := s.repo.ListActiveLinesByTarget(ctx, input.TargetType, input.TargetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lines for conflict check")
	}
	if conflictErr := s.checkLineConflict(ctx, existing, input.Window); conflictErr != nil {
		return nil, conflictErr
	}

	line := &models.PromotionLine{
		PromotionHeaderID: header.ID,
		TargetType:        input.TargetType,
		TargetID:          input.TargetID,
		Type:              input.Type,
		StartDate:         input.Window.Start,
		EndDate:           input.Window.End,
		Active:            true,
	}
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateLine(ctx, line)
		return err
	}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert promotion line")
	}

	s.invalidateSnapshot(ctx)
	return NewLineDTO(line), nil
}

// InsertDetail validates and attaches the type-specific parameters to a line.
func (s *service) InsertDetail(ctx context.Context, lineID uuid.UUID, input DetailInput) (*LineDTO, error) {
	line, err := s.repo.FindLineByID(ctx, lineID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion line not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion line")
	}
	if line.Detail != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion line already has a detail").
			WithDetails(map[string]string{"detail_id": line.Detail.ID.String()})
	}

	detail, err := BuildDetail(input, line.Type)
	if err != nil {
		return nil, err
	}

	row := rowFromDetail(line.ID, detail)
	if err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := s.repo.WithTx(tx).CreateDetail(ctx, row)
		return err
	}); err != nil {
		// A concurrent writer may have attached a detail after the load above.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "promotion line already has a detail").
				WithDetails(map[string]string{"promotion_line_id": line.ID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert promotion detail")
	}

	s.invalidateSnapshot(ctx)
	line.Detail = row
	return NewLineDTO(line), nil
}

// ResolveActiveLines returns the lines covering one target at an instant.
func (s *service) ResolveActiveLines(ctx context.Context, targetType enums.PromotionTarget, targetID uuid.UUID, at time.Time) ([]LineDTO, error) {
	if !targetType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown promotion target type")
	}
	if err := s.ensureTargetExists(ctx, targetType, targetID); err != nil {
		return nil, err
	}

	lines, err := s.repo.ListActiveLinesByTarget(ctx, targetType, targetID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion lines")
	}

	var result []LineDTO
	for i := range lines {
		if !LineWindow(&lines[i]).Contains(at) {
			continue
		}
		detailed, err := s.repo.FindLineByID(ctx, lines[i].ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion line detail")
		}
		result = append(result, *NewLineDTO(detailed))
	}
	return result, nil
}

// ResolveLinesForProduct applies product-over-category precedence: when any
// product-targeted line covers the product at the instant, category lines for
// the product's category are suppressed.
func (s *service) ResolveLinesForProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]LineDTO, error) {
	product, err := s.products.FindProductByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	productLines, err := s.ResolveActiveLines(ctx, enums.PromotionTargetProduct, product.ID, at)
	if err != nil {
		return nil, err
	}
	if len(productLines) > 0 {
		return productLines, nil
	}
	return s.ResolveActiveLines(ctx, enums.PromotionTargetCategory, product.CategoryID, at)
}

// DeactivateLine soft-disables a line.
func (s *service) DeactivateLine(ctx context.Context, lineID uuid.UUID) error {
	if _, err := s.repo.FindLineByID(ctx, lineID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promotion line not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion line")
	}
	if err := s.repo.DeactivateLine(ctx, lineID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate promotion line")
	}
	s.invalidateSnapshot(ctx)
	return nil
}

// DeactivateHeader soft-disables a campaign and all of its lines.
func (s *service) DeactivateHeader(ctx context.Context, headerID uuid.UUID) error {
	if _, err := s.repo.FindHeaderByID(ctx, headerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "promotion header not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion header")
	}
	if err := s.repo.DeactivateHeader(ctx, headerID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate promotion header")
	}
	s.invalidateSnapshot(ctx)
	return nil
}

func (s *service) ensureTargetExists(ctx context.Context, targetType enums.PromotionTarget, targetID uuid.UUID) error {
	var err error
	switch targetType {
	case enums.PromotionTargetProduct:
		_, err = s.products.FindProductByID(ctx, targetID)
	case enums.PromotionTargetCategory:
		_, err = s.categories.FindCategoryByID(ctx, targetID)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown promotion target type")
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s target not found", targetType))
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion target")
	}
	return nil
}

func (s *service) checkLineConflict(ctx context.Context, existing []models.PromotionLine, candidate timewindow.Window) error {
	ix := conflict.NewIndex()
	for i := range existing {
		ix.Add(conflict.Interval{ID: existing[i].ID, Window: LineWindow(&existing[i])})
	}
	hit, found := ix.Conflicting(candidate)
	if !found {
		return nil
	}

	s.metrics.IncConflict("promotions")

	details := map[string]string{
		"conflicting_line_id": hit.ID.String(),
		"conflicting_window":  hit.Window.String(),
	}
	for i := range existing {
		if existing[i].ID != hit.ID {
			continue
		}
		if header, err := s.repo.FindHeaderByID(ctx, existing[i].PromotionHeaderID); err == nil {
			details["conflicting_campaign"] = header.Name
		}
		break
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "promotion window overlaps an existing line for this target").
		WithDetails(details)
}

func (s *service) invalidateSnapshot(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithCatalog(ctx, "promotions"), "failed to bump snapshot version")
	}
}

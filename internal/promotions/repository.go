package promotions

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
)

// Repository wires together promotion persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateHeader inserts a new promotion header row.
func (r *Repository) CreateHeader(ctx context.Context, header *models.PromotionHeader) (*models.PromotionHeader, error) {
	if err := r.db.WithContext(ctx).Create(header).Error; err != nil {
		return nil, err
	}
	return header, nil
}

// FindHeaderByID loads the header without associations.
func (r *Repository) FindHeaderByID(ctx context.Context, id uuid.UUID) (*models.PromotionHeader, error) {
	var header models.PromotionHeader
	if err := r.db.WithContext(ctx).First(&header, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &header, nil
}

// GetHeaderDetail loads the header with its lines and their details.
func (r *Repository) GetHeaderDetail(ctx context.Context, id uuid.UUID) (*models.PromotionHeader, error) {
	var header models.PromotionHeader
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Lines.Detail").
		First(&header, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &header, nil
}

// CreateLine inserts a new promotion line row.
func (r *Repository) CreateLine(ctx context.Context, line *models.PromotionLine) (*models.PromotionLine, error) {
	if err := r.db.WithContext(ctx).Create(line).Error; err != nil {
		return nil, err
	}
	return line, nil
}

// FindLineByID loads the line with its detail, if any.
func (r *Repository) FindLineByID(ctx context.Context, id uuid.UUID) (*models.PromotionLine, error) {
	var line models.PromotionLine
	if err := r.db.WithContext(ctx).Preload("Detail").First(&line, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &line, nil
}

// ListActiveLinesByTarget returns the active lines registered for one target,
// restricted to active campaigns. These are the rows the conflict check runs
// against.
func (r *Repository) ListActiveLinesByTarget(ctx context.Context, targetType enums.PromotionTarget, targetID uuid.UUID) ([]models.PromotionLine, error) {
	var lines []models.PromotionLine
	err := r.db.WithContext(ctx).
		Joins("JOIN promotion_headers ON promotion_headers.id = promotion_lines.promotion_header_id").
		Where("promotion_lines.target_type = ? AND promotion_lines.target_id = ?", targetType, targetID).
		Where("promotion_lines.active AND promotion_headers.active").
		Order("promotion_lines.start_date ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// ListActiveLines returns every active line of active campaigns with details
// preloaded. Snapshot loads read through this.
func (r *Repository) ListActiveLines(ctx context.Context) ([]models.PromotionLine, error) {
	var lines []models.PromotionLine
	err := r.db.WithContext(ctx).
		Preload("Detail").
		Joins("JOIN promotion_headers ON promotion_headers.id = promotion_lines.promotion_header_id").
		Where("promotion_lines.active AND promotion_headers.active").
		Order("promotion_lines.start_date ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// CreateDetail inserts the detail row for a line.
func (r *Repository) CreateDetail(ctx context.Context, detail *models.PromotionDetail) (*models.PromotionDetail, error) {
	if err := r.db.WithContext(ctx).Create(detail).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

// FindDetailByLineID loads a line's detail row.
func (r *Repository) FindDetailByLineID(ctx context.Context, lineID uuid.UUID) (*models.PromotionDetail, error) {
	var detail models.PromotionDetail
	if err := r.db.WithContext(ctx).First(&detail, "promotion_line_id = ?", lineID).Error; err != nil {
		return nil, err
	}
	return &detail, nil
}

// DeactivateLine soft-disables a line. The row is retained for history.
func (r *Repository) DeactivateLine(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PromotionLine{}).
		Where("id = ?", id).
		Update("active", false).Error
}

// DeactivateHeader soft-disables a campaign and thereby all of its lines.
func (r *Repository) DeactivateHeader(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.PromotionHeader{}).
		Where("id = ?", id).
		Update("active", false).Error
}

package promotions

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/velmora/retail-admin-backend/internal/catalog"
	"github.com/velmora/retail-admin-backend/internal/conflict"
	"github.com/velmora/retail-admin-backend/pkg/db"
	"github.com/velmora/retail-admin-backend/pkg/db/models"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/timewindow"
)

func setupPromotionsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  name TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  name TEXT NOT NULL,
  category_id TEXT NOT NULL,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS promotion_headers (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  name TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS promotion_lines (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  promotion_header_id TEXT NOT NULL,
  target_type TEXT NOT NULL,
  target_id TEXT NOT NULL,
  type TEXT NOT NULL,
  start_date DATETIME NOT NULL,
  end_date DATETIME,
  active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS promotion_details (
  id TEXT PRIMARY KEY DEFAULT (lower(hex(randomblob(4))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(2))) || '-' || lower(hex(randomblob(6)))),
  promotion_line_id TEXT NOT NULL UNIQUE,
  type TEXT NOT NULL,
  discount_percent REAL,
  discount_amount_cents INTEGER,
  min_amount_cents INTEGER,
  max_discount_cents INTEGER,
  condition_product_unit_id TEXT,
  condition_quantity INTEGER,
  gift_product_unit_id TEXT,
  free_quantity INTEGER,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, stmt := range statements {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()

	catalogRepo := catalog.NewRepository(conn)
	svc, err := NewService(NewRepository(conn), db.NewWithConn(conn), catalogRepo, catalogRepo, conflict.NewKeyedMutex(), nil, nil, nil)
	require.NoError(t, err)
	return svc
}

func seedCategory(t *testing.T, conn *gorm.DB, name string) uuid.UUID {
	t.Helper()

	category := models.Category{ID: uuid.New(), Name: name}
	require.NoError(t, conn.Create(&category).Error)
	return category.ID
}

func seedProduct(t *testing.T, conn *gorm.DB, categoryID uuid.UUID, name string) uuid.UUID {
	t.Helper()

	product := models.Product{ID: uuid.New(), Name: name, CategoryID: categoryID, Active: true}
	require.NoError(t, conn.Create(&product).Error)
	return product.ID
}

func mustWindow(t *testing.T, start, end string) timewindow.Window {
	t.Helper()

	w, err := timewindow.ParseWindow(start, end)
	require.NoError(t, err)
	return w
}

func TestCreateHeaderValidation(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	_, err := svc.CreateHeader(ctx, CreateHeaderInput{Window: mustWindow(t, "2026-01-01", "2026-02-01")})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	end := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	_, err = svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Winter Sale",
		Window: timewindow.New(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), &end),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestInsertLineWindowMustFitCampaign(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "beverages")
	productID := seedProduct(t, conn, categoryID, "cold brew")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "January Deals",
		Window: mustWindow(t, "2026-01-01", "2026-02-01"),
		Active: true,
	})
	require.NoError(t, err)

	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-01-15", "2026-03-01"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestInsertLineRejectsUnknownTarget(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Ghost Campaign",
		Window: mustWindow(t, "2026-01-01", "2026-02-01"),
		Active: true,
	})
	require.NoError(t, err)

	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   uuid.New(),
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-01-01", "2026-02-01"),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestInsertLineConflictDetection(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "bakery")
	productID := seedProduct(t, conn, categoryID, "sourdough")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Q1 Promotions",
		Window: mustWindow(t, "2026-01-01", "2026-04-01"),
		Active: true,
	})
	require.NoError(t, err)

	first, err := svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-01-01", "2026-02-01"),
	})
	require.NoError(t, err)

	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountAmount,
		Window:     mustWindow(t, "2026-01-20", "2026-03-01"),
	})
	require.Error(t, err)
	coded := pkgerrors.As(err)
	assert.Equal(t, pkgerrors.CodeConflict, coded.Code())
	details, ok := coded.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, first.ID.String(), details["conflicting_line_id"])
	assert.Equal(t, "Q1 Promotions", details["conflicting_campaign"])

	// Touching windows share only the boundary instant and do not conflict.
	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountAmount,
		Window:     mustWindow(t, "2026-02-01", "2026-03-01"),
	})
	require.NoError(t, err)

	// A different target is an independent timeline.
	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetCategory,
		TargetID:   categoryID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-01-01", "2026-03-01"),
	})
	require.NoError(t, err)
}

func TestInsertDetailLifecycle(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "dairy")
	productID := seedProduct(t, conn, categoryID, "yogurt")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Dairy Week",
		Window: mustWindow(t, "2026-03-01", "2026-03-08"),
		Active: true,
	})
	require.NoError(t, err)

	line, err := svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-03-01", "2026-03-08"),
	})
	require.NoError(t, err)

	// Fields from another variant are rejected in one pass.
	amount := int64(500)
	_, err = svc.InsertDetail(ctx, line.ID, DetailInput{DiscountAmountCents: &amount})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())

	percent := 15.0
	maxDiscount := int64(2000)
	updated, err := svc.InsertDetail(ctx, line.ID, DetailInput{
		DiscountPercent:  &percent,
		MaxDiscountCents: &maxDiscount,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.Detail)
	assert.Equal(t, enums.PromotionTypeDiscountPercent, updated.Detail.Type)

	// A line carries at most one detail.
	_, err = svc.InsertDetail(ctx, line.ID, DetailInput{DiscountPercent: &percent})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

// delayedTxRunner runs a hook between the service's read phase and its write
// transaction, standing in for a concurrent writer.
type delayedTxRunner struct {
	inner  txRunner
	before func()
}

func (r *delayedTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if r.before != nil {
		r.before()
	}
	return r.inner.WithTx(ctx, fn)
}

func TestInsertDetailConcurrentDuplicateReportsConflict(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "bakery")
	productID := seedProduct(t, conn, categoryID, "sourdough")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Bread Days",
		Window: mustWindow(t, "2026-04-01", "2026-04-15"),
		Active: true,
	})
	require.NoError(t, err)

	line, err := svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-04-01", "2026-04-15"),
	})
	require.NoError(t, err)

	// The rival detail lands after InsertDetail has loaded the line but
	// before its own insert runs, so only the unique index can catch it.
	percent := 10.0
	runner := &delayedTxRunner{
		inner: db.NewWithConn(conn),
		before: func() {
			rival := models.PromotionDetail{
				ID:              uuid.New(),
				PromotionLineID: line.ID,
				Type:            enums.PromotionTypeDiscountPercent,
				DiscountPercent: &percent,
			}
			require.NoError(t, conn.Create(&rival).Error)
		},
	}
	catalogRepo := catalog.NewRepository(conn)
	racedSvc, err := NewService(NewRepository(conn), runner, catalogRepo, catalogRepo, conflict.NewKeyedMutex(), nil, nil, nil)
	require.NoError(t, err)

	_, err = racedSvc.InsertDetail(ctx, line.ID, DetailInput{DiscountPercent: &percent})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestResolveLinesForProductPrecedence(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "produce")
	productID := seedProduct(t, conn, categoryID, "avocado")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Fresh Picks",
		Window: mustWindow(t, "2026-05-01", "2026-06-01"),
		Active: true,
	})
	require.NoError(t, err)

	categoryLine, err := svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetCategory,
		TargetID:   categoryID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-05-01", "2026-06-01"),
	})
	require.NoError(t, err)

	productLine, err := svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountAmount,
		Window:     mustWindow(t, "2026-05-10", "2026-05-20"),
	})
	require.NoError(t, err)

	// Inside the product line's window the category line is suppressed.
	lines, err := svc.ResolveLinesForProduct(ctx, productID, time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, productLine.ID, lines[0].ID)

	// Outside it, the category line applies.
	lines, err = svc.ResolveLinesForProduct(ctx, productID, time.Date(2026, 5, 25, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, categoryLine.ID, lines[0].ID)

	// After deactivating the product line the category line takes over everywhere.
	require.NoError(t, svc.DeactivateLine(ctx, productLine.ID))
	lines, err = svc.ResolveLinesForProduct(ctx, productID, time.Date(2026, 5, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, categoryLine.ID, lines[0].ID)
}

func TestDeactivateHeaderDisablesLines(t *testing.T) {
	conn := setupPromotionsTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	categoryID := seedCategory(t, conn, "snacks")
	productID := seedProduct(t, conn, categoryID, "crisps")

	header, err := svc.CreateHeader(ctx, CreateHeaderInput{
		Name:   "Flash Sale",
		Window: mustWindow(t, "2026-07-01", "2026-07-02"),
		Active: true,
	})
	require.NoError(t, err)

	_, err = svc.InsertLine(ctx, InsertLineInput{
		HeaderID:   header.ID,
		TargetType: enums.PromotionTargetProduct,
		TargetID:   productID,
		Type:       enums.PromotionTypeDiscountPercent,
		Window:     mustWindow(t, "2026-07-01", "2026-07-02"),
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateHeader(ctx, header.ID))

	lines, err := svc.ResolveActiveLines(ctx, enums.PromotionTargetProduct, productID, time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, lines)

	err = svc.DeactivateHeader(ctx, uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

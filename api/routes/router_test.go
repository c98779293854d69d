package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/velmora/retail-admin-backend/internal/pricing"
	"github.com/velmora/retail-admin-backend/internal/promotions"
	"github.com/velmora/retail-admin-backend/pkg/config"
	"github.com/velmora/retail-admin-backend/pkg/enums"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/redis"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPricingService struct {
	createHeader func(ctx context.Context, input pricing.CreateHeaderInput) (*pricing.HeaderDTO, error)
	resolve      func(ctx context.Context, productUnitID uuid.UUID, at time.Time) (*pricing.ResolvedPrice, error)
}

func (s stubPricingService) CreateHeader(ctx context.Context, input pricing.CreateHeaderInput) (*pricing.HeaderDTO, error) {
	if s.createHeader != nil {
		return s.createHeader(ctx, input)
	}
	return &pricing.HeaderDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (s stubPricingService) GetHeader(ctx context.Context, headerID uuid.UUID) (*pricing.HeaderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "price header not found")
}

func (s stubPricingService) InsertPrice(ctx context.Context, input pricing.PriceInput) (*pricing.PriceDTO, error) {
	return &pricing.PriceDTO{ID: uuid.New()}, nil
}

func (s stubPricingService) BulkInsertPrices(ctx context.Context, headerID uuid.UUID, items []pricing.BulkPriceItem) ([]pricing.PriceDTO, error) {
	return []pricing.PriceDTO{}, nil
}

func (s stubPricingService) ResolvePrice(ctx context.Context, productUnitID uuid.UUID, at time.Time) (*pricing.ResolvedPrice, error) {
	if s.resolve != nil {
		return s.resolve(ctx, productUnitID, at)
	}
	return &pricing.ResolvedPrice{ProductUnitID: productUnitID, PriceCents: 1299}, nil
}

func (s stubPricingService) DeactivatePrice(ctx context.Context, priceID uuid.UUID) error {
	return nil
}

type stubPromotionService struct{}

func (stubPromotionService) CreateHeader(ctx context.Context, input promotions.CreateHeaderInput) (*promotions.HeaderDTO, error) {
	return &promotions.HeaderDTO{ID: uuid.New(), Name: input.Name}, nil
}

func (stubPromotionService) GetHeader(ctx context.Context, headerID uuid.UUID) (*promotions.HeaderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "promotion header not found")
}

func (stubPromotionService) InsertLine(ctx context.Context, input promotions.InsertLineInput) (*promotions.LineDTO, error) {
	return &promotions.LineDTO{ID: uuid.New()}, nil
}

func (stubPromotionService) InsertDetail(ctx context.Context, lineID uuid.UUID, input promotions.DetailInput) (*promotions.LineDTO, error) {
	return &promotions.LineDTO{ID: lineID}, nil
}

func (stubPromotionService) ResolveActiveLines(ctx context.Context, targetType enums.PromotionTarget, targetID uuid.UUID, at time.Time) ([]promotions.LineDTO, error) {
	return []promotions.LineDTO{}, nil
}

func (stubPromotionService) ResolveLinesForProduct(ctx context.Context, productID uuid.UUID, at time.Time) ([]promotions.LineDTO, error) {
	return []promotions.LineDTO{}, nil
}

func (stubPromotionService) DeactivateLine(ctx context.Context, lineID uuid.UUID) error {
	return nil
}

func (stubPromotionService) DeactivateHeader(ctx context.Context, headerID uuid.UUID) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		RateLimit: config.RateLimitConfig{
			MutationWindow:  time.Minute,
			MutationIPLimit: 120,
		},
	}
}

func newTestRouter(cfg *config.Config, pricingSvc pricing.Service) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	if pricingSvc == nil {
		pricingSvc = stubPricingService{}
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		(*redis.Client)(nil),
		pricingSvc,
		stubPromotionService{},
		nil, // snapshot provider exercised in its own package
		nil,
		nil,
	)
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}

func TestCreatePriceHeaderRejectsBadJSON(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/price-headers", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid payload got %d", resp.Code)
	}
}

func TestCreatePriceHeaderAcceptsValidPayload(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	body := `{"name":"Winter 2026","start_date":"2026-01-01T00:00:00Z","end_date":"2026-03-01T00:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/price-headers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 for valid payload got %d body %s", resp.Code, resp.Body.String())
	}
}

func TestResolvePriceRoute(t *testing.T) {
	unitID := uuid.New()
	svc := stubPricingService{
		resolve: func(ctx context.Context, productUnitID uuid.UUID, at time.Time) (*pricing.ResolvedPrice, error) {
			if productUnitID != unitID {
				t.Fatalf("unexpected unit id %s", productUnitID)
			}
			return &pricing.ResolvedPrice{ProductUnitID: productUnitID, PriceCents: 450}, nil
		},
	}
	router := newTestRouter(testConfig(), svc)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/prices/resolve?product_unit_id="+unitID.String(), nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for resolve got %d body %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data pricing.ResolvedPrice `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode resolve response: %v", err)
	}
	if envelope.Data.PriceCents != 450 {
		t.Fatalf("expected resolved price 450 got %d", envelope.Data.PriceCents)
	}
}

func TestResolvePriceRequiresUnitID(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/prices/resolve", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 when product_unit_id missing got %d", resp.Code)
	}
}

func TestResolvePromotionLinesRejectsUnknownTarget(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	url := "/api/admin/v1/promotion-lines/resolve?target_type=warehouse&target_id=" + uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown target type got %d", resp.Code)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	router := newTestRouter(testConfig(), nil)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/nope", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown route got %d", resp.Code)
	}
}

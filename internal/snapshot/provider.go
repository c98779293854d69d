package snapshot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/velmora/retail-admin-backend/pkg/config"
	"github.com/velmora/retail-admin-backend/pkg/db/models"
	pkgerrors "github.com/velmora/retail-admin-backend/pkg/errors"
	"github.com/velmora/retail-admin-backend/pkg/logger"
	"github.com/velmora/retail-admin-backend/pkg/metrics"
)

type catalogSource interface {
	ListUnits(ctx context.Context) ([]models.ProductUnit, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

type priceSource interface {
	ListActivePrices(ctx context.Context) ([]models.UnitPrice, error)
}

type lineSource interface {
	ListActiveLines(ctx context.Context) ([]models.PromotionLine, error)
}

type versionStore interface {
	SnapshotVersion(ctx context.Context) (int64, error)
	BumpSnapshotVersion(ctx context.Context, ttl time.Duration) (int64, error)
}

// Provider serves the current snapshot and keeps it fresh. Instances share a
// version counter in redis; a committed mutation bumps it, and a stale local
// snapshot is rebuilt at most once per instance regardless of how many
// evaluations notice at the same time.
type Provider struct {
	cfg      config.SnapshotConfig
	catalog  catalogSource
	prices   priceSource
	lines    lineSource
	versions versionStore
	metrics  *metrics.EngineMetrics
	logg     *logger.Logger

	group singleflight.Group
	now   func() time.Time

	mu      sync.RWMutex
	current *Snapshot
}

// NewProvider constructs a provider. The version store may be nil; freshness
// then relies on MaxAge alone.
func NewProvider(cfg config.SnapshotConfig, catalog catalogSource, prices priceSource, lines lineSource, versions versionStore, engineMetrics *metrics.EngineMetrics, logg *logger.Logger) (*Provider, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog source required")
	}
	if prices == nil {
		return nil, fmt.Errorf("price source required")
	}
	if lines == nil {
		return nil, fmt.Errorf("line source required")
	}
	return &Provider{
		cfg:      cfg,
		catalog:  catalog,
		prices:   prices,
		lines:    lines,
		versions: versions,
		metrics:  engineMetrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Current returns a snapshot no older than MaxAge relative to the shared
// version counter. The returned snapshot is immutable; callers pin it for the
// whole evaluation.
func (p *Provider) Current(ctx context.Context) (*Snapshot, error) {
	p.mu.RLock()
	cached := p.current
	p.mu.RUnlock()

	if cached != nil && p.now().Sub(cached.LoadedAt) < p.cfg.MaxAge {
		return cached, nil
	}

	if cached != nil && p.versions != nil {
		version, err := p.versions.SnapshotVersion(ctx)
		if err == nil && version == cached.Version {
			p.touch(cached)
			return cached, nil
		}
		if err != nil && p.logg != nil {
			p.logg.Error(ctx, "reading snapshot version, rebuilding", err)
		}
	}

	return p.reload(ctx)
}

// Invalidate bumps the shared version counter and drops the local snapshot so
// the mutating instance observes its own write immediately.
func (p *Provider) Invalidate(ctx context.Context) error {
	p.mu.Lock()
	p.current = nil
	p.mu.Unlock()

	if p.versions == nil {
		return nil
	}
	if _, err := p.versions.BumpSnapshotVersion(ctx, p.cfg.VersionKeyTTL); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump snapshot version")
	}
	return nil
}

func (p *Provider) reload(ctx context.Context) (*Snapshot, error) {
	result, err, _ := p.group.Do("reload", func() (any, error) {
		version := int64(0)
		if p.versions != nil {
			v, err := p.versions.SnapshotVersion(ctx)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read snapshot version")
			}
			version = v
		}

		units, err := p.catalog.ListUnits(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product units")
		}
		products, err := p.catalog.ListProducts(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
		prices, err := p.prices.ListActivePrices(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unit prices")
		}
		lines, err := p.lines.ListActiveLines(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promotion lines")
		}

		snap := Build(version, p.now(), units, products, prices, lines)
		p.mu.Lock()
		p.current = snap
		p.mu.Unlock()

		p.metrics.IncSnapshotReload()
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Snapshot), nil
}

// touch extends the cached snapshot's freshness after the version check
// confirmed it is still current.
func (p *Provider) touch(cached *Snapshot) {
	p.mu.Lock()
	if p.current == cached {
		refreshed := *cached
		refreshed.LoadedAt = p.now()
		p.current = &refreshed
	}
	p.mu.Unlock()
}

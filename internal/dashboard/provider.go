package dashboard

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/couchcryptid/mdf-dashboard/internal/observability"
)

// ErrNotLoaded is returned while no bundle has been published.
var ErrNotLoaded = errors.New("dashboard data not loaded yet")

// Provider publishes the bundle once it is loaded. Until then it reports
// not ready.
type Provider struct {
	bundle  atomic.Pointer[Bundle]
	metrics *observability.Metrics
}

func NewProvider(metrics *observability.Metrics) *Provider {
	return &Provider{metrics: metrics}
}

// Set publishes b.
func (p *Provider) Set(b *Bundle) {
	p.bundle.Store(b)
	p.metrics.DashboardReady.Set(1)
}

// Bundle returns the published bundle, or nil before Set.
func (p *Provider) Bundle() *Bundle {
	return p.bundle.Load()
}

// CheckReadiness returns nil once a bundle has been published.
func (p *Provider) CheckReadiness(_ context.Context) error {
	if p.bundle.Load() == nil {
		return ErrNotLoaded
	}
	return nil
}

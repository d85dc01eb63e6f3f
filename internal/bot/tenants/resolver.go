// Package tenants maps an inbound page id to the tenant that owns it.
package tenants

import (
	"context"
	"errors"
	"fmt"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

type Resolver struct {
	repo     model.TenantRepository
	fallback bool
}

// NewResolver enables the first-active-tenant fallback only when cfg asks
// for it. The fallback is a single-tenant convenience and is loud about it.
func NewResolver(repo model.TenantRepository, cfg model.TenantConfig, env core.Environment) *Resolver {
	if cfg.FallbackEnabled {
		ev := logx.Warn()
		if env.IsProduction() {
			ev = logx.Error()
		}
		ev.Str("environment", env.String()).Msg("tenant fallback enabled: unknown pages will be served by the first active tenant")
	}
	return &Resolver{repo: repo, fallback: cfg.FallbackEnabled}
}

// Resolve returns errx.ErrResolution when no tenant can serve pageID.
func (r *Resolver) Resolve(ctx context.Context, pageID string) (*model.Tenant, error) {
	t, err := r.repo.ByPageID(ctx, pageID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, errx.ErrNotFound) {
		return nil, fmt.Errorf("resolve tenant for page %s: %w", pageID, err)
	}
	if !r.fallback {
		return nil, errx.Resolution(pageID)
	}

	t, err = r.repo.FirstActive(ctx)
	if errors.Is(err, errx.ErrNotFound) {
		return nil, errx.Resolution(pageID)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve fallback tenant: %w", err)
	}
	logx.Warn().Str("page_id", pageID).Str("tenant_id", t.ID).Msg("degraded mode: page served by fallback tenant")
	return t, nil
}

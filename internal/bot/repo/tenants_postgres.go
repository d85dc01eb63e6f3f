package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
)

type PostgresTenantRepository struct {
	db *sql.DB
}

func NewPostgresTenantRepository(db *sql.DB) *PostgresTenantRepository {
	return &PostgresTenantRepository{db: db}
}

const (
	tenantColumns     = `id, name, page_id, page_token, currency, locale, active`
	tenantByPageQuery = `SELECT ` + tenantColumns + ` FROM tenants WHERE page_id = $1 AND active`
	tenantFirstQuery  = `SELECT ` + tenantColumns + ` FROM tenants WHERE active ORDER BY created_at, id LIMIT 1`
)

func scanTenant(s rowScanner) (*model.Tenant, error) {
	var t model.Tenant
	if err := s.Scan(&t.ID, &t.Name, &t.PageID, &t.PageToken, &t.Currency, &t.Locale, &t.Active); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errx.NotFound("tenant")
		}
		return nil, errx.WrapPostgres(err)
	}
	return &t, nil
}

func (r *PostgresTenantRepository) ByPageID(ctx context.Context, pageID string) (*model.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx, tenantByPageQuery, pageID))
}

func (r *PostgresTenantRepository) FirstActive(ctx context.Context) (*model.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx, tenantFirstQuery))
}

var _ model.TenantRepository = (*PostgresTenantRepository)(nil)

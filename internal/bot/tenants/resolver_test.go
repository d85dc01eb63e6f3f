package tenants

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/repo"
	"github.com/Chative-core-poc-v1/orderbot/internal/core"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
)

type failingRepo struct{ err error }

func (f failingRepo) ByPageID(context.Context, string) (*model.Tenant, error) { return nil, f.err }
func (f failingRepo) FirstActive(context.Context) (*model.Tenant, error) { return nil, f.err }

func store() *repo.MemoryStore {
	s := repo.NewMemoryStore()
	s.AddTenant(model.Tenant{ID: "t1", PageID: "page-1", Active: true})
	s.AddTenant(model.Tenant{ID: "t2", PageID: "page-2", Active: false})
	return s
}

func TestResolveByPage(t *testing.T) {
	r := NewResolver(store(), model.TenantConfig{}, core.Development)
	tn, err := r.Resolve(context.Background(), "page-1")
	require.NoError(t, err)
	assert.Equal(t, "t1", tn.ID)
}

func TestResolveUnknownPageWithoutFallback(t *testing.T) {
	r := NewResolver(store(), model.TenantConfig{}, core.Production)
	_, err := r.Resolve(context.Background(), "page-9")
	assert.ErrorIs(t, err, errx.ErrResolution)

	// Inactive tenants do not resolve either.
	_, err = r.Resolve(context.Background(), "page-2")
	assert.ErrorIs(t, err, errx.ErrResolution)
}

func TestResolveFallback(t *testing.T) {
	r := NewResolver(store(), model.TenantConfig{FallbackEnabled: true}, core.Development)
	tn, err := r.Resolve(context.Background(), "page-9")
	require.NoError(t, err)
	assert.Equal(t, "t1", tn.ID)

	empty := NewResolver(repo.NewMemoryStore(), model.TenantConfig{FallbackEnabled: true}, core.Development)
	_, err = empty.Resolve(context.Background(), "page-9")
	assert.ErrorIs(t, err, errx.ErrResolution)
}

func TestResolveStoreFailure(t *testing.T) {
	r := NewResolver(failingRepo{err: errors.New("db down")}, model.TenantConfig{FallbackEnabled: true}, core.Development)
	_, err := r.Resolve(context.Background(), "page-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, errx.ErrResolution)
}

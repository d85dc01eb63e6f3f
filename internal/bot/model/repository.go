package model

import (
	"context"
	"time"
)

// SessionRepository persists one Session per (tenant, identity).
type SessionRepository interface {
	// GetOrCreate returns the stored session or a fresh one in StateMenu.
	GetOrCreate(ctx context.Context, tenantID, psid string) (*Session, error)
	// Update writes only the fields set in patch, atomically.
	Update(ctx context.Context, tenantID, psid string, patch SessionPatch) error
	// Clear empties cart and checkout and returns the session to StateMenu.
	Clear(ctx context.Context, tenantID, psid string) error
}

// CatalogRepository is the read side of the tenant catalog.
type CatalogRepository interface {
	Categories(ctx context.Context, tenantID string) ([]Category, error)
	ItemsInCategory(ctx context.Context, tenantID, categoryID string) ([]Item, error)
	// Item returns errx.ErrNotFound when the item does not exist or is unavailable.
	Item(ctx context.Context, tenantID, itemID string) (*Item, error)
	// OrderTypes returns enabled order types only.
	OrderTypes(ctx context.Context, tenantID string) ([]OrderType, error)
	FormFields(ctx context.Context, orderTypeID string) ([]FormField, error)
	// PaymentMethods returns active methods offered for the order type.
	PaymentMethods(ctx context.Context, tenantID, orderTypeID string) ([]PaymentMethod, error)
}

type OrderCreator interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (CreateOrderResult, error)
}

type OrderRepository interface {
	Get(ctx context.Context, orderID string) (*Order, error)
	// ListRecent returns orders created at or after since, newest first.
	ListRecent(ctx context.Context, tenantID string, since time.Time, limit int) ([]Order, error)
	// ClaimDelivery sets the delivery marker if absent and reports whether
	// this caller won it.
	ClaimDelivery(ctx context.Context, orderID, psid string, at time.Time) (bool, error)
	ReleaseDelivery(ctx context.Context, orderID, psid string) error
}

type TenantRepository interface {
	ByPageID(ctx context.Context, pageID string) (*Tenant, error)
	FirstActive(ctx context.Context) (*Tenant, error)
}

type DeliveryQuoter interface {
	Quote(ctx context.Context, req QuoteRequest) (DeliveryQuote, error)
}

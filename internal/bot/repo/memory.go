package repo

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
)

// MemoryStore implements every repository in process. It backs
// STORE_DRIVER=memory and the flow tests.
type MemoryStore struct {
	// Now defaults to time.Now.
	Now func() time.Time
	// CreateOrderFunc, when set, replaces order creation.
	CreateOrderFunc func(ctx context.Context, req model.CreateOrderRequest) (model.CreateOrderResult, error)

	mu           sync.Mutex
	tenants      []model.Tenant
	categories   []model.Category
	items        map[string]model.Item
	itemOrder    []string
	orderTypes   []model.OrderType
	formFields   map[string][]model.FormField
	payments     []model.PaymentMethod
	paymentTypes map[string][]string
	orders       map[string]model.Order
	sessions     map[string]model.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		Now:          time.Now,
		items:        map[string]model.Item{},
		formFields:   map[string][]model.FormField{},
		paymentTypes: map[string][]string{},
		orders:       map[string]model.Order{},
		sessions:     map[string]model.Session{},
	}
}

func (m *MemoryStore) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

// Seeding.

func (m *MemoryStore) AddTenant(t model.Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants = append(m.tenants, t)
}

func (m *MemoryStore) AddCategory(c model.Category) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = append(m.categories, c)
}

func (m *MemoryStore) AddItem(it model.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[it.ID]; !ok {
		m.itemOrder = append(m.itemOrder, it.ID)
	}
	m.items[it.ID] = it
}

func (m *MemoryStore) AddOrderType(ot model.OrderType, fields ...model.FormField) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderTypes = append(m.orderTypes, ot)
	m.formFields[ot.ID] = fields
}

// AddPaymentMethod offers pm for the listed order types, or for all of them
// when none are listed.
func (m *MemoryStore) AddPaymentMethod(pm model.PaymentMethod, orderTypeIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments = append(m.payments, pm)
	m.paymentTypes[pm.ID] = orderTypeIDs
}

// PutOrder stores an order as an external system would have created it.
func (m *MemoryStore) PutOrder(o model.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.CustomerData == nil {
		o.CustomerData = map[string]string{}
	}
	m.orders[o.ID] = cloneOrder(o)
}

// Sessions.

func sessionKey(tenantID, psid string) string {
	return tenantID + "\x00" + psid
}

func (m *MemoryStore) GetOrCreate(_ context.Context, tenantID, psid string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(tenantID, psid)
	s, ok := m.sessions[key]
	if !ok {
		s = *model.NewSession(tenantID, psid, m.now())
		m.sessions[key] = s
	}
	c := cloneSession(s)
	return &c, nil
}

func (m *MemoryStore) Update(_ context.Context, tenantID, psid string, patch model.SessionPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey(tenantID, psid)
	s, ok := m.sessions[key]
	if !ok {
		s = *model.NewSession(tenantID, psid, m.now())
	}
	patch.Apply(&s)
	s.UpdatedAt = m.now()
	m.sessions[key] = cloneSession(s)
	return nil
}

func (m *MemoryStore) Clear(ctx context.Context, tenantID, psid string) error {
	state := model.StateMenu
	return m.Update(ctx, tenantID, psid, model.SessionPatch{
		State:    &state,
		Cart:     &[]model.CartLine{},
		Checkout: &model.CheckoutState{},
	})
}

// Catalog.

func (m *MemoryStore) Categories(_ context.Context, tenantID string) ([]model.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Category
	for _, c := range m.categories {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) ItemsInCategory(_ context.Context, tenantID, categoryID string) ([]model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Item
	for _, id := range m.itemOrder {
		it := m.items[id]
		if it.TenantID == tenantID && it.CategoryID == categoryID && it.Available {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *MemoryStore) Item(_ context.Context, tenantID, itemID string) (*model.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[itemID]
	if !ok || it.TenantID != tenantID || !it.Available {
		return nil, errx.NotFound("item")
	}
	return &it, nil
}

func (m *MemoryStore) OrderTypes(_ context.Context, tenantID string) ([]model.OrderType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.OrderType
	for _, ot := range m.orderTypes {
		if ot.TenantID == tenantID && ot.Enabled {
			out = append(out, ot)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) FormFields(_ context.Context, orderTypeID string) ([]model.FormField, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]model.FormField{}, m.formFields[orderTypeID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (m *MemoryStore) PaymentMethods(_ context.Context, tenantID, orderTypeID string) ([]model.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.PaymentMethod
	for _, pm := range m.payments {
		if pm.TenantID != tenantID || !pm.Active {
			continue
		}
		types := m.paymentTypes[pm.ID]
		if len(types) == 0 || contains(types, orderTypeID) {
			out = append(out, pm)
		}
	}
	return out, nil
}

// Orders.

func (m *MemoryStore) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.CreateOrderResult, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, req)
	}
	if msg := validateOrder(req); msg != "" {
		return model.CreateOrderResult{Success: false, Error: msg}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	number := strconv.Itoa(1000 + len(m.orders) + 1)
	subtotal := model.Subtotal(req.Lines)
	var fee float64
	if req.DeliveryFee != nil {
		fee = *req.DeliveryFee
	}
	now := m.now()
	m.orders[id] = cloneOrder(model.Order{
		ID:            id,
		TenantID:      req.TenantID,
		Number:        number,
		OrderTypeName: req.OrderTypeName,
		Items:         req.Lines,
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		Total:         subtotal + fee,
		PaymentName:   req.PaymentName,
		CustomerName:  req.CustomerName,
		CustomerData:  req.CustomerData(now),
		CreatedAt:     now,
	})
	return model.CreateOrderResult{Success: true, OrderID: id, Number: number}, nil
}

func (m *MemoryStore) Get(_ context.Context, orderID string) (*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, errx.NotFound("order")
	}
	c := cloneOrder(o)
	return &c, nil
}

func (m *MemoryStore) ListRecent(_ context.Context, tenantID string, since time.Time, limit int) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Order
	for _, o := range m.orders {
		if o.TenantID == tenantID && !o.CreatedAt.Before(since) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ClaimDelivery(_ context.Context, orderID, psid string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.Delivered() {
		return false, nil
	}
	o.CustomerData[model.MarkerSentAt] = at.UTC().Format(time.RFC3339)
	o.CustomerData[model.MarkerPSID] = psid
	m.orders[orderID] = o
	return true, nil
}

func (m *MemoryStore) ReleaseDelivery(_ context.Context, orderID, psid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.CustomerData[model.MarkerPSID] != psid {
		return nil
	}
	delete(o.CustomerData, model.MarkerSentAt)
	delete(o.CustomerData, model.MarkerPSID)
	m.orders[orderID] = o
	return nil
}

// Tenants.

func (m *MemoryStore) ByPageID(_ context.Context, pageID string) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.PageID == pageID && t.Active {
			c := t
			return &c, nil
		}
	}
	return nil, errx.NotFound("tenant")
}

func (m *MemoryStore) FirstActive(_ context.Context) (*model.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tenants {
		if t.Active {
			c := t
			return &c, nil
		}
	}
	return nil, errx.NotFound("tenant")
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// cloneSession deep-copies through JSON so callers never share pointers
// with the store.
func cloneSession(s model.Session) model.Session {
	b, err := json.Marshal(s)
	if err != nil {
		return s
	}
	var c model.Session
	if err := json.Unmarshal(b, &c); err != nil {
		return s
	}
	if c.Cart == nil {
		c.Cart = []model.CartLine{}
	}
	return c
}

func cloneOrder(o model.Order) model.Order {
	c := o
	c.Items = append([]model.CartLine(nil), o.Items...)
	c.CustomerData = make(map[string]string, len(o.CustomerData))
	for k, v := range o.CustomerData {
		c.CustomerData[k] = v
	}
	return c
}

var (
	_ model.SessionRepository = (*MemoryStore)(nil)
	_ model.CatalogRepository = (*MemoryStore)(nil)
	_ model.OrderCreator      = (*MemoryStore)(nil)
	_ model.OrderRepository   = (*MemoryStore)(nil)
	_ model.TenantRepository  = (*MemoryStore)(nil)
)

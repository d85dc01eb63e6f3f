package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
)

type PostgresCatalogRepository struct {
	db *sql.DB
}

func NewPostgresCatalogRepository(db *sql.DB) *PostgresCatalogRepository {
	return &PostgresCatalogRepository{db: db}
}

const (
	categoriesQuery      = `SELECT id, tenant_id, name, description, image_url, position FROM categories WHERE tenant_id = $1 ORDER BY position, name`
	itemColumns          = `id, tenant_id, category_id, name, description, image_url, price, discount_price, available`
	itemsInCategoryQuery = `SELECT ` + itemColumns + ` FROM items WHERE tenant_id = $1 AND category_id = $2 AND available ORDER BY position, name`
	itemQuery            = `SELECT ` + itemColumns + ` FROM items WHERE tenant_id = $1 AND id = $2 AND available`
	variationsQuery      = `SELECT id, name, price_modifier FROM item_variations WHERE item_id = $1 ORDER BY position, name`
	addonsQuery          = `SELECT id, name, price FROM item_addons WHERE item_id = $1 ORDER BY position, name`
	orderTypesQuery      = `SELECT id, tenant_id, name, enabled, requires_delivery, position FROM order_types WHERE tenant_id = $1 AND enabled ORDER BY position, name`
	formFieldsQuery      = `SELECT key, label, field_type, required, position FROM order_type_fields WHERE order_type_id = $1 ORDER BY position, key`
	paymentMethodsQuery  = `SELECT pm.id, pm.tenant_id, pm.name, pm.details, pm.qr_image, pm.active FROM payment_methods pm
WHERE pm.tenant_id = $1 AND pm.active
  AND (NOT EXISTS (SELECT 1 FROM payment_method_order_types x WHERE x.payment_method_id = pm.id)
       OR EXISTS (SELECT 1 FROM payment_method_order_types x WHERE x.payment_method_id = pm.id AND x.order_type_id = $2))
ORDER BY pm.position, pm.name`
)

func (r *PostgresCatalogRepository) Categories(ctx context.Context, tenantID string) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, categoriesQuery, tenantID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.TenantID, &c.Name, &c.Description, &c.ImageURL, &c.Position); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, c)
	}
	return out, errx.WrapPostgres(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner) (model.Item, error) {
	var (
		it       model.Item
		discount sql.NullFloat64
	)
	err := s.Scan(&it.ID, &it.TenantID, &it.CategoryID, &it.Name, &it.Description, &it.ImageURL, &it.Price, &discount, &it.Available)
	if err != nil {
		return it, err
	}
	if discount.Valid {
		d := discount.Float64
		it.DiscountPrice = &d
	}
	return it, nil
}

func (r *PostgresCatalogRepository) ItemsInCategory(ctx context.Context, tenantID, categoryID string) ([]model.Item, error) {
	rows, err := r.db.QueryContext(ctx, itemsInCategoryQuery, tenantID, categoryID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, it)
	}
	return out, errx.WrapPostgres(rows.Err())
}

// Item loads the item with its variations and add-ons.
func (r *PostgresCatalogRepository) Item(ctx context.Context, tenantID, itemID string) (*model.Item, error) {
	it, err := scanItem(r.db.QueryRowContext(ctx, itemQuery, tenantID, itemID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("item")
	}
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}

	vrows, err := r.db.QueryContext(ctx, variationsQuery, itemID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer vrows.Close()
	for vrows.Next() {
		var v model.Variation
		if err := vrows.Scan(&v.ID, &v.Name, &v.PriceModifier); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		it.Variations = append(it.Variations, v)
	}
	if err := vrows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}

	arows, err := r.db.QueryContext(ctx, addonsQuery, itemID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer arows.Close()
	for arows.Next() {
		var a model.Addon
		if err := arows.Scan(&a.ID, &a.Name, &a.Price); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		it.Addons = append(it.Addons, a)
	}
	if err := arows.Err(); err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return &it, nil
}

func (r *PostgresCatalogRepository) OrderTypes(ctx context.Context, tenantID string) ([]model.OrderType, error) {
	rows, err := r.db.QueryContext(ctx, orderTypesQuery, tenantID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.OrderType
	for rows.Next() {
		var o model.OrderType
		if err := rows.Scan(&o.ID, &o.TenantID, &o.Name, &o.Enabled, &o.RequiresDelivery, &o.Position); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, o)
	}
	return out, errx.WrapPostgres(rows.Err())
}

func (r *PostgresCatalogRepository) FormFields(ctx context.Context, orderTypeID string) ([]model.FormField, error) {
	rows, err := r.db.QueryContext(ctx, formFieldsQuery, orderTypeID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.FormField
	for rows.Next() {
		var (
			f   model.FormField
			typ string
		)
		if err := rows.Scan(&f.Key, &f.Label, &typ, &f.Required, &f.Position); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		f.Type = model.FieldType(typ)
		out = append(out, f)
	}
	return out, errx.WrapPostgres(rows.Err())
}

func (r *PostgresCatalogRepository) PaymentMethods(ctx context.Context, tenantID, orderTypeID string) ([]model.PaymentMethod, error) {
	rows, err := r.db.QueryContext(ctx, paymentMethodsQuery, tenantID, orderTypeID)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.PaymentMethod
	for rows.Next() {
		var p model.PaymentMethod
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Details, &p.QRImage, &p.Active); err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, p)
	}
	return out, errx.WrapPostgres(rows.Err())
}

var _ model.CatalogRepository = (*PostgresCatalogRepository)(nil)

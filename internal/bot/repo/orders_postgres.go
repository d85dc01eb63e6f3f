package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// PostgresOrderRepository creates orders for checkout and serves the
// attribution resolver's reads and delivery-marker writes.
type PostgresOrderRepository struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

func NewPostgresOrderRepository(db *sql.DB) *PostgresOrderRepository {
	return &PostgresOrderRepository{db: db, now: time.Now, newID: uuid.NewString}
}

const (
	orderColumns      = `id, tenant_id, number, order_type_name, items, subtotal, delivery_fee, total, payment_name, customer_name, customer_data, created_at`
	orderGetQuery     = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	orderRecentQuery  = `SELECT ` + orderColumns + ` FROM orders WHERE tenant_id = $1 AND created_at >= $2 ORDER BY created_at DESC LIMIT $3`
	orderInsertQuery  = `INSERT INTO orders (id, tenant_id, number, order_type_id, order_type_name, items, subtotal, delivery_fee, delivery_quote, total, payment_id, payment_name, customer_name, customer_contact, customer_data, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	orderClaimQuery   = `UPDATE orders SET customer_data = customer_data || jsonb_build_object('messenger_sent_at', $2::text, 'messenger_psid', $3::text)
WHERE id = $1 AND NOT (customer_data ? 'messenger_sent_at')`
	orderReleaseQuery = `UPDATE orders SET customer_data = customer_data - 'messenger_sent_at' - 'messenger_psid'
WHERE id = $1 AND customer_data->>'messenger_psid' = $2`
)

// CreateOrder validates the request and inserts it. Business rule failures
// come back in the result; only database failures are errors.
func (r *PostgresOrderRepository) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.CreateOrderResult, error) {
	if msg := validateOrder(req); msg != "" {
		return model.CreateOrderResult{Success: false, Error: msg}, nil
	}

	id := r.newID()
	number := orderNumber(id)
	subtotal := model.Subtotal(req.Lines)
	var fee float64
	if req.DeliveryFee != nil {
		fee = *req.DeliveryFee
	}

	items, err := json.Marshal(req.Lines)
	if err != nil {
		return model.CreateOrderResult{}, fmt.Errorf("marshal order items: %w", err)
	}
	now := r.now().UTC()
	data, err := json.Marshal(req.CustomerData(now))
	if err != nil {
		return model.CreateOrderResult{}, fmt.Errorf("marshal customer data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, orderInsertQuery,
		id, req.TenantID, number, req.OrderTypeID, req.OrderTypeName, string(items),
		subtotal, fee, req.QuoteID, subtotal+fee, req.PaymentID, req.PaymentName,
		req.CustomerName, req.CustomerContact, string(data), now)
	if err != nil {
		logx.Error().Err(err).Str("tenant_id", req.TenantID).Msg("failed to insert order")
		return model.CreateOrderResult{}, errx.WrapPostgres(err)
	}
	return model.CreateOrderResult{Success: true, OrderID: id, Number: number}, nil
}

func validateOrder(req model.CreateOrderRequest) string {
	switch {
	case req.TenantID == "":
		return "Missing restaurant."
	case len(req.Lines) == 0:
		return "Your cart is empty."
	case req.OrderTypeID == "":
		return "Please choose an order type."
	}
	for _, l := range req.Lines {
		if l.Quantity < 1 || l.UnitPrice < 0 {
			return fmt.Sprintf("%s has an invalid quantity or price.", l.ItemName)
		}
	}
	return ""
}

// orderNumber is a short human-facing reference derived from the id.
func orderNumber(id string) string {
	s := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(s) > 8 {
		s = s[:8]
	}
	return s
}

func scanOrder(s rowScanner) (model.Order, error) {
	var (
		o           model.Order
		items, data []byte
	)
	err := s.Scan(&o.ID, &o.TenantID, &o.Number, &o.OrderTypeName, &items, &o.Subtotal,
		&o.DeliveryFee, &o.Total, &o.PaymentName, &o.CustomerName, &data, &o.CreatedAt)
	if err != nil {
		return o, err
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &o.Items); err != nil {
			return o, fmt.Errorf("decode order items: %w", err)
		}
	}
	o.CustomerData = map[string]string{}
	if len(data) > 0 {
		// Values written by other systems may not be strings.
		var raw map[string]any
		if err := json.Unmarshal(data, &raw); err != nil {
			return o, fmt.Errorf("decode customer data: %w", err)
		}
		for k, v := range raw {
			if sv, ok := v.(string); ok {
				o.CustomerData[k] = sv
			} else if v != nil {
				o.CustomerData[k] = fmt.Sprint(v)
			}
		}
	}
	return o, nil
}

func (r *PostgresOrderRepository) Get(ctx context.Context, orderID string) (*model.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, orderGetQuery, orderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errx.NotFound("order")
	}
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	return &o, nil
}

func (r *PostgresOrderRepository) ListRecent(ctx context.Context, tenantID string, since time.Time, limit int) ([]model.Order, error) {
	rows, err := r.db.QueryContext(ctx, orderRecentQuery, tenantID, since.UTC(), limit)
	if err != nil {
		return nil, errx.WrapPostgres(err)
	}
	defer rows.Close()

	var out []model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, errx.WrapPostgres(err)
		}
		out = append(out, o)
	}
	return out, errx.WrapPostgres(rows.Err())
}

// ClaimDelivery is a conditional write: only the caller that flips the
// marker from absent to present gets true.
func (r *PostgresOrderRepository) ClaimDelivery(ctx context.Context, orderID, psid string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, orderClaimQuery, orderID, at.UTC().Format(time.RFC3339), psid)
	if err != nil {
		return false, errx.WrapPostgres(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errx.WrapPostgres(err)
	}
	return n == 1, nil
}

func (r *PostgresOrderRepository) ReleaseDelivery(ctx context.Context, orderID, psid string) error {
	if _, err := r.db.ExecContext(ctx, orderReleaseQuery, orderID, psid); err != nil {
		return errx.WrapPostgres(err)
	}
	return nil
}

var (
	_ model.OrderCreator    = (*PostgresOrderRepository)(nil)
	_ model.OrderRepository = (*PostgresOrderRepository)(nil)
)

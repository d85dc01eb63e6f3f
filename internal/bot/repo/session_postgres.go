package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// PostgresSessionRepository stores sessions in bot_sessions keyed by
// (psid, tenant_id).
type PostgresSessionRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostgresSessionRepository(db *sql.DB) *PostgresSessionRepository {
	return &PostgresSessionRepository{db: db, now: time.Now}
}

const (
	sessionInsertQuery = `INSERT INTO bot_sessions (psid, tenant_id, state, cart_data, checkout_state, updated_at) VALUES ($1, $2, $3, '[]', '{}', $4) ON CONFLICT (psid, tenant_id) DO NOTHING`
	sessionSelectQuery = `SELECT state, cart_data, checkout_state, updated_at FROM bot_sessions WHERE psid = $1 AND tenant_id = $2`
)

func (r *PostgresSessionRepository) GetOrCreate(ctx context.Context, tenantID, psid string) (*model.Session, error) {
	if _, err := r.db.ExecContext(ctx, sessionInsertQuery, psid, tenantID, string(model.StateMenu), r.now().UTC()); err != nil {
		logx.Error().Err(err).Str("psid", psid).Str("tenant_id", tenantID).Msg("failed to ensure session row")
		return nil, errx.WrapPostgres(err)
	}

	var (
		state          string
		cartRaw, coRaw []byte
		updatedAt      time.Time
	)
	err := r.db.QueryRowContext(ctx, sessionSelectQuery, psid, tenantID).Scan(&state, &cartRaw, &coRaw, &updatedAt)
	if err != nil {
		logx.Error().Err(err).Str("psid", psid).Str("tenant_id", tenantID).Msg("failed to load session row")
		return nil, errx.WrapPostgres(err)
	}

	s := decodeSession(tenantID, psid, map[string]string{
		fieldState:    state,
		fieldCart:     string(cartRaw),
		fieldCheckout: string(coRaw),
	})
	s.UpdatedAt = updatedAt
	return s, nil
}

// Update issues one UPDATE touching only the columns present in patch.
func (r *PostgresSessionRepository) Update(ctx context.Context, tenantID, psid string, patch model.SessionPatch) error {
	if patch.Empty() {
		return nil
	}

	sets := []string{}
	args := []any{psid, tenantID}
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.State != nil {
		add("state", string(*patch.State))
	}
	if patch.Cart != nil {
		cart := *patch.Cart
		if cart == nil {
			cart = []model.CartLine{}
		}
		b, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}
		add("cart_data", string(b))
	}
	if patch.Checkout != nil {
		b, err := json.Marshal(patch.Checkout)
		if err != nil {
			return fmt.Errorf("marshal checkout: %w", err)
		}
		add("checkout_state", string(b))
	}
	add("updated_at", r.now().UTC())

	query := fmt.Sprintf("UPDATE bot_sessions SET %s WHERE psid = $1 AND tenant_id = $2", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		logx.Error().Err(err).Str("psid", psid).Str("tenant_id", tenantID).Msg("failed to update session row")
		return errx.WrapPostgres(err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errx.NotFound("session")
	}
	return nil
}

func (r *PostgresSessionRepository) Clear(ctx context.Context, tenantID, psid string) error {
	state := model.StateMenu
	return r.Update(ctx, tenantID, psid, model.SessionPatch{
		State:    &state,
		Cart:     &[]model.CartLine{},
		Checkout: &model.CheckoutState{},
	})
}

var _ model.SessionRepository = (*PostgresSessionRepository)(nil)

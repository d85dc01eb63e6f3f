package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// Hash fields of one session key.
const (
	fieldPSID      = "psid"
	fieldTenant    = "tenant_id"
	fieldState     = "state"
	fieldCart      = "cart_data"
	fieldCheckout  = "checkout_state"
	fieldUpdatedAt = "updated_at"
)

type RedisSessionRepository struct {
	rdb redis.Cmdable
	ttl time.Duration
	now func() time.Time
}

func NewRedisSessionRepository(rdb redis.Cmdable, ttl time.Duration) *RedisSessionRepository {
	return &RedisSessionRepository{rdb: rdb, ttl: ttl, now: time.Now}
}

func (r *RedisSessionRepository) sessionKey(tenantID, psid string) string {
	return fmt.Sprintf("session:%s:%s", tenantID, psid)
}

func (r *RedisSessionRepository) GetOrCreate(ctx context.Context, tenantID, psid string) (*model.Session, error) {
	key := r.sessionKey(tenantID, psid)
	now := r.now().UTC()

	// HSETNX leaves an existing session untouched.
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, fieldPSID, psid)
		p.HSetNX(ctx, key, fieldTenant, tenantID)
		p.HSetNX(ctx, key, fieldState, string(model.StateMenu))
		p.HSetNX(ctx, key, fieldCart, "[]")
		p.HSetNX(ctx, key, fieldCheckout, "{}")
		p.HSetNX(ctx, key, fieldUpdatedAt, now.Format(time.RFC3339Nano))
		r.touch(ctx, p, key)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to ensure session in redis")
		return nil, errx.WrapRedis(err)
	}

	vals, err := r.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to load session from redis")
		return nil, errx.WrapRedis(err)
	}
	return decodeSession(tenantID, psid, vals), nil
}

func (r *RedisSessionRepository) Update(ctx context.Context, tenantID, psid string, patch model.SessionPatch) error {
	if patch.Empty() {
		return nil
	}
	fields, err := encodePatch(patch)
	if err != nil {
		return err
	}
	fields[fieldUpdatedAt] = r.now().UTC().Format(time.RFC3339Nano)

	key := r.sessionKey(tenantID, psid)
	_, err = r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSetNX(ctx, key, fieldPSID, psid)
		p.HSetNX(ctx, key, fieldTenant, tenantID)
		p.HSet(ctx, key, fields)
		r.touch(ctx, p, key)
		return nil
	})
	if err != nil {
		logx.Error().Err(err).Str("key", key).Msg("failed to update session in redis")
		return errx.WrapRedis(err)
	}
	return nil
}

func (r *RedisSessionRepository) Clear(ctx context.Context, tenantID, psid string) error {
	state := model.StateMenu
	return r.Update(ctx, tenantID, psid, model.SessionPatch{
		State:    &state,
		Cart:     &[]model.CartLine{},
		Checkout: &model.CheckoutState{},
	})
}

// touch extends TTL on every write.
func (r *RedisSessionRepository) touch(ctx context.Context, p redis.Pipeliner, key string) {
	if r.ttl > 0 {
		p.Expire(ctx, key, r.ttl)
	}
}

func encodePatch(patch model.SessionPatch) (map[string]any, error) {
	fields := map[string]any{}
	if patch.State != nil {
		fields[fieldState] = string(*patch.State)
	}
	if patch.Cart != nil {
		cart := *patch.Cart
		if cart == nil {
			cart = []model.CartLine{}
		}
		b, err := json.Marshal(cart)
		if err != nil {
			return nil, fmt.Errorf("marshal cart: %w", err)
		}
		fields[fieldCart] = string(b)
	}
	if patch.Checkout != nil {
		b, err := json.Marshal(patch.Checkout)
		if err != nil {
			return nil, fmt.Errorf("marshal checkout: %w", err)
		}
		fields[fieldCheckout] = string(b)
	}
	return fields, nil
}

// decodeSession tolerates damaged fields by resetting them; a session that
// cannot be read must not lock the customer out.
func decodeSession(tenantID, psid string, vals map[string]string) *model.Session {
	s := model.NewSession(tenantID, psid, time.Now().UTC())

	if st := model.State(vals[fieldState]); st.Valid() {
		s.State = st
	} else if vals[fieldState] != "" {
		logx.Warn().Str("psid", psid).Str("state", vals[fieldState]).Msg("unknown session state, resetting to menu")
	}
	if raw := vals[fieldCart]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Cart); err != nil {
			logx.Warn().Err(err).Str("psid", psid).Msg("unreadable cart_data, resetting cart")
			s.Cart = []model.CartLine{}
		}
	}
	if s.Cart == nil {
		s.Cart = []model.CartLine{}
	}
	if raw := vals[fieldCheckout]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &s.Checkout); err != nil {
			logx.Warn().Err(err).Str("psid", psid).Msg("unreadable checkout_state, resetting checkout")
			s.Checkout = model.CheckoutState{}
		}
	}
	if raw := vals[fieldUpdatedAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			s.UpdatedAt = t
		}
	}
	return s
}

var _ model.SessionRepository = (*RedisSessionRepository)(nil)

package observers

import (
	"context"

	einocb "github.com/cloudwego/eino/callbacks"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// NewAllCallbacks logs the lifecycle of every turn-graph node.
func NewAllCallbacks() einocb.Handler {
	return einocb.NewHandlerBuilder().
		OnStartFn(onStart).
		OnEndFn(onEnd).
		OnErrorFn(onError).
		Build()
}

func onStart(ctx context.Context, info *einocb.RunInfo, input einocb.CallbackInput) context.Context {
	if info == nil {
		return ctx
	}
	ev := logx.Debug().Str("node", info.Name).Str("component", string(info.Component))
	if t, ok := input.(*model.Turn); ok && t != nil {
		ev = ev.Str("psid", t.PSID)
	}
	ev.Msg("node start")
	return ctx
}

func onEnd(ctx context.Context, info *einocb.RunInfo, output einocb.CallbackOutput) context.Context {
	if info == nil {
		return ctx
	}
	ev := logx.Debug().Str("node", info.Name)
	if t, ok := output.(*model.Turn); ok && t != nil {
		ev = ev.Int("replies", len(t.Replies))
		if t.Route != "" {
			ev = ev.Str("route", t.Route)
		}
	}
	ev.Msg("node end")
	return ctx
}

func onError(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	logx.Error().Err(err).Str("node", name).Msg("node failed")
	return ctx
}

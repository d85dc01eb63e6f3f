package nodes

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/cart"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/catalog"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/checkout"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/command"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	errx "github.com/Chative-core-poc-v1/orderbot/internal/core/error"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
)

// Node keys of the turn graph.
const (
	NodeLoadSession    = "load_session"
	NodeDecodeCommand  = "decode_command"
	NodeGlobalCommand  = "global_command"
	NodeFormInput      = "form_input"
	NodeDispatch       = "dispatch"
	NodePersistSession = "persist_session"
	NodeDeliverReplies = "deliver_replies"
)

const (
	msgUnknown = "Sorry, I didn't understand that. Here's the menu."
	msgStale   = "That option is no longer available."
)

// TurnState is the graph-local state of one run.
type TurnState struct {
	Trace []string
}

// NewTracePreHandler records that the node named name ran.
func NewTracePreHandler(name string) func(context.Context, *model.Turn, *TurnState) (*model.Turn, error) {
	return func(ctx context.Context, t *model.Turn, s *TurnState) (*model.Turn, error) {
		s.Trace = append(s.Trace, name)
		return t, nil
	}
}

// NewLoadSessionNode attaches the stored session, creating it on first contact.
func NewLoadSessionNode(sessions model.SessionRepository) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		if t.Tenant == nil || t.PSID == "" {
			return nil, fmt.Errorf("turn has no tenant or sender")
		}
		s, err := sessions.GetOrCreate(ctx, t.TenantID(), t.PSID)
		if err != nil {
			return nil, fmt.Errorf("load session: %w", err)
		}
		t.Session = s
		return t, nil
	})
}

// NewDecodeCommandNode decodes the input once. A bare number typed while a
// quantity is being asked counts as that quantity.
func NewDecodeCommandNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		cmd := command.Decode(t.Text, t.Payload)
		if cmd.Kind == command.Unknown && !cmd.FromPayload() && t.Session.State == model.StateSelectingQuantity {
			if n, ok := command.ParseQuantity(cmd.Text); ok {
				cmd.Kind, cmd.N = command.SetQuantity, n
			}
		}
		t.Command = cmd
		logx.Debug().
			Str("psid", t.PSID).
			Str("state", string(t.Session.State)).
			Str("command", cmd.Kind.String()).
			Str("payload", cmd.Payload).
			Msg("decoded command")
		return t, nil
	})
}

// NewRouteCondition picks the handler branch. Global commands win in every
// state; free text during the customer form is a field value.
func NewRouteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, t *model.Turn) (string, error) {
		switch {
		case t.Command.Kind.IsGlobal():
			t.Route = NodeGlobalCommand
		case t.Session.State == model.StateCheckoutCustomer && !t.Command.FromPayload():
			t.Route = NodeFormInput
		default:
			t.Route = NodeDispatch
		}
		return t.Route, nil
	}
}

// NewGlobalCommandNode handles menu, cart and clear from any state.
func NewGlobalCommandNode(browser *catalog.Browser, cb *cart.Builder) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		switch t.Command.Kind {
		case command.ShowMenu:
			dropSelection(t)
			if err := browser.ShowMenu(ctx, t); err != nil {
				return nil, err
			}
		case command.ShowCart:
			dropSelection(t)
			cb.ShowCart(t)
		case command.ClearCart:
			t.Clear()
			t.Reply(messenger.Text("Your cart has been cleared."))
			if err := browser.ShowMenu(ctx, t); err != nil {
				return nil, err
			}
		}
		return t, nil
	})
}

// NewFormInputNode feeds free text to the active checkout field.
func NewFormInputNode(co *checkout.Orchestrator) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		if err := co.FormInput(ctx, t, t.Command.Text); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// NewDispatchNode routes every non-global command to its handler.
func NewDispatchNode(browser *catalog.Browser, cb *cart.Builder, co *checkout.Orchestrator) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		cmd := t.Command
		var err error
		switch cmd.Kind {
		case command.BrowseCategory:
			err = browser.BrowseCategory(ctx, t, cmd.ID)
		case command.ViewItem:
			err = browser.ViewItem(ctx, t, cmd.ID)
		case command.StartItem:
			err = browser.StartItem(ctx, t, cmd.ID)
		case command.SelectVariation:
			err = browser.SelectVariation(ctx, t, cmd.ID)
		case command.SelectAddon:
			err = browser.SelectAddon(ctx, t, cmd.ID)
		case command.AddonsDone:
			err = browser.AddonsDone(ctx, t)
		case command.SetQuantity:
			err = browser.SetQuantity(ctx, t, cmd.N)
		case command.RemoveLine:
			err = cb.RemoveLine(t, cmd.N)
		case command.StartCheckout:
			err = co.Start(ctx, t)
		case command.SelectOrderType:
			err = co.SelectOrderType(ctx, t, cmd.ID)
		case command.SelectPayment:
			err = co.SelectPayment(ctx, t, cmd.ID)
		case command.ConfirmOrder:
			err = co.Confirm(ctx, t)
		case command.CancelCheckout:
			err = co.Cancel(ctx, t)
		default:
			logx.Info().Str("psid", t.PSID).Str("state", string(t.Session.State)).Str("payload", cmd.Payload).Msg("unrecognized input")
			dropSelection(t)
			t.Reply(messenger.Text(msgUnknown))
			err = browser.ShowMenu(ctx, t)
		}
		if errors.Is(err, errx.ErrValidation) {
			logx.Debug().Err(err).Str("psid", t.PSID).Msg("stale option")
			t.Reply(messenger.Text(msgStale))
			cb.ShowCart(t)
			return t, nil
		}
		if err != nil {
			return nil, err
		}
		return t, nil
	})
}

// NewPersistSessionNode writes everything the turn changed in one call. A
// cleared turn that ends back at the menu is stored as a session clear.
func NewPersistSessionNode(sessions model.SessionRepository) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		patch := t.Patch()
		switch {
		case patch.Empty():
		case t.Cleared() && patch.IsReset():
			if err := sessions.Clear(ctx, t.TenantID(), t.PSID); err != nil {
				return nil, fmt.Errorf("clear session: %w", err)
			}
		default:
			if err := sessions.Update(ctx, t.TenantID(), t.PSID, patch); err != nil {
				return nil, fmt.Errorf("persist session: %w", err)
			}
		}
		return t, nil
	})
}

// NewDeliverRepliesNode sends the replies in order. A failed send is logged
// and the rest are still attempted.
func NewDeliverRepliesNode(sender messenger.Sender) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		to := t.Recipient()
		for i, msg := range t.Replies {
			if err := sender.Send(ctx, to, msg); err != nil {
				logx.Error().Err(err).
					Str("psid", t.PSID).
					Int("index", i).
					Str("kind", string(msg.Kind())).
					Msg("failed to send reply")
			}
		}
		return t, nil
	})
}

// NewDeliverRepliesPostHandler logs the path the turn took.
func NewDeliverRepliesPostHandler() func(context.Context, *model.Turn, *TurnState) (*model.Turn, error) {
	return func(ctx context.Context, t *model.Turn, s *TurnState) (*model.Turn, error) {
		logx.Debug().
			Str("psid", t.PSID).
			Strs("trace", s.Trace).
			Int("replies", len(t.Replies)).
			Str("state", string(t.Session.State)).
			Msg("turn complete")
		return t, nil
	}
}

// dropSelection abandons a half-built item when the user leaves the flow.
func dropSelection(t *model.Turn) {
	if t.Session.Checkout.Selection != nil {
		t.Session.Checkout.Selection = nil
		t.SaveCheckout()
	}
}

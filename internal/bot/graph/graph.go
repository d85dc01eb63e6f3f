package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/Chative-core-poc-v1/orderbot/internal/bot/cart"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/catalog"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/checkout"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/graph/nodes"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/graph/observers"
	"github.com/Chative-core-poc-v1/orderbot/internal/bot/model"
	"github.com/Chative-core-poc-v1/orderbot/internal/messenger"
	logx "github.com/Chative-core-poc-v1/orderbot/pkg/logger"
	"github.com/Chative-core-poc-v1/orderbot/pkg/metrics"
)

// Runner runs one conversation turn for an inbound event.
type Runner interface {
	Handle(ctx context.Context, in model.Input) error
}

// Config holds the collaborators of the turn graph. Quoter may be nil.
type Config struct {
	Sessions     model.SessionRepository
	Catalog      model.CatalogRepository
	Orders       model.OrderCreator
	Quoter       model.DeliveryQuoter
	Sender       messenger.Sender
	Conversation model.ConversationConfig
}

func (c *Config) validate() error {
	if c == nil {
		return fmt.Errorf("graph config is nil")
	}
	if c.Sessions == nil || c.Catalog == nil || c.Orders == nil {
		return fmt.Errorf("graph stores are not properly initialized")
	}
	if c.Sender == nil {
		return fmt.Errorf("messenger sender is nil")
	}
	return nil
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config   *Config
	browser  *catalog.Browser
	cart     *cart.Builder
	checkout *checkout.Orchestrator
	graph    *compose.Graph[*model.Turn, *model.Turn]
}

type graphRunner struct {
	runnable compose.Runnable[*model.Turn, *model.Turn]
	now      func() time.Time
}

func (r *graphRunner) Handle(ctx context.Context, in model.Input) error {
	start := time.Now()
	turn := model.NewTurn(in, r.now())

	_, err := r.runnable.Invoke(ctx, turn, compose.WithCallbacks(observers.NewAllCallbacks()))
	metrics.TurnDuration.Observe(time.Since(start).Seconds())

	route := turn.Route
	if route == "" {
		route = "none"
	}
	if err != nil {
		metrics.Turns.WithLabelValues(route, "error").Inc()
		return fmt.Errorf("run turn: %w", err)
	}
	metrics.Turns.WithLabelValues(route, "ok").Inc()
	return nil
}

// BuildRunner builds the turn graph and wraps it in a Runner.
func BuildRunner(ctx context.Context, cfg *Config) (Runner, error) {
	runnable, err := BuildGraph(ctx, cfg)
	if err != nil {
		return nil, err
	}
	logx.Debug().Msg("Turn graph built successfully")
	return &graphRunner{runnable: runnable, now: time.Now}, nil
}

// BuildGraph constructs and returns the compiled turn graph.
func BuildGraph(ctx context.Context, cfg *Config) (compose.Runnable[*model.Turn, *model.Turn], error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	cb := cart.NewBuilder(cfg.Conversation)
	builder := &GraphBuilder{
		config:   cfg,
		cart:     cb,
		browser:  catalog.NewBrowser(cfg.Catalog, cb, cfg.Conversation),
		checkout: checkout.NewOrchestrator(cfg.Catalog, cfg.Orders, cfg.Quoter, cb),
		graph: compose.NewGraph[*model.Turn, *model.Turn](
			compose.WithGenLocalState(func(ctx context.Context) *nodes.TurnState {
				return &nodes.TurnState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph
func (b *GraphBuilder) addNodes() error {
	lambdas := []struct {
		key    string
		lambda *compose.Lambda
		opts   []compose.GraphAddNodeOpt
	}{
		{nodes.NodeLoadSession, nodes.NewLoadSessionNode(b.config.Sessions), nil},
		{nodes.NodeDecodeCommand, nodes.NewDecodeCommandNode(), nil},
		{nodes.NodeGlobalCommand, nodes.NewGlobalCommandNode(b.browser, b.cart), nil},
		{nodes.NodeFormInput, nodes.NewFormInputNode(b.checkout), nil},
		{nodes.NodeDispatch, nodes.NewDispatchNode(b.browser, b.cart, b.checkout), nil},
		{nodes.NodePersistSession, nodes.NewPersistSessionNode(b.config.Sessions), nil},
		{nodes.NodeDeliverReplies, nodes.NewDeliverRepliesNode(b.config.Sender), []compose.GraphAddNodeOpt{
			compose.WithStatePostHandler(nodes.NewDeliverRepliesPostHandler()),
		}},
	}

	for _, l := range lambdas {
		opts := append([]compose.GraphAddNodeOpt{
			compose.WithNodeName(l.key),
			compose.WithStatePreHandler(nodes.NewTracePreHandler(l.key)),
		}, l.opts...)
		if err := b.graph.AddLambdaNode(l.key, l.lambda, opts...); err != nil {
			logx.Error().Err(err).Str("node", l.key).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", l.key, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeLoadSession},
		{nodes.NodeLoadSession, nodes.NodeDecodeCommand},
		{nodes.NodeGlobalCommand, nodes.NodePersistSession},
		{nodes.NodeFormInput, nodes.NodePersistSession},
		{nodes.NodeDispatch, nodes.NodePersistSession},
		{nodes.NodePersistSession, nodes.NodeDeliverReplies},
		{nodes.NodeDeliverReplies, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the routing branch after decoding
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(
		nodes.NewRouteCondition(),
		map[string]bool{
			nodes.NodeGlobalCommand: true,
			nodes.NodeFormInput:     true,
			nodes.NodeDispatch:      true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeDecodeCommand, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.Turn, *model.Turn], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName("turn"),
		compose.WithMaxRunSteps(10),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}

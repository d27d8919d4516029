// Package graph wires the support agent's turn pipeline: classify,
// retrieve, resolve, policy, supervise, compose, with escalation reachable
// from two branch points. One invocation handles exactly one turn.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"

	"github.com/orderdesk-ai/server/internal/agent/graph/nodes"
	"github.com/orderdesk-ai/server/internal/agent/graph/observers"
	"github.com/orderdesk-ai/server/internal/agent/llm"
	"github.com/orderdesk-ai/server/internal/agent/model"
	"github.com/orderdesk-ai/server/internal/agent/policy"
	"github.com/orderdesk-ai/server/internal/agent/resolver"
	"github.com/orderdesk-ai/server/internal/agent/supervisor"
	"github.com/orderdesk-ai/server/internal/auditlog"
	"github.com/orderdesk-ai/server/internal/escalate"
	"github.com/orderdesk-ai/server/internal/metrics"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

const apologyText = "Sorry, something went wrong on our side. Please try again in a moment."

// Runner executes the compiled turn graph with the public TurnInput.
type Runner interface {
	Invoke(ctx context.Context, in model.TurnInput) (*model.TurnResult, error)
}

// Config holds everything needed to compose the full support graph
// end-to-end. This is a convenience layer over GraphConfig that also
// constructs the chat models and the generation/classification wrappers.
type Config struct {
	APIKey  string
	BaseURL string

	NLUModel      model.NLUModelConfig
	ResponseModel model.ResponseModelConfig
	Resolver      model.ResolverConfig
	Policy        model.PolicyConfig
	Supervisor    model.SupervisorConfig
	TopK          int

	OrderStore model.OrderStore
	OrderIndex model.Searcher
	KBIndex    model.Searcher
	Escalate   *escalate.Service
	Metrics    *auditlog.Sink
	Actions    *auditlog.Sink

	// Clock overrides the eligibility anchor; nil derives it from Policy.
	Clock policy.Clock
}

// GraphConfig holds the constructed collaborators the graph nodes run on.
type GraphConfig struct {
	Classifier llm.Classifier
	Generator  llm.Generator
	Resolver   *resolver.Resolver
	Policy     *policy.Engine
	Supervisor *supervisor.Supervisor
	Escalate   *escalate.Service
	OrderIndex model.Searcher
	KBIndex    model.Searcher
	TopK       int
}

// turnEdges is the unconditional part of the turn state machine. The two
// conditional transitions live in addBranches: after Classify (escalate,
// resolve directly, or retrieve first) and after Supervise (escalate or
// compose).
var turnEdges = [][2]string{
	{compose.START, nodes.NodeInit},
	{nodes.NodeInit, nodes.NodeClassify},
	{nodes.NodeRetrieve, nodes.NodeResolveFacts2},
	{nodes.NodeResolveFacts, nodes.NodePolicy},
	{nodes.NodeResolveFacts2, nodes.NodePolicy},
	{nodes.NodePolicy, nodes.NodeSupervise},
	{nodes.NodeEscalate, nodes.NodeCompose},
	{nodes.NodeCompose, compose.END},
}

// GraphBuilder handles the construction of the turn graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnResult]
}

type graphRunner struct {
	runnable compose.Runnable[model.TurnInput, *model.TurnResult]
	metrics  *auditlog.Sink
	actions  *auditlog.Sink
}

// BuildSupportGraph composes the chat models and collaborators, builds the
// graph, and returns a Runner.
func BuildSupportGraph(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.OrderStore == nil {
		return nil, fmt.Errorf("order store is nil")
	}
	if cfg.OrderIndex == nil || cfg.KBIndex == nil {
		return nil, fmt.Errorf("retrieval indexes are not initialized")
	}

	cms, err := llm.NewChatModels(ctx, llm.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		NLUConfig:  &cfg.NLUModel,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		return nil, err
	}

	clock := cfg.Clock
	if clock == nil {
		clock = policy.ClockFromConfig(cfg.Policy, cfg.OrderStore)
	}

	runnable, err := BuildGraph(ctx, &GraphConfig{
		Classifier: llm.NewClassifier(cms, time.Duration(cfg.NLUModel.TimeoutSec)*time.Second),
		Generator:  llm.NewGenerator(cms, time.Duration(cfg.ResponseModel.TimeoutSec)*time.Second),
		Resolver:   resolver.New(cfg.OrderStore, nil, cfg.Resolver),
		Policy:     policy.NewEngine(clock, cfg.Escalate, cfg.Policy),
		Supervisor: supervisor.New(cfg.Supervisor),
		Escalate:   cfg.Escalate,
		OrderIndex: cfg.OrderIndex,
		KBIndex:    cfg.KBIndex,
		TopK:       cfg.TopK,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().Msg("support graph built")
	return &graphRunner{runnable: runnable, metrics: cfg.Metrics, actions: cfg.Actions}, nil
}

// BuildGraph constructs and compiles the turn graph from ready-made
// collaborators. Exposed separately so tests can run the full graph with
// stub classifier/generator implementations.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Classifier == nil || config.Generator == nil {
		return nil, fmt.Errorf("llm calls are not initialized")
	}
	if config.Resolver == nil || config.Policy == nil || config.Supervisor == nil || config.Escalate == nil {
		return nil, fmt.Errorf("graph collaborators are not initialized")
	}
	if config.TopK <= 0 {
		config.TopK = 6
	}

	builder := &GraphBuilder{
		config: config,
		graph:  compose.NewGraph[model.TurnInput, *model.TurnResult](),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes registers every state of the turn state machine. The resolve
// step is registered twice: once for turns that already carry order
// context and once on the post-retrieval path.
func (b *GraphBuilder) addNodes() {
	b.graph.AddLambdaNode(nodes.NodeInit, nodes.NewInitNode())
	b.graph.AddLambdaNode(nodes.NodeClassify, nodes.NewClassifyNode(b.config.Classifier))
	b.graph.AddLambdaNode(nodes.NodeRetrieve, nodes.NewRetrieveNode(b.config.OrderIndex, b.config.KBIndex, b.config.TopK))
	b.graph.AddLambdaNode(nodes.NodeResolveFacts, nodes.NewResolveFactsNode(b.config.Resolver))
	b.graph.AddLambdaNode(nodes.NodeResolveFacts2, nodes.NewResolveFactsNode(b.config.Resolver))
	b.graph.AddLambdaNode(nodes.NodePolicy, nodes.NewPolicyNode(b.config.Policy))
	b.graph.AddLambdaNode(nodes.NodeSupervise, nodes.NewSuperviseNode(b.config.Supervisor))
	b.graph.AddLambdaNode(nodes.NodeEscalate, nodes.NewEscalateNode(b.config.Escalate))
	b.graph.AddLambdaNode(nodes.NodeCompose, nodes.NewComposeNode(b.config.Generator))
}

func (b *GraphBuilder) addEdges() {
	for _, edge := range turnEdges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

func (b *GraphBuilder) addBranches() error {
	classifyBranch := compose.NewGraphBranch(
		nodes.NewClassifyCondition(),
		map[string]bool{
			nodes.NodeEscalate:     true,
			nodes.NodeResolveFacts: true,
			nodes.NodeRetrieve:     true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeClassify, classifyBranch); err != nil {
		return fmt.Errorf("error adding classify branch: %w", err)
	}

	superviseBranch := compose.NewGraphBranch(
		nodes.NewSuperviseCondition(),
		map[string]bool{
			nodes.NodeEscalate: true,
			nodes.NodeCompose:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeSupervise, superviseBranch); err != nil {
		return fmt.Errorf("error adding supervise branch: %w", err)
	}

	return nil
}

func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnResult], error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("graph compiled")
	return runnable, nil
}

// Invoke runs one turn. The caller-facing contract is that the output is
// always populated: any internal fault is caught here and surfaced as a
// generic apology with memory handed back untouched.
func (r *graphRunner) Invoke(ctx context.Context, in model.TurnInput) (res *model.TurnResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().
				Str("conversation_id", in.ConversationID).
				Interface("panic", rec).
				Msg("turn panicked")
			res = fallbackResult(in)
			err = nil
		}
	}()

	out, invokeErr := r.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if invokeErr != nil {
		logx.Error().Err(invokeErr).Str("conversation_id", in.ConversationID).Msg("turn failed")
		return fallbackResult(in), nil
	}
	if out == nil {
		return fallbackResult(in), nil
	}

	if r.actions != nil {
		for _, a := range out.Actions {
			r.actions.AppendAction(a)
		}
	}
	metrics.RecordTurn(r.metrics, in.ConversationID, out)
	return out, nil
}

func fallbackResult(in model.TurnInput) *model.TurnResult {
	mem := in.Memory.Clone()
	mem.BeginTurn()
	return &model.TurnResult{
		Output:  apologyText,
		Intent:  model.IntentGeneral,
		Memory:  mem,
		Timings: map[string]int64{},
	}
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package orchestrator implements the host agent: a task processor that
// routes each user message to a peer agent chosen by a routing policy and
// folds the peer's answer back into the local task.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/client"
	"github.com/go-a2a/a2a-mesh/discovery"
	"github.com/go-a2a/a2a-mesh/server"
)

// Orchestrator delegates user messages to peer agents. It implements
// [server.TaskProcessor], so to its own callers it behaves like any other
// agent: submissions arrive over tasks/send and answers come back as task
// history, whatever happened to the delegated call.
//
// The registry of known agents is owned by the Orchestrator instance. It is
// populated from the discovery client at construction and replaced only by an
// explicit Refresh; it is never ambient state.
type Orchestrator struct {
	discovery *discovery.Client
	policy    RoutingPolicy

	mu         sync.RWMutex
	registry   map[string]*a2a.AgentCard
	connectors map[string]*Connector

	clientOpts []client.Option
	logger     *slog.Logger
	tracer     trace.Tracer
}

var _ server.TaskProcessor = (*Orchestrator)(nil)

// Option represents an option for configuring the [Orchestrator].
type Option func(*Orchestrator)

// WithLogger sets the [*slog.Logger] for the [Orchestrator].
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithTracer sets the [trace.Tracer] for the [Orchestrator].
func WithTracer(tracer trace.Tracer) Option {
	return func(o *Orchestrator) {
		o.tracer = tracer
	}
}

// WithClientOptions sets the client options applied to every connector the
// orchestrator creates, such as a delegation timeout.
func WithClientOptions(opts ...client.Option) Option {
	return func(o *Orchestrator) {
		o.clientOpts = opts
	}
}

// New creates an Orchestrator and populates its registry from disc.
//
// Args:
//
//	ctx: Bounds the initial discovery pass.
//	disc: The discovery client over the configured registry URLs.
//	policy: Decides which agent handles an utterance. Must not be nil.
//	opts: Optional configuration.
//
// Returns:
//
//	An Orchestrator, or an error when a dependency is missing. Peers that
//	could not be discovered are logged and skipped, not fatal.
func New(ctx context.Context, disc *discovery.Client, policy RoutingPolicy, opts ...Option) (*Orchestrator, error) {
	if disc == nil {
		return nil, fmt.Errorf("discovery client is required")
	}
	if policy == nil {
		return nil, fmt.Errorf("routing policy is required")
	}

	o := &Orchestrator{
		discovery:  disc,
		policy:     policy,
		registry:   make(map[string]*a2a.AgentCard),
		connectors: make(map[string]*Connector),
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer("a2a.orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}

	if err := o.Refresh(ctx); err != nil {
		return nil, err
	}
	return o, nil
}

// Refresh re-runs discovery and replaces the registry with the result.
// Connectors for agents that vanished from the registry are dropped.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	o.discovery.Refresh()
	cards, failed := o.discovery.ListAgents(ctx)

	registry := make(map[string]*a2a.AgentCard, len(cards))
	for _, card := range cards {
		registry[card.Name] = card
	}

	o.mu.Lock()
	o.registry = registry
	for name, conn := range o.connectors {
		if _, known := registry[name]; !known {
			conn.Close()
			delete(o.connectors, name)
		}
	}
	o.mu.Unlock()

	o.logger.InfoContext(ctx, "agent registry refreshed",
		"agents", len(registry), "failed", failed)
	return nil
}

// AgentNames returns the names of the known agents, sorted.
func (o *Orchestrator) AgentNames() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	names := make([]string, 0, len(o.registry))
	for name := range o.registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// connector returns the connector for the named agent, creating it on first
// use from the agent's registered card.
func (o *Orchestrator) connector(name string) (*Connector, error) {
	o.mu.RLock()
	conn, ok := o.connectors[name]
	o.mu.RUnlock()
	if ok {
		return conn, nil
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if conn, ok := o.connectors[name]; ok {
		return conn, nil
	}
	card, ok := o.registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown agent %q", name)
	}

	conn, err := NewConnector(name, card.URL, o.clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("connect agent %q: %w", name, err)
	}
	o.connectors[name] = conn
	return conn, nil
}

// Process implements [server.TaskProcessor]. It routes the latest user
// message to a peer agent and mirrors the peer's reply, state, and artifacts
// into the local result.
//
// A delegation failure never escapes as an error: the result is a failed
// state with an explanatory reply, so the orchestrator's caller always gets a
// well-formed task back.
func (o *Orchestrator) Process(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
	ctx, span := o.tracer.Start(ctx, "orchestrator.Process")
	defer span.End()

	utterance := latestUserText(history)
	if utterance == "" {
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage("I can only route text messages. Please send your request as text."),
			State: a2a.TaskStateInputRequired,
		}, nil
	}

	candidates := o.AgentNames()
	name, ok := o.policy.Choose(ctx, utterance, candidates)
	if !ok {
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage(o.noDelegationReply(candidates)),
			State: a2a.TaskStateCompleted,
		}, nil
	}
	span.SetAttributes(attribute.String("a2a.delegate", name))

	conn, err := o.connector(name)
	if err != nil {
		o.logger.WarnContext(ctx, "delegation rejected", "agent", name, "error", err)
		return failedResult(fmt.Sprintf("I could not reach an agent named %q: %v", name, err)), nil
	}

	remote, err := conn.SendTask(ctx, uuid.NewString(), a2a.NewUserTextMessage(utterance))
	if err != nil {
		o.logger.WarnContext(ctx, "delegation failed", "agent", name, "error", err)
		return failedResult(delegationFailureReply(name, err)), nil
	}

	o.logger.InfoContext(ctx, "task delegated",
		"agent", name, "remote_task_id", remote.ID, "remote_state", remote.Status.State)
	return foldRemote(name, remote), nil
}

// foldRemote maps the peer's task snapshot into the local processing result.
func foldRemote(name string, remote *a2a.Task) *server.ProcessResult {
	reply := remoteReply(remote)
	if reply == nil {
		reply = a2a.NewAgentTextMessage(fmt.Sprintf("Agent %q accepted the task but sent no reply.", name))
	}

	state := a2a.TaskStateCompleted
	switch remote.Status.State {
	case a2a.TaskStateInputRequired:
		state = a2a.TaskStateInputRequired
	case a2a.TaskStateFailed:
		state = a2a.TaskStateFailed
	case a2a.TaskStateCanceled:
		state = a2a.TaskStateFailed
	}

	return &server.ProcessResult{
		Reply:     reply,
		State:     state,
		Artifacts: remote.Artifacts,
	}
}

// remoteReply picks the message the peer produced for this exchange: the last
// agent-role history entry, falling back to the status message.
func remoteReply(remote *a2a.Task) *a2a.Message {
	for i := len(remote.History) - 1; i >= 0; i-- {
		if remote.History[i].Role == a2a.RoleAgent {
			return remote.History[i]
		}
	}
	if remote.Status.Message != nil && remote.Status.Message.Role == a2a.RoleAgent {
		return remote.Status.Message
	}
	return nil
}

func failedResult(text string) *server.ProcessResult {
	return &server.ProcessResult{
		Reply: a2a.NewAgentTextMessage(text),
		State: a2a.TaskStateFailed,
	}
}

func delegationFailureReply(name string, err error) string {
	var unreachable *a2a.AgentUnreachableError
	if errors.As(err, &unreachable) {
		return fmt.Sprintf("I could not reach the %q agent to handle your request. Please try again later.", name)
	}

	var remoteErr *a2a.RemoteAgentError
	if errors.As(err, &remoteErr) {
		return fmt.Sprintf("The %q agent declined the request: %s.", name, remoteErr.RemoteMsg)
	}

	return fmt.Sprintf("Delegating your request to the %q agent failed: %v.", name, err)
}

func (o *Orchestrator) noDelegationReply(candidates []string) string {
	if len(candidates) == 0 {
		return "I have no agents to delegate to right now."
	}
	return fmt.Sprintf(
		"I don't know an agent for that request. I can delegate to: %s.",
		strings.Join(candidates, ", "))
}

// latestUserText returns the text of the most recent user message.
func latestUserText(history []*a2a.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == a2a.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

// Close releases every connector the orchestrator created.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for name, conn := range o.connectors {
		if err := conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close connector %q: %w", name, err))
		}
		delete(o.connectors, name)
	}
	return errors.Join(errs...)
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package discovery locates peer agents: it fetches capability manifests
// from a configured set of registry URLs and caches them by source URL.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-json-experiment/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/client"
)

// DefaultFetchTimeout bounds a single card fetch.
const DefaultFetchTimeout = 5 * time.Second

// Client discovers peer agents from an ordered set of registry URLs.
//
// Cards are cached per base URL once fetched; Refresh drops the cache so the
// next fetch hits the network again. A Client is safe for concurrent use.
type Client struct {
	mu       sync.RWMutex
	baseURLs []string
	cache    map[string]*a2a.AgentCard

	httpClient *http.Client
	timeout    time.Duration
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option represents an option for configuring the discovery [Client].
type Option func(*Client)

// WithHTTPClient sets the [*http.Client] used for card fetches.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithFetchTimeout bounds a single card fetch when the caller's context
// carries no deadline.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the [*slog.Logger] for the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithTracer sets the [trace.Tracer] for the [Client].
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		c.tracer = tracer
	}
}

// NewClient creates a discovery Client over the given registry of agent base
// URLs. The registry order is preserved in ListAgents results.
func NewClient(baseURLs []string, opts ...Option) *Client {
	c := &Client{
		baseURLs:   normalize(baseURLs),
		cache:      make(map[string]*a2a.AgentCard),
		httpClient: &http.Client{},
		timeout:    DefaultFetchTimeout,
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer("a2a.discovery"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadRegistry reads a registry file, a JSON array of agent base URLs.
func LoadRegistry(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}

	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", path, err)
	}
	return urls, nil
}

func normalize(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, strings.TrimRight(u, "/"))
		}
	}
	return out
}

// AddAgent appends a base URL to the registry.
func (c *Client) AddAgent(baseURL string) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.baseURLs = append(c.baseURLs, baseURL)
}

// Registry returns the configured base URLs in order.
func (c *Client) Registry() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	urls := make([]string, len(c.baseURLs))
	copy(urls, c.baseURLs)
	return urls
}

// FetchCard fetches the agent card published at baseURL, serving it from the
// cache when it was fetched before.
//
// A network failure yields a [a2a.AgentUnreachableError]; an unparseable or
// invalid card yields a [a2a.InvalidManifestError].
func (c *Client) FetchCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	baseURL = strings.TrimRight(baseURL, "/")

	c.mu.RLock()
	card, ok := c.cache[baseURL]
	c.mu.RUnlock()
	if ok {
		return card, nil
	}

	ctx, span := c.tracer.Start(ctx, "discovery.FetchCard",
		trace.WithAttributes(attribute.String("a2a.agent_url", baseURL)))
	defer span.End()

	resolver := client.NewCardResolver(baseURL,
		client.WithCardHTTPClient(c.httpClient),
		client.WithCardTimeout(c.timeout))
	card, err := resolver.Resolve(ctx)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[baseURL] = card
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "agent discovered",
		"agent", card.Name, "url", baseURL, "skills", len(card.Skills))
	return card, nil
}

// ListAgents fetches the card of every registered agent.
//
// One peer's failure never aborts the batch: it is logged, counted, and
// omitted from the result. The returned count is the number of registry
// entries that could not be resolved.
func (c *Client) ListAgents(ctx context.Context) ([]*a2a.AgentCard, int) {
	ctx, span := c.tracer.Start(ctx, "discovery.ListAgents")
	defer span.End()

	urls := c.Registry()

	var cards []*a2a.AgentCard
	failed := 0
	for _, baseURL := range urls {
		card, err := c.FetchCard(ctx, baseURL)
		if err != nil {
			failed++
			c.logger.WarnContext(ctx, "agent discovery failed", "url", baseURL, "error", err)
			continue
		}
		cards = append(cards, card)
	}

	span.SetAttributes(
		attribute.Int("a2a.discovered", len(cards)),
		attribute.Int("a2a.failed", failed),
	)
	return cards, failed
}

// Refresh drops every cached card so subsequent fetches hit the network.
func (c *Client) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]*a2a.AgentCard)
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-mesh"
)

// CardResolver fetches an agent's capability manifest from its well-known
// path.
type CardResolver struct {
	httpClient *http.Client
	baseURL    string
	timeout    time.Duration
}

// CardResolverOption configures a [CardResolver].
type CardResolverOption func(*CardResolver)

// WithCardHTTPClient sets the [*http.Client] used for card fetches.
func WithCardHTTPClient(hc *http.Client) CardResolverOption {
	return func(r *CardResolver) {
		r.httpClient = hc
	}
}

// WithCardTimeout bounds a single card fetch when the caller's context
// carries no deadline.
func WithCardTimeout(d time.Duration) CardResolverOption {
	return func(r *CardResolver) {
		r.timeout = d
	}
}

// NewCardResolver creates a new CardResolver for the agent at baseURL.
func NewCardResolver(baseURL string, opts ...CardResolverOption) *CardResolver {
	r := &CardResolver{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    DefaultTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve fetches and validates the agent card.
//
// A network failure yields a [a2a.AgentUnreachableError]; a non-2xx answer,
// an undecodable body, or a card that fails validation yields a
// [a2a.InvalidManifestError].
func (r *CardResolver) Resolve(ctx context.Context) (*a2a.AgentCard, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	target := r.baseURL + a2a.AgentCardWellKnownPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, a2a.NewAgentUnreachableError(r.baseURL, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, a2a.NewAgentUnreachableError(r.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, a2a.NewInvalidManifestError(fmt.Sprintf("fetch %s: status %d", target, resp.StatusCode))
	}

	var card a2a.AgentCard
	if err := json.UnmarshalRead(resp.Body, &card); err != nil {
		return nil, a2a.NewInvalidManifestError(fmt.Sprintf("decode %s: %v", target, err))
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}

	return &card, nil
}

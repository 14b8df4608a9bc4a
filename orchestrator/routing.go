// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"slices"
	"strings"
)

// RoutingPolicy decides which agent a user utterance should be delegated to.
//
// Choose receives the utterance and the names of the known agents and returns
// the chosen name. ok is false when the policy declines to delegate; the
// orchestrator then answers directly instead of calling a peer.
type RoutingPolicy interface {
	Choose(ctx context.Context, utterance string, candidates []string) (name string, ok bool)
}

// PolicyFunc adapts a plain function to the [RoutingPolicy] interface.
type PolicyFunc func(ctx context.Context, utterance string, candidates []string) (string, bool)

// Choose implements [RoutingPolicy].
func (f PolicyFunc) Choose(ctx context.Context, utterance string, candidates []string) (string, bool) {
	return f(ctx, utterance, candidates)
}

// KeywordRule maps a keyword to the agent that should handle utterances
// containing it.
type KeywordRule struct {
	// Keyword is matched case-insensitively as a substring of the utterance.
	Keyword string

	// Agent is the name of the agent to delegate to.
	Agent string
}

// KeywordPolicy is a deterministic [RoutingPolicy] driven by a keyword table.
// Rules are checked in order and the first match wins; an utterance matching
// no rule is not delegated. A matched agent that is not among the candidates
// counts as a miss.
type KeywordPolicy struct {
	rules []KeywordRule
}

var _ RoutingPolicy = (*KeywordPolicy)(nil)

// NewKeywordPolicy creates a KeywordPolicy over the given rules.
func NewKeywordPolicy(rules []KeywordRule) *KeywordPolicy {
	return &KeywordPolicy{rules: rules}
}

// DefaultKeywordPolicy covers the demo agents: calendar vocabulary routes to
// calendar_agent.
func DefaultKeywordPolicy() *KeywordPolicy {
	return NewKeywordPolicy([]KeywordRule{
		{Keyword: "meeting", Agent: "calendar_agent"},
		{Keyword: "schedule", Agent: "calendar_agent"},
		{Keyword: "calendar", Agent: "calendar_agent"},
		{Keyword: "available", Agent: "calendar_agent"},
		{Keyword: "availability", Agent: "calendar_agent"},
		{Keyword: "event", Agent: "calendar_agent"},
	})
}

// Choose implements [RoutingPolicy].
func (p *KeywordPolicy) Choose(ctx context.Context, utterance string, candidates []string) (string, bool) {
	lowered := strings.ToLower(utterance)
	for _, rule := range p.rules {
		if !strings.Contains(lowered, strings.ToLower(rule.Keyword)) {
			continue
		}
		if !slices.Contains(candidates, rule.Agent) {
			continue
		}
		return rule.Agent, true
	}
	return "", false
}

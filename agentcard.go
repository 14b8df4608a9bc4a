// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

const (
	// AgentCardWellKnownPath is the well-known path for the agent card.
	AgentCardWellKnownPath = "/.well-known/agent.json"

	// DefaultRPCPath is the path of the JSON-RPC endpoint.
	DefaultRPCPath = "/"
)

// AgentCapabilities declares the optional protocol features an agent
// supports.
type AgentCapabilities struct {
	// Streaming indicates support for tasks/sendSubscribe.
	Streaming bool `json:"streaming"`

	// PushNotifications indicates support for push notification delivery.
	PushNotifications bool `json:"pushNotifications"`

	// StateTransitionHistory indicates the agent records state transition
	// history on its tasks.
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// AgentSkill describes one capability of an agent, advertised through its
// card so that callers and routing layers can decide what to delegate.
type AgentSkill struct {
	// ID is the unique identifier of the skill.
	ID string `json:"id"`

	// Name is the human-readable skill name.
	Name string `json:"name"`

	// Description explains what the skill does.
	Description string `json:"description,omitzero"`

	// Tags are keywords for matching the skill against intents.
	Tags []string `json:"tags,omitzero"`

	// Examples are sample utterances the skill can handle.
	Examples []string `json:"examples,omitzero"`

	// InputModes lists accepted content types, overriding the card default.
	InputModes []string `json:"inputModes,omitzero"`

	// OutputModes lists produced content types, overriding the card default.
	OutputModes []string `json:"outputModes,omitzero"`
}

// AgentCard is the capability manifest an agent publishes under
// [AgentCardWellKnownPath]. Cards are immutable once fetched; the discovery
// layer caches them by source URL.
type AgentCard struct {
	// Name is the unique human-readable identifier of the agent.
	Name string `json:"name"`

	// Description explains what the agent does.
	Description string `json:"description,omitzero"`

	// URL is the base endpoint the agent serves the A2A protocol on.
	URL string `json:"url"`

	// Version is the agent implementation version.
	Version string `json:"version"`

	// Capabilities declares supported optional protocol features.
	Capabilities AgentCapabilities `json:"capabilities"`

	// DefaultInputModes lists the content types the agent accepts.
	DefaultInputModes []string `json:"defaultInputModes,omitzero"`

	// DefaultOutputModes lists the content types the agent produces.
	DefaultOutputModes []string `json:"defaultOutputModes,omitzero"`

	// Skills is the ordered list of skills the agent advertises.
	Skills []AgentSkill `json:"skills,omitzero"`
}

// Validate reports whether the card carries the fields every consumer
// depends on.
func (c *AgentCard) Validate() error {
	if c.Name == "" {
		return NewInvalidManifestError("missing name")
	}
	if c.URL == "" {
		return NewInvalidManifestError("missing url")
	}
	return nil
}

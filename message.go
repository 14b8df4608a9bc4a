// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"strings"
)

// Role represents the role of a message sender.
type Role string

const (
	// RoleUser marks a message submitted by the caller.
	RoleUser Role = "user"

	// RoleAgent marks a message produced by the agent.
	RoleAgent Role = "agent"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAgent
}

// PartType discriminates the content type of a [Part].
type PartType string

const (
	// PartTypeText is plain text content.
	PartTypeText PartType = "text"

	// PartTypeData is structured JSON content.
	PartTypeData PartType = "data"
)

// Part is one typed piece of message or artifact content.
//
// The Type field selects which of the remaining fields is meaningful:
// Text for [PartTypeText], Data for [PartTypeData].
type Part struct {
	// Type discriminates the content kind.
	Type PartType `json:"type"`

	// Text is the payload of a text part.
	Text string `json:"text,omitzero"`

	// Data is the payload of a data part.
	Data map[string]any `json:"data,omitzero"`

	// Metadata carries optional part metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTextPart returns a text part with the given payload.
func NewTextPart(text string) Part {
	return Part{
		Type: PartTypeText,
		Text: text,
	}
}

// NewDataPart returns a data part with the given payload.
func NewDataPart(data map[string]any) Part {
	return Part{
		Type: PartTypeData,
		Data: data,
	}
}

// Clone returns a deep copy of the part.
func (p Part) Clone() Part {
	clone := Part{
		Type:     p.Type,
		Text:     p.Text,
		Data:     cloneMetadata(p.Data),
		Metadata: cloneMetadata(p.Metadata),
	}
	return clone
}

// Message is one turn of a conversation. Messages are immutable once
// created; a message appended to a task history is never modified.
type Message struct {
	// Role identifies the sender, user or agent.
	Role Role `json:"role"`

	// Parts is the ordered message content. A well-formed message carries
	// at least one part.
	Parts []Part `json:"parts"`

	// Metadata carries optional message metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewUserTextMessage creates a user message with a single text part.
//
// Args:
//   - text: the text content of the message.
//
// Returns:
//   - A Message with role "user".
func NewUserTextMessage(text string) *Message {
	return &Message{
		Role:  RoleUser,
		Parts: []Part{NewTextPart(text)},
	}
}

// NewAgentTextMessage creates an agent message with a single text part.
//
// Args:
//   - text: the text content of the message.
//
// Returns:
//   - A Message with role "agent".
func NewAgentTextMessage(text string) *Message {
	return &Message{
		Role:  RoleAgent,
		Parts: []Part{NewTextPart(text)},
	}
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}

	clone := &Message{
		Role:     m.Role,
		Metadata: cloneMetadata(m.Metadata),
	}
	if m.Parts != nil {
		clone.Parts = make([]Part, len(m.Parts))
		for i, p := range m.Parts {
			clone.Parts[i] = p.Clone()
		}
	}
	return clone
}

// TextParts returns the payloads of all text parts, in order.
func (m *Message) TextParts() []string {
	if m == nil {
		return nil
	}
	var texts []string
	for _, p := range m.Parts {
		if p.Type == PartTypeText {
			texts = append(texts, p.Text)
		}
	}
	return texts
}

// Text joins the payloads of all text parts with newlines. It returns the
// empty string when the message has no text content.
func (m *Message) Text() string {
	return strings.Join(m.TextParts(), "\n")
}

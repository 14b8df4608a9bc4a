// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a implements the Agent-to-Agent (A2A) task protocol: the JSON-RPC
// request/response contract, the task state machine, and the entities shared
// by A2A servers and clients.
//
// An agent publishes an [AgentCard] under /.well-known/agent.json, accepts
// [Task] submissions through the tasks/send method, and answers re-queries
// through tasks/get. The server side lives in the server package, the client
// side in the client package, and multi-agent discovery and delegation in the
// discovery and orchestrator packages.
package a2a

import (
	"time"

	"github.com/google/uuid"
)

// Version is the version of the A2A protocol implemented by this module.
const Version = "0.1.0"

// TaskState represents the lifecycle state of a task.
type TaskState string

const (
	// TaskStateSubmitted is the initial state of a task that has been
	// received but not yet picked up for processing.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is actively being processed.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the agent needs a follow-up message
	// from the caller before processing can continue.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task finished successfully.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the task finished unsuccessfully.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task was canceled before completion.
	TaskStateCanceled TaskState = "canceled"
)

// Terminal reports whether the state is absorbing. A task in a terminal
// state accepts no further submissions.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known task states.
func (s TaskState) Valid() bool {
	switch s {
	case TaskStateSubmitted, TaskStateWorking, TaskStateInputRequired,
		TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// TaskStatus captures the current state of a task together with the message
// that produced the latest transition.
type TaskStatus struct {
	// State is the current lifecycle state.
	State TaskState `json:"state"`

	// Message is the message associated with the latest transition, if any.
	Message *Message `json:"message,omitzero"`

	// Timestamp records when the transition happened, in UTC.
	Timestamp time.Time `json:"timestamp"`
}

// NewTaskStatus returns a TaskStatus for state with the transition message
// msg (which may be nil) and the current time.
func NewTaskStatus(state TaskState, msg *Message) TaskStatus {
	return TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
}

// Artifact is a structured output produced while processing a task.
type Artifact struct {
	// Name is the artifact name.
	Name string `json:"name,omitzero"`

	// Description describes the artifact contents.
	Description string `json:"description,omitzero"`

	// Parts is the ordered content of the artifact.
	Parts []Part `json:"parts"`

	// Index orders artifacts within a task.
	Index int `json:"index"`

	// Metadata carries optional artifact metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Task is the unit of work exchanged between agents and the full record of
// its processing.
//
// A Task is owned exclusively by the task manager that created it. Its ID is
// immutable after creation, its History never shrinks or reorders, and its
// Status only moves forward through the state machine.
type Task struct {
	// ID is the caller-supplied task identifier, unique within a store.
	ID string `json:"id"`

	// SessionID groups related tasks across submissions. Generated by the
	// server when the caller does not supply one.
	SessionID string `json:"sessionId,omitzero"`

	// Status is the current status of the task.
	Status TaskStatus `json:"status"`

	// History is the append-only conversation, oldest first. Every accepted
	// submission and every produced agent reply is appended here.
	History []*Message `json:"history,omitzero"`

	// Artifacts are the structured outputs produced while processing.
	Artifacts []*Artifact `json:"artifacts,omitzero"`

	// Metadata carries optional task metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// NewTask creates a task in the submitted state.
//
// Args:
//   - id: caller-supplied task identifier. A random UUID is generated when empty.
//   - sessionID: session identifier. A random UUID is generated when empty.
//   - msg: the initial submission, recorded as the first history entry.
//
// Returns:
//   - The new task, never nil.
func NewTask(id, sessionID string, msg *Message) *Task {
	if id == "" {
		id = uuid.NewString()
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	t := &Task{
		ID:        id,
		SessionID: sessionID,
		Status:    NewTaskStatus(TaskStateSubmitted, nil),
	}
	if msg != nil {
		t.History = append(t.History, msg)
	}
	return t
}

// Clone returns a deep copy of the task. Mutating the copy, including its
// history, status message, and artifacts, never affects the original.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}

	clone := &Task{
		ID:        t.ID,
		SessionID: t.SessionID,
		Status: TaskStatus{
			State:     t.Status.State,
			Message:   t.Status.Message.Clone(),
			Timestamp: t.Status.Timestamp,
		},
		Metadata: cloneMetadata(t.Metadata),
	}

	if t.History != nil {
		clone.History = make([]*Message, len(t.History))
		for i, msg := range t.History {
			clone.History[i] = msg.Clone()
		}
	}
	if t.Artifacts != nil {
		clone.Artifacts = make([]*Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			clone.Artifacts[i] = a.Clone()
		}
	}

	return clone
}

// Clone returns a deep copy of the artifact.
func (a *Artifact) Clone() *Artifact {
	if a == nil {
		return nil
	}

	clone := &Artifact{
		Name:        a.Name,
		Description: a.Description,
		Index:       a.Index,
		Metadata:    cloneMetadata(a.Metadata),
	}
	if a.Parts != nil {
		clone.Parts = make([]Part, len(a.Parts))
		for i, p := range a.Parts {
			clone.Parts[i] = p.Clone()
		}
	}
	return clone
}

// TrimHistory returns the last n history entries, or the full history when
// n is negative. n == 0 yields an empty history.
func (t *Task) TrimHistory(n int) []*Message {
	if n < 0 || n >= len(t.History) {
		return t.History
	}
	return t.History[len(t.History)-n:]
}

func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}
	return clone
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"

	a2a "github.com/go-a2a/a2a-mesh"
)

// TaskStore defines the persistence contract for tasks. It is the single
// source of truth: every read returns a deep-copied snapshot, so callers can
// never corrupt stored history by mutating a returned value.
//
// Implementations must serialize mutations to the same task id while letting
// mutations on different ids proceed independently. The in-memory store is
// the default; DatabaseTaskStore substitutes a durable backend without
// touching the task manager or the protocol server.
type TaskStore interface {
	// Create persists a new task. It fails with a TaskConflictError if the
	// task id already exists. Returns a snapshot of the stored task.
	Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error)

	// Get retrieves a task snapshot by id. It fails with a
	// TaskNotFoundError if the id is unknown.
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// AppendMessage appends one message to the task history. It fails with
	// a TaskNotFoundError if the id is unknown.
	AppendMessage(ctx context.Context, taskID string, msg *a2a.Message) error

	// SetStatus replaces the task status. It fails with a
	// TaskNotFoundError if the id is unknown.
	SetStatus(ctx context.Context, taskID string, status a2a.TaskStatus) error

	// Update runs fn inside the per-id critical section, so the whole
	// read-modify-write is atomic with respect to other mutations of the
	// same task. fn receives the stored task and may mutate it in place;
	// returning an error aborts the update and leaves the task unchanged.
	// Returns a snapshot of the task after the update.
	//
	// fn must not block on network I/O: the critical section is held for
	// its full duration.
	Update(ctx context.Context, taskID string, fn func(*a2a.Task) error) (*a2a.Task, error)

	// Initialize prepares the storage backend for use.
	Initialize(ctx context.Context) error

	// Close cleanly shuts down the storage backend.
	Close(ctx context.Context) error
}

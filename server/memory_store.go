// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"sync"

	a2a "github.com/go-a2a/a2a-mesh"
)

// InMemoryTaskStore is an in-memory implementation of [TaskStore]. Task data
// is lost when the process stops; this is an explicit policy choice for the
// default store.
//
// A per-id mutex serializes mutations to the same task while mutations on
// different ids proceed without shared lock contention. The outer RWMutex
// only guards the maps themselves.
type InMemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
	locks map[string]*sync.Mutex
}

var _ TaskStore = (*InMemoryTaskStore)(nil)

// NewInMemoryTaskStore creates a new InMemoryTaskStore.
func NewInMemoryTaskStore() *InMemoryTaskStore {
	return &InMemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
		locks: make(map[string]*sync.Mutex),
	}
}

// Create persists a new task.
func (s *InMemoryTaskStore) Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if task == nil || task.ID == "" {
		return nil, a2a.NewInvalidParamsError("missing task id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return nil, a2a.NewTaskConflictError(task.ID)
	}

	// Store a private copy so later caller mutations cannot reach it.
	s.tasks[task.ID] = task.Clone()
	s.locks[task.ID] = &sync.Mutex{}

	return task.Clone(), nil
}

// Get retrieves a task snapshot by id.
func (s *InMemoryTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, exists := s.tasks[taskID]
	if !exists {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}
	return task.Clone(), nil
}

// AppendMessage appends one message to the task history.
func (s *InMemoryTaskStore) AppendMessage(ctx context.Context, taskID string, msg *a2a.Message) error {
	_, err := s.Update(ctx, taskID, func(task *a2a.Task) error {
		task.History = append(task.History, msg.Clone())
		return nil
	})
	return err
}

// SetStatus replaces the task status.
func (s *InMemoryTaskStore) SetStatus(ctx context.Context, taskID string, status a2a.TaskStatus) error {
	_, err := s.Update(ctx, taskID, func(task *a2a.Task) error {
		task.Status = status
		return nil
	})
	return err
}

// Update runs fn inside the per-id critical section.
func (s *InMemoryTaskStore) Update(ctx context.Context, taskID string, fn func(*a2a.Task) error) (*a2a.Task, error) {
	s.mu.RLock()
	lock, exists := s.locks[taskID]
	s.mu.RUnlock()

	if !exists {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}

	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	task, exists := s.tasks[taskID]
	s.mu.RUnlock()
	if !exists {
		return nil, a2a.NewTaskNotFoundError(taskID)
	}

	// Mutate a copy so an aborted update leaves the stored task untouched.
	updated := task.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.tasks[taskID] = updated
	s.mu.Unlock()

	return updated.Clone(), nil
}

// Initialize prepares the in-memory storage for use.
func (s *InMemoryTaskStore) Initialize(ctx context.Context) error {
	return nil
}

// Close cleanly shuts down the in-memory storage.
func (s *InMemoryTaskStore) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*a2a.Task)
	s.locks = make(map[string]*sync.Mutex)
	return nil
}

// Size returns the current number of stored tasks. Useful for tests and
// monitoring.
func (s *InMemoryTaskStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.tasks)
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-mesh"
)

// DatabaseTaskStore is a database implementation of [TaskStore] using GORM.
// Tasks are stored as rows of [TaskRecord] with structured fields serialized
// into JSON columns.
//
// A process-local per-id mutex serializes Update callbacks; the surrounding
// database transaction keeps each read-modify-write atomic.
type DatabaseTaskStore struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// NewDatabaseTaskStore creates a new DatabaseTaskStore.
//
// Args:
//
//	db: An open GORM database handle. Must not be nil.
//
// Returns:
//
//	A DatabaseTaskStore ready for Initialize.
func NewDatabaseTaskStore(db *gorm.DB) (*DatabaseTaskStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	return &DatabaseTaskStore{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

func (s *DatabaseTaskStore) lockFor(taskID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[taskID]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[taskID] = lock
	}
	return lock
}

// Create persists a new task row.
func (s *DatabaseTaskStore) Create(ctx context.Context, task *a2a.Task) (*a2a.Task, error) {
	if task == nil || task.ID == "" {
		return nil, a2a.NewInvalidParamsError("missing task id")
	}

	record := NewTaskRecord(task)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing TaskRecord
		err := tx.Where("id = ?", task.ID).First(&existing).Error
		switch {
		case err == nil:
			return a2a.NewTaskConflictError(task.ID)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("lookup task %s: %w", task.ID, err)
		}
		return tx.Create(record).Error
	})
	if err != nil {
		// The primary key constraint backstops the existence check under
		// concurrent creates.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, a2a.NewTaskConflictError(task.ID)
		}
		return nil, err
	}

	return record.Task(), nil
}

// Get retrieves a task snapshot by id.
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	var record TaskRecord
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.NewTaskNotFoundError(taskID)
		}
		return nil, fmt.Errorf("lookup task %s: %w", taskID, err)
	}
	return record.Task(), nil
}

// AppendMessage appends one message to the task history.
func (s *DatabaseTaskStore) AppendMessage(ctx context.Context, taskID string, msg *a2a.Message) error {
	_, err := s.Update(ctx, taskID, func(task *a2a.Task) error {
		task.History = append(task.History, msg.Clone())
		return nil
	})
	return err
}

// SetStatus replaces the task status.
func (s *DatabaseTaskStore) SetStatus(ctx context.Context, taskID string, status a2a.TaskStatus) error {
	_, err := s.Update(ctx, taskID, func(task *a2a.Task) error {
		task.Status = status
		return nil
	})
	return err
}

// Update runs fn inside the per-id critical section.
func (s *DatabaseTaskStore) Update(ctx context.Context, taskID string, fn func(*a2a.Task) error) (*a2a.Task, error) {
	lock := s.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()

	var updated *a2a.Task
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record TaskRecord
		if err := tx.Where("id = ?", taskID).First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return a2a.NewTaskNotFoundError(taskID)
			}
			return fmt.Errorf("lookup task %s: %w", taskID, err)
		}

		task := record.Task()
		if err := fn(task); err != nil {
			return err
		}

		next := NewTaskRecord(task)
		next.CreatedAt = record.CreatedAt
		if err := tx.Save(next).Error; err != nil {
			return fmt.Errorf("save task %s: %w", taskID, err)
		}

		updated = task
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Initialize prepares the database schema for use.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&TaskRecord{}); err != nil {
		return fmt.Errorf("migrate task table: %w", err)
	}
	return nil
}

// Close cleanly shuts down the database store.
func (s *DatabaseTaskStore) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("unwrap database handle: %w", err)
	}
	return sqlDB.Close()
}

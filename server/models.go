// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-mesh"
)

// TaskStatusJSON stores a [a2a.TaskStatus] as a JSON database column.
type TaskStatusJSON struct {
	a2a.TaskStatus
}

// Value implements the driver.Valuer interface for database storage.
func (ts TaskStatusJSON) Value() (driver.Value, error) {
	if ts.TaskStatus == (a2a.TaskStatus{}) {
		return nil, nil
	}
	return json.Marshal(ts.TaskStatus)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (ts *TaskStatusJSON) Scan(value any) error {
	if value == nil {
		*ts = TaskStatusJSON{}
		return nil
	}

	bytes, err := scanBytes(value, "TaskStatusJSON")
	if err != nil {
		return err
	}

	var status a2a.TaskStatus
	if err := json.Unmarshal(bytes, &status); err != nil {
		return fmt.Errorf("cannot unmarshal TaskStatusJSON: %w", err)
	}

	ts.TaskStatus = status
	return nil
}

// MessageSliceJSON stores a message history as a JSON database column.
type MessageSliceJSON struct {
	Messages []*a2a.Message
}

// Value implements the driver.Valuer interface for database storage.
func (ms MessageSliceJSON) Value() (driver.Value, error) {
	if ms.Messages == nil {
		return nil, nil
	}
	return json.Marshal(ms.Messages)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (ms *MessageSliceJSON) Scan(value any) error {
	if value == nil {
		*ms = MessageSliceJSON{}
		return nil
	}

	bytes, err := scanBytes(value, "MessageSliceJSON")
	if err != nil {
		return err
	}

	var messages []*a2a.Message
	if err := json.Unmarshal(bytes, &messages); err != nil {
		return fmt.Errorf("cannot unmarshal MessageSliceJSON: %w", err)
	}

	ms.Messages = messages
	return nil
}

// ArtifactSliceJSON stores task artifacts as a JSON database column.
type ArtifactSliceJSON struct {
	Artifacts []*a2a.Artifact
}

// Value implements the driver.Valuer interface for database storage.
func (as ArtifactSliceJSON) Value() (driver.Value, error) {
	if as.Artifacts == nil {
		return nil, nil
	}
	return json.Marshal(as.Artifacts)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (as *ArtifactSliceJSON) Scan(value any) error {
	if value == nil {
		*as = ArtifactSliceJSON{}
		return nil
	}

	bytes, err := scanBytes(value, "ArtifactSliceJSON")
	if err != nil {
		return err
	}

	var artifacts []*a2a.Artifact
	if err := json.Unmarshal(bytes, &artifacts); err != nil {
		return fmt.Errorf("cannot unmarshal ArtifactSliceJSON: %w", err)
	}

	as.Artifacts = artifacts
	return nil
}

// MetadataJSON stores an open-ended metadata map as a JSON database column.
type MetadataJSON struct {
	Metadata map[string]any
}

// Value implements the driver.Valuer interface for database storage.
func (m MetadataJSON) Value() (driver.Value, error) {
	if m.Metadata == nil {
		return nil, nil
	}
	return json.Marshal(m.Metadata)
}

// Scan implements the sql.Scanner interface for database retrieval.
func (m *MetadataJSON) Scan(value any) error {
	if value == nil {
		*m = MetadataJSON{}
		return nil
	}

	bytes, err := scanBytes(value, "MetadataJSON")
	if err != nil {
		return err
	}

	var meta map[string]any
	if err := json.Unmarshal(bytes, &meta); err != nil {
		return fmt.Errorf("cannot unmarshal MetadataJSON: %w", err)
	}

	m.Metadata = meta
	return nil
}

func scanBytes(value any, column string) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return nil, fmt.Errorf("cannot scan %T into %s", value, column)
	}
}

// TaskRecord is the database row shape for a persisted task. Structured
// fields are kept as JSON columns so the row survives protocol type changes
// without schema migrations.
type TaskRecord struct {
	ID        string            `gorm:"primaryKey;size:64"`
	SessionID string            `gorm:"size:64;index"`
	Status    TaskStatusJSON    `gorm:"type:json"`
	History   MessageSliceJSON  `gorm:"type:json"`
	Artifacts ArtifactSliceJSON `gorm:"type:json"`
	Metadata  MetadataJSON      `gorm:"type:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the TaskRecord.
func (TaskRecord) TableName() string {
	return "tasks"
}

// BeforeCreate is a GORM hook called before creating a record.
func (r *TaskRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		return fmt.Errorf("task record missing id")
	}
	return nil
}

// BeforeUpdate is a GORM hook called before updating a record.
func (r *TaskRecord) BeforeUpdate(tx *gorm.DB) error {
	if r.ID == "" {
		return fmt.Errorf("task record missing id")
	}
	return nil
}

// NewTaskRecord converts a task into its database row shape.
//
// Args:
//
//	task: The task to convert. Must not be nil.
//
// Returns:
//
//	A TaskRecord holding a deep copy of the task.
func NewTaskRecord(task *a2a.Task) *TaskRecord {
	snapshot := task.Clone()
	return &TaskRecord{
		ID:        snapshot.ID,
		SessionID: snapshot.SessionID,
		Status:    TaskStatusJSON{snapshot.Status},
		History:   MessageSliceJSON{Messages: snapshot.History},
		Artifacts: ArtifactSliceJSON{Artifacts: snapshot.Artifacts},
		Metadata:  MetadataJSON{Metadata: snapshot.Metadata},
	}
}

// Task converts the record back into a protocol task.
func (r *TaskRecord) Task() *a2a.Task {
	task := &a2a.Task{
		ID:        r.ID,
		SessionID: r.SessionID,
		Status:    r.Status.TaskStatus,
		History:   r.History.Messages,
		Artifacts: r.Artifacts.Artifacts,
		Metadata:  r.Metadata.Metadata,
	}
	return task.Clone()
}

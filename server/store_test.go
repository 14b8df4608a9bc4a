// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	gocmp "github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/server"
)

// newStores returns one store per implementation, each initialized and
// cleaned up with the test.
func newStores(t *testing.T) map[string]server.TaskStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tasks.db")), &gorm.Config{
		Logger: logger.Discard,
	})
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap database handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	dbStore, err := server.NewDatabaseTaskStore(db)
	if err != nil {
		t.Fatalf("NewDatabaseTaskStore: %v", err)
	}

	stores := map[string]server.TaskStore{
		"memory":   server.NewInMemoryTaskStore(),
		"database": dbStore,
	}
	for name, store := range stores {
		if err := store.Initialize(context.Background()); err != nil {
			t.Fatalf("initialize %s store: %v", name, err)
		}
	}
	t.Cleanup(func() {
		for _, store := range stores {
			store.Close(context.Background())
		}
	})

	return stores
}

func newStoredTask(t *testing.T, store server.TaskStore, id string) *a2a.Task {
	t.Helper()

	task := a2a.NewTask(id, "session-1", a2a.NewUserTextMessage("hello"))
	created, err := store.Create(context.Background(), task)
	if err != nil {
		t.Fatalf("Create(%s): %v", id, err)
	}
	return created
}

func TestTaskStoreCreateAndGet(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			created := newStoredTask(t, store, "t1")

			got, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if diff := gocmp.Diff(created, got); diff != "" {
				t.Errorf("Get mismatch (-created +got):\n%s", diff)
			}
			if got.Status.State != a2a.TaskStateSubmitted {
				t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateSubmitted)
			}
		})
	}
}

func TestTaskStoreCreateConflict(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			_, err := store.Create(context.Background(), a2a.NewTask("t1", "other", a2a.NewUserTextMessage("again")))
			var conflict *a2a.TaskConflictError
			if !errors.As(err, &conflict) {
				t.Fatalf("Create duplicate = %v, want TaskConflictError", err)
			}
		})
	}
}

func TestTaskStoreGetNotFound(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), "missing")
			var notFound *a2a.TaskNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("Get(missing) = %v, want TaskNotFoundError", err)
			}
		})
	}
}

func TestTaskStoreSnapshotIsolation(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			first, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			first.History[0].Parts[0].Text = "corrupted"
			first.History = append(first.History, a2a.NewAgentTextMessage("injected"))

			second, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(second.History) != 1 {
				t.Fatalf("history length = %d, want 1", len(second.History))
			}
			if got := second.History[0].Text(); got != "hello" {
				t.Errorf("history[0] = %q, want %q", got, "hello")
			}
		})
	}
}

func TestTaskStoreAppendMessageOrder(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			for i := range 5 {
				msg := a2a.NewAgentTextMessage(fmt.Sprintf("reply %d", i))
				if err := store.AppendMessage(context.Background(), "t1", msg); err != nil {
					t.Fatalf("AppendMessage(%d): %v", i, err)
				}
			}

			got, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got.History) != 6 {
				t.Fatalf("history length = %d, want 6", len(got.History))
			}
			for i := range 5 {
				want := fmt.Sprintf("reply %d", i)
				if text := got.History[i+1].Text(); text != want {
					t.Errorf("history[%d] = %q, want %q", i+1, text, want)
				}
			}
		})
	}
}

func TestTaskStoreSetStatus(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			status := a2a.NewTaskStatus(a2a.TaskStateCompleted, a2a.NewAgentTextMessage("done"))
			if err := store.SetStatus(context.Background(), "t1", status); err != nil {
				t.Fatalf("SetStatus: %v", err)
			}

			got, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if got.Status.State != a2a.TaskStateCompleted {
				t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateCompleted)
			}
			if got.Status.Message == nil || got.Status.Message.Text() != "done" {
				t.Errorf("status message = %v, want %q", got.Status.Message, "done")
			}
		})
	}
}

func TestTaskStoreUpdateAbortLeavesTaskUntouched(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			wantErr := errors.New("abort")
			_, err := store.Update(context.Background(), "t1", func(task *a2a.Task) error {
				task.History = append(task.History, a2a.NewAgentTextMessage("should not persist"))
				task.Status = a2a.NewTaskStatus(a2a.TaskStateFailed, nil)
				return wantErr
			})
			if !errors.Is(err, wantErr) {
				t.Fatalf("Update = %v, want %v", err, wantErr)
			}

			got, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got.History) != 1 {
				t.Errorf("history length = %d, want 1", len(got.History))
			}
			if got.Status.State != a2a.TaskStateSubmitted {
				t.Errorf("state = %q, want %q", got.Status.State, a2a.TaskStateSubmitted)
			}
		})
	}
}

func TestTaskStoreConcurrentAppendsSameID(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			newStoredTask(t, store, "t1")

			const workers = 16
			var wg sync.WaitGroup
			for i := range workers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					msg := a2a.NewAgentTextMessage(fmt.Sprintf("concurrent %d", i))
					if err := store.AppendMessage(context.Background(), "t1", msg); err != nil {
						t.Errorf("AppendMessage(%d): %v", i, err)
					}
				}()
			}
			wg.Wait()

			got, err := store.Get(context.Background(), "t1")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if len(got.History) != workers+1 {
				t.Fatalf("history length = %d, want %d", len(got.History), workers+1)
			}

			seen := make(map[string]bool, workers)
			for _, msg := range got.History[1:] {
				seen[msg.Text()] = true
			}
			if len(seen) != workers {
				t.Errorf("distinct appended messages = %d, want %d", len(seen), workers)
			}
		})
	}
}

func TestTaskStoreConcurrentMutationsDistinctIDs(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			const tasks = 8
			for i := range tasks {
				newStoredTask(t, store, fmt.Sprintf("t%d", i))
			}

			var wg sync.WaitGroup
			for i := range tasks {
				wg.Add(1)
				go func() {
					defer wg.Done()
					id := fmt.Sprintf("t%d", i)
					for j := range 4 {
						msg := a2a.NewAgentTextMessage(fmt.Sprintf("msg %d", j))
						if err := store.AppendMessage(context.Background(), id, msg); err != nil {
							t.Errorf("AppendMessage(%s, %d): %v", id, j, err)
						}
					}
				}()
			}
			wg.Wait()

			for i := range tasks {
				id := fmt.Sprintf("t%d", i)
				got, err := store.Get(context.Background(), id)
				if err != nil {
					t.Fatalf("Get(%s): %v", id, err)
				}
				if len(got.History) != 5 {
					t.Errorf("task %s history length = %d, want 5", id, len(got.History))
				}
			}
		})
	}
}

func TestTaskStoreUpdateUnknownID(t *testing.T) {
	t.Parallel()

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Update(context.Background(), "missing", func(task *a2a.Task) error {
				return nil
			})
			var notFound *a2a.TaskNotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("Update(missing) = %v, want TaskNotFoundError", err)
			}
		})
	}
}

func TestDatabaseTaskStoreSurvivesReopen(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.db")

	open := func() server.TaskStore {
		db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
		if err != nil {
			t.Fatalf("open database: %v", err)
		}
		store, err := server.NewDatabaseTaskStore(db)
		if err != nil {
			t.Fatalf("NewDatabaseTaskStore: %v", err)
		}
		if err := store.Initialize(context.Background()); err != nil {
			t.Fatalf("Initialize: %v", err)
		}
		return store
	}

	store := open()
	task := a2a.NewTask("persist-1", "session-9", a2a.NewUserTextMessage("keep me"))
	task.Artifacts = append(task.Artifacts, &a2a.Artifact{
		Name:  "note",
		Parts: []a2a.Part{a2a.NewTextPart("artifact body")},
	})
	if _, err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened := open()
	t.Cleanup(func() { reopened.Close(context.Background()) })

	got, err := reopened.Get(context.Background(), "persist-1")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.SessionID != "session-9" {
		t.Errorf("session = %q, want %q", got.SessionID, "session-9")
	}
	if got.History[0].Text() != "keep me" {
		t.Errorf("history[0] = %q, want %q", got.History[0].Text(), "keep me")
	}
	if len(got.Artifacts) != 1 || got.Artifacts[0].Name != "note" {
		t.Errorf("artifacts = %+v, want one named %q", got.Artifacts, "note")
	}
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server_test

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/server"
)

// echoProcessor completes every task with a reply echoing the last message.
func echoProcessor() server.TaskProcessor {
	return server.ProcessorFunc(func(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
		last := history[len(history)-1]
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage("echo: " + last.Text()),
		}, nil
	})
}

// clarifyProcessor asks for input on the first user turn and completes on
// the second.
func clarifyProcessor() server.TaskProcessor {
	return server.ProcessorFunc(func(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
		userTurns := 0
		for _, msg := range history {
			if msg.Role == a2a.RoleUser {
				userTurns++
			}
		}
		if userTurns < 2 {
			return &server.ProcessResult{
				Reply: a2a.NewAgentTextMessage("What time works for you?"),
				State: a2a.TaskStateInputRequired,
			}, nil
		}
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage("Booked."),
		}, nil
	})
}

func newManager(t *testing.T, processor server.TaskProcessor) (*server.DefaultTaskManager, server.TaskStore) {
	t.Helper()

	store := server.NewInMemoryTaskStore()
	tm, err := server.NewDefaultTaskManager(store, processor)
	if err != nil {
		t.Fatalf("NewDefaultTaskManager: %v", err)
	}
	return tm.WithLogger(slog.New(slog.DiscardHandler)), store
}

func sendParams(id, sessionID, text string) *a2a.TaskSendParams {
	return &a2a.TaskSendParams{
		ID:        id,
		SessionID: sessionID,
		Message:   a2a.NewUserTextMessage(text),
	}
}

func TestOnSendTaskCompletes(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	task, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello"))
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}

	if task.ID != "t1" {
		t.Errorf("id = %q, want %q", task.ID, "t1")
	}
	if task.SessionID != "s1" {
		t.Errorf("session = %q, want %q", task.SessionID, "s1")
	}
	if task.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateCompleted)
	}
	if task.Status.Timestamp.IsZero() {
		t.Error("status timestamp is zero")
	}
	if len(task.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(task.History))
	}
	if got := task.History[0].Text(); got != "hello" {
		t.Errorf("history[0] = %q, want %q", got, "hello")
	}
	if got := task.History[1].Text(); got != "echo: hello" {
		t.Errorf("history[1] = %q, want %q", got, "echo: hello")
	}
	if task.Status.Message == nil || task.Status.Message.Text() != "echo: hello" {
		t.Errorf("status message = %v, want the reply", task.Status.Message)
	}
}

func TestOnSendTaskGeneratesSessionID(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	task, err := tm.OnSendTask(context.Background(), sendParams("t1", "", "hello"))
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if task.SessionID == "" {
		t.Error("session id was not generated")
	}
}

func TestOnSendTaskTerminalRejected(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	if _, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello")); err != nil {
		t.Fatalf("first OnSendTask: %v", err)
	}

	_, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "again"))
	var invalidState *a2a.InvalidTaskStateError
	if !errors.As(err, &invalidState) {
		t.Fatalf("second OnSendTask = %v, want InvalidTaskStateError", err)
	}
}

func TestOnSendTaskBusyRejected(t *testing.T) {
	t.Parallel()

	tests := map[string]a2a.TaskState{
		"submitted": a2a.TaskStateSubmitted,
		"working":   a2a.TaskStateWorking,
	}

	for name, state := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tm, store := newManager(t, echoProcessor())

			task := a2a.NewTask("t1", "s1", a2a.NewUserTextMessage("hello"))
			if _, err := store.Create(context.Background(), task); err != nil {
				t.Fatalf("Create: %v", err)
			}
			if err := store.SetStatus(context.Background(), "t1", a2a.NewTaskStatus(state, nil)); err != nil {
				t.Fatalf("SetStatus: %v", err)
			}

			_, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "again"))
			var invalidState *a2a.InvalidTaskStateError
			if !errors.As(err, &invalidState) {
				t.Fatalf("OnSendTask = %v, want InvalidTaskStateError", err)
			}
		})
	}
}

func TestOnSendTaskResumesInputRequired(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, clarifyProcessor())

	first, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "book a meeting"))
	if err != nil {
		t.Fatalf("first OnSendTask: %v", err)
	}
	if first.Status.State != a2a.TaskStateInputRequired {
		t.Fatalf("state = %q, want %q", first.Status.State, a2a.TaskStateInputRequired)
	}
	if len(first.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(first.History))
	}

	second, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "3pm"))
	if err != nil {
		t.Fatalf("second OnSendTask: %v", err)
	}
	if second.Status.State != a2a.TaskStateCompleted {
		t.Errorf("state = %q, want %q", second.Status.State, a2a.TaskStateCompleted)
	}

	wantHistory := []string{"book a meeting", "What time works for you?", "3pm", "Booked."}
	if len(second.History) != len(wantHistory) {
		t.Fatalf("history length = %d, want %d", len(second.History), len(wantHistory))
	}
	for i, want := range wantHistory {
		if got := second.History[i].Text(); got != want {
			t.Errorf("history[%d] = %q, want %q", i, got, want)
		}
	}
}

func TestOnSendTaskSessionMismatch(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, clarifyProcessor())

	if _, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "book a meeting")); err != nil {
		t.Fatalf("first OnSendTask: %v", err)
	}

	_, err := tm.OnSendTask(context.Background(), sendParams("t1", "s2", "3pm"))
	var invalidParams *a2a.InvalidParamsError
	if !errors.As(err, &invalidParams) {
		t.Fatalf("OnSendTask = %v, want InvalidParamsError", err)
	}

	// The rejected submission must not have touched the task.
	task, err := tm.OnGetTask(context.Background(), &a2a.TaskQueryParams{ID: "t1"})
	if err != nil {
		t.Fatalf("OnGetTask: %v", err)
	}
	if task.Status.State != a2a.TaskStateInputRequired {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateInputRequired)
	}
	if len(task.History) != 2 {
		t.Errorf("history length = %d, want 2", len(task.History))
	}
}

func TestOnSendTaskProcessorErrorMarksFailed(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, server.ProcessorFunc(func(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
		return nil, errors.New("backend exploded")
	}))

	task, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello"))
	if err != nil {
		t.Fatalf("OnSendTask = %v, want nil error with failed task", err)
	}
	if task.Status.State != a2a.TaskStateFailed {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateFailed)
	}
	if len(task.History) != 2 {
		t.Fatalf("history length = %d, want 2", len(task.History))
	}
	reply := task.History[1]
	if reply.Role != a2a.RoleAgent {
		t.Errorf("reply role = %q, want %q", reply.Role, a2a.RoleAgent)
	}
	if !strings.Contains(reply.Text(), "backend exploded") {
		t.Errorf("reply %q does not mention the failure", reply.Text())
	}
}

func TestOnSendTaskUnusableProcessorState(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, server.ProcessorFunc(func(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage("still thinking"),
			State: a2a.TaskStateWorking,
		}, nil
	}))

	task, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello"))
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if task.Status.State != a2a.TaskStateFailed {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateFailed)
	}
}

func TestOnSendTaskFoldsArtifacts(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, server.ProcessorFunc(func(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage("done"),
			Artifacts: []*a2a.Artifact{
				{Name: "summary", Parts: []a2a.Part{a2a.NewTextPart("first")}, Index: 0},
				{Name: "detail", Parts: []a2a.Part{a2a.NewTextPart("second")}, Index: 1},
			},
		}, nil
	}))

	task, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello"))
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if len(task.Artifacts) != 2 {
		t.Fatalf("artifacts length = %d, want 2", len(task.Artifacts))
	}
	if task.Artifacts[0].Name != "summary" || task.Artifacts[1].Name != "detail" {
		t.Errorf("artifact names = %q, %q", task.Artifacts[0].Name, task.Artifacts[1].Name)
	}
}

func TestOnSendTaskHistoryLength(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	one := 1
	params := sendParams("t1", "s1", "hello")
	params.HistoryLength = &one

	task, err := tm.OnSendTask(context.Background(), params)
	if err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}
	if len(task.History) != 1 {
		t.Fatalf("trimmed history length = %d, want 1", len(task.History))
	}
	if got := task.History[0].Text(); got != "echo: hello" {
		t.Errorf("history[0] = %q, want the reply", got)
	}

	// The store keeps the full history.
	full, err := tm.OnGetTask(context.Background(), &a2a.TaskQueryParams{ID: "t1"})
	if err != nil {
		t.Fatalf("OnGetTask: %v", err)
	}
	if len(full.History) != 2 {
		t.Errorf("stored history length = %d, want 2", len(full.History))
	}
}

func TestOnGetTaskHistoryLength(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())
	if _, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "hello")); err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}

	zero, one := 0, 1
	tests := map[string]struct {
		historyLength *int
		wantLen       int
	}{
		"full":   {historyLength: nil, wantLen: 2},
		"empty":  {historyLength: &zero, wantLen: 0},
		"last 1": {historyLength: &one, wantLen: 1},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			task, err := tm.OnGetTask(context.Background(), &a2a.TaskQueryParams{
				ID:            "t1",
				HistoryLength: tt.historyLength,
			})
			if err != nil {
				t.Fatalf("OnGetTask: %v", err)
			}
			if len(task.History) != tt.wantLen {
				t.Errorf("history length = %d, want %d", len(task.History), tt.wantLen)
			}
		})
	}
}

func TestOnGetTaskNotFound(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	_, err := tm.OnGetTask(context.Background(), &a2a.TaskQueryParams{ID: "missing"})
	var notFound *a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("OnGetTask = %v, want TaskNotFoundError", err)
	}
}

func TestOnCancelTask(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, clarifyProcessor())
	if _, err := tm.OnSendTask(context.Background(), sendParams("t1", "s1", "book a meeting")); err != nil {
		t.Fatalf("OnSendTask: %v", err)
	}

	task, err := tm.OnCancelTask(context.Background(), &a2a.TaskIDParams{ID: "t1"})
	if err != nil {
		t.Fatalf("OnCancelTask: %v", err)
	}
	if task.Status.State != a2a.TaskStateCanceled {
		t.Errorf("state = %q, want %q", task.Status.State, a2a.TaskStateCanceled)
	}

	_, err = tm.OnCancelTask(context.Background(), &a2a.TaskIDParams{ID: "t1"})
	var invalidState *a2a.InvalidTaskStateError
	if !errors.As(err, &invalidState) {
		t.Fatalf("second OnCancelTask = %v, want InvalidTaskStateError", err)
	}
}

func TestOnCancelTaskNotFound(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	_, err := tm.OnCancelTask(context.Background(), &a2a.TaskIDParams{ID: "missing"})
	var notFound *a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("OnCancelTask = %v, want TaskNotFoundError", err)
	}
}

func TestOnSendTaskValidatesParams(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	tests := map[string]*a2a.TaskSendParams{
		"nil params":      nil,
		"missing id":      {Message: a2a.NewUserTextMessage("hello")},
		"missing message": {ID: "t1"},
	}

	for name, params := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := tm.OnSendTask(context.Background(), params)
			var invalidParams *a2a.InvalidParamsError
			if !errors.As(err, &invalidParams) {
				t.Fatalf("OnSendTask = %v, want InvalidParamsError", err)
			}
		})
	}
}

func TestOnSendTaskConcurrentDistinctIDs(t *testing.T) {
	t.Parallel()

	tm, _ := newManager(t, echoProcessor())

	const tasks = 12
	var wg sync.WaitGroup
	results := make([]*a2a.Task, tasks)
	errs := make([]error, tasks)

	for i := range tasks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := fmt.Sprintf("t%d", i)
			results[i], errs[i] = tm.OnSendTask(context.Background(), sendParams(id, "s1", "hello "+id))
		}()
	}
	wg.Wait()

	for i := range tasks {
		if errs[i] != nil {
			t.Errorf("task %d: %v", i, errs[i])
			continue
		}
		if results[i].Status.State != a2a.TaskStateCompleted {
			t.Errorf("task %d state = %q, want %q", i, results[i].Status.State, a2a.TaskStateCompleted)
		}
	}
}

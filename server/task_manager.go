// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
)

// ProcessResult is what a [TaskProcessor] produces for one submission.
type ProcessResult struct {
	// Reply is the agent's answer, appended to the task history. Optional.
	Reply *a2a.Message

	// State is the resulting task state. Must be a terminal state or
	// input-required; the zero value means completed.
	State a2a.TaskState

	// Artifacts are appended to the task's artifact list. Optional.
	Artifacts []*a2a.Artifact
}

// TaskProcessor is the agent-specific processing hook. The task manager
// invokes it once per accepted submission with a snapshot of the full
// conversation history, oldest first; the last entry is the message that
// triggered processing.
//
// Process runs outside the task's critical section, so implementations may
// block on network calls. A returned error marks the task failed; it never
// propagates to the caller as a transport error.
type TaskProcessor interface {
	Process(ctx context.Context, history []*a2a.Message) (*ProcessResult, error)
}

// ProcessorFunc adapts a plain function to the [TaskProcessor] interface.
type ProcessorFunc func(ctx context.Context, history []*a2a.Message) (*ProcessResult, error)

// Process implements [TaskProcessor].
func (f ProcessorFunc) Process(ctx context.Context, history []*a2a.Message) (*ProcessResult, error) {
	return f(ctx, history)
}

// TaskManager is the interface that task managers must implement.
type TaskManager interface {
	// OnSendTask creates or resumes a task and runs the processing hook.
	OnSendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error)

	// OnGetTask retrieves a task snapshot.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask cancels a non-terminal task.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)
}

// DefaultTaskManager drives the task state machine over a [TaskStore] and
// delegates domain processing to a single [TaskProcessor] selected at
// construction.
type DefaultTaskManager struct {
	store     TaskStore
	processor TaskProcessor
	logger    *slog.Logger
	tracer    trace.Tracer
}

var _ TaskManager = (*DefaultTaskManager)(nil)

// NewDefaultTaskManager creates a new DefaultTaskManager.
//
// Args:
//
//	store: The task store. Must not be nil.
//	processor: The agent's processing hook. Must not be nil.
//
// Returns:
//
//	A DefaultTaskManager, or an error when a dependency is missing.
func NewDefaultTaskManager(store TaskStore, processor TaskProcessor) (*DefaultTaskManager, error) {
	if store == nil {
		return nil, fmt.Errorf("task store cannot be nil")
	}
	if processor == nil {
		return nil, fmt.Errorf("task processor cannot be nil")
	}

	return &DefaultTaskManager{
		store:     store,
		processor: processor,
		logger:    slog.Default(),
		tracer:    otel.GetTracerProvider().Tracer("a2a.taskmanager"),
	}, nil
}

// WithLogger sets the logger for the DefaultTaskManager.
func (tm *DefaultTaskManager) WithLogger(logger *slog.Logger) *DefaultTaskManager {
	tm.logger = logger
	return tm
}

// WithTracer sets the tracer for the DefaultTaskManager.
func (tm *DefaultTaskManager) WithTracer(tracer trace.Tracer) *DefaultTaskManager {
	tm.tracer = tracer
	return tm
}

// OnSendTask creates the task when its id is unknown, or resumes it when it
// is waiting for input, then invokes the processing hook and folds the
// outcome into the stored task.
//
// The hook runs between two store critical sections rather than inside one:
// the task is snapshotted and released before processing, and the result is
// folded back under the per-id lock afterwards. If the task reached a
// terminal state in the meantime, the fold is skipped.
func (tm *DefaultTaskManager) OnSendTask(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("missing params")
	}

	ctx, span := tm.tracer.Start(ctx, "taskmanager.OnSendTask",
		trace.WithAttributes(
			attribute.String("a2a.task_id", params.ID),
			attribute.String("a2a.session_id", params.SessionID),
		))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	task, resumed, err := tm.admit(ctx, params)
	if err != nil {
		return nil, err
	}
	tm.logger.InfoContext(ctx, "task accepted",
		"task_id", task.ID, "session_id", task.SessionID, "resumed", resumed)

	result, procErr := tm.process(ctx, task)

	final, err := tm.fold(ctx, task.ID, result, procErr)
	if err != nil {
		return nil, err
	}
	tm.logger.InfoContext(ctx, "task processed",
		"task_id", final.ID, "state", final.Status.State)

	if params.HistoryLength != nil {
		final.History = final.TrimHistory(*params.HistoryLength)
	}
	return final, nil
}

// admit runs the state machine entry step: create a fresh task, or append
// the follow-up message and move an input-required task back to working.
// The returned snapshot is already in the working state.
func (tm *DefaultTaskManager) admit(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, bool, error) {
	_, err := tm.store.Get(ctx, params.ID)
	if err == nil {
		task, rerr := tm.resume(ctx, params)
		return task, true, rerr
	}
	var notFound *a2a.TaskNotFoundError
	if !errors.As(err, &notFound) {
		return nil, false, err
	}

	created := a2a.NewTask(params.ID, params.SessionID, params.Message)
	if _, err := tm.store.Create(ctx, created); err != nil {
		var conflict *a2a.TaskConflictError
		if !errors.As(err, &conflict) {
			return nil, false, err
		}
		// Lost a create race; resume against the winner's task.
		task, rerr := tm.resume(ctx, params)
		return task, true, rerr
	}

	task, err := tm.store.Update(ctx, created.ID, func(task *a2a.Task) error {
		if task.Status.State.Terminal() {
			return a2a.NewInvalidTaskStateError(task.ID, task.Status.State)
		}
		task.Status = a2a.NewTaskStatus(a2a.TaskStateWorking, nil)
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return task, false, nil
}

// resume transitions an existing input-required task back to working. Any
// other existing state rejects the submission.
func (tm *DefaultTaskManager) resume(ctx context.Context, params *a2a.TaskSendParams) (*a2a.Task, error) {
	return tm.store.Update(ctx, params.ID, func(task *a2a.Task) error {
		state := task.Status.State
		if state != a2a.TaskStateInputRequired {
			return a2a.NewInvalidTaskStateError(task.ID, state)
		}
		if params.SessionID != "" && params.SessionID != task.SessionID {
			return a2a.NewInvalidParamsError(fmt.Sprintf(
				"session %s does not match task session %s", params.SessionID, task.SessionID))
		}

		task.History = append(task.History, params.Message.Clone())
		task.Status = a2a.NewTaskStatus(a2a.TaskStateWorking, nil)
		return nil
	})
}

// process invokes the hook with a private history snapshot. No store lock is
// held while it runs.
func (tm *DefaultTaskManager) process(ctx context.Context, task *a2a.Task) (*ProcessResult, error) {
	result, err := tm.processor.Process(ctx, task.History)
	if err != nil {
		tm.logger.WarnContext(ctx, "task processing failed",
			"task_id", task.ID, "error", err)
		return nil, err
	}
	if result == nil {
		result = &ProcessResult{}
	}
	return result, nil
}

// fold applies the processing outcome to the stored task under the per-id
// lock. A processing error becomes a failed status with an explanatory agent
// reply instead of propagating to the caller.
func (tm *DefaultTaskManager) fold(ctx context.Context, taskID string, result *ProcessResult, procErr error) (*a2a.Task, error) {
	reply, state := foldOutcome(result, procErr)

	return tm.store.Update(ctx, taskID, func(task *a2a.Task) error {
		if task.Status.State.Terminal() {
			// The task was finalized while the hook ran, for example by a
			// concurrent cancel. Leave it as it is.
			return nil
		}

		if reply != nil {
			task.History = append(task.History, reply.Clone())
		}
		if procErr == nil {
			for _, artifact := range result.Artifacts {
				task.Artifacts = append(task.Artifacts, artifact.Clone())
			}
		}
		task.Status = a2a.NewTaskStatus(state, reply)
		return nil
	})
}

// foldOutcome normalizes the hook result into the reply message and the next
// state. Only terminal states and input-required are accepted from the hook.
func foldOutcome(result *ProcessResult, procErr error) (*a2a.Message, a2a.TaskState) {
	if procErr != nil {
		return a2a.NewAgentTextMessage(fmt.Sprintf("Task processing failed: %v", procErr)), a2a.TaskStateFailed
	}

	state := result.State
	switch {
	case state == "":
		state = a2a.TaskStateCompleted
	case state != a2a.TaskStateInputRequired && !state.Terminal():
		return a2a.NewAgentTextMessage(fmt.Sprintf(
			"Task processing produced unusable state %q.", state)), a2a.TaskStateFailed
	}
	return result.Reply, state
}

// OnGetTask retrieves a task snapshot. The read has no side effects and is
// idempotent.
func (tm *DefaultTaskManager) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("missing params")
	}

	ctx, span := tm.tracer.Start(ctx, "taskmanager.OnGetTask",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	task, err := tm.store.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	if params.HistoryLength != nil {
		task.History = task.TrimHistory(*params.HistoryLength)
	}

	tm.logger.InfoContext(ctx, "task retrieved",
		"task_id", task.ID, "state", task.Status.State)
	return task, nil
}

// OnCancelTask moves a non-terminal task to canceled. Canceling a terminal
// task fails with an invalid-state error.
func (tm *DefaultTaskManager) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error) {
	if params == nil {
		return nil, a2a.NewInvalidParamsError("missing params")
	}

	ctx, span := tm.tracer.Start(ctx, "taskmanager.OnCancelTask",
		trace.WithAttributes(attribute.String("a2a.task_id", params.ID)))
	defer span.End()

	if err := params.Validate(); err != nil {
		return nil, err
	}

	task, err := tm.store.Update(ctx, params.ID, func(task *a2a.Task) error {
		if task.Status.State.Terminal() {
			return a2a.NewInvalidTaskStateError(task.ID, task.Status.State)
		}
		task.Status = a2a.NewTaskStatus(a2a.TaskStateCanceled, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}

	tm.logger.InfoContext(ctx, "task canceled", "task_id", task.ID)
	return task, nil
}

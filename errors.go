// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// JSON-RPC 2.0 standard error codes.
const (
	// ErrorCodeParse indicates the request body is not parseable JSON.
	ErrorCodeParse = -32700

	// ErrorCodeInvalidRequest indicates a malformed JSON-RPC envelope.
	ErrorCodeInvalidRequest = -32600

	// ErrorCodeMethodNotFound indicates an unsupported method.
	ErrorCodeMethodNotFound = -32601

	// ErrorCodeInvalidParams indicates params do not match the method shape.
	ErrorCodeInvalidParams = -32602

	// ErrorCodeInternal indicates an unclassified server fault.
	ErrorCodeInternal = -32603
)

// A2A-specific error codes.
const (
	// ErrorCodeTaskNotFound indicates an unknown task id.
	ErrorCodeTaskNotFound = -32001

	// ErrorCodeTaskConflict indicates a duplicate task id on create.
	ErrorCodeTaskConflict = -32002

	// ErrorCodeInvalidTaskState indicates an operation that is illegal for
	// the task's current status.
	ErrorCodeInvalidTaskState = -32003

	// ErrorCodeAgentUnreachable indicates a peer agent could not be reached.
	ErrorCodeAgentUnreachable = -32004

	// ErrorCodeRemoteAgent indicates a peer agent answered with a JSON-RPC
	// error.
	ErrorCodeRemoteAgent = -32005

	// ErrorCodeInvalidManifest indicates a peer agent card that could not
	// be parsed or validated.
	ErrorCodeInvalidManifest = -32006
)

// A2AError is the interface implemented by all protocol-level errors. Code
// and Message map directly onto the JSON-RPC error object members.
type A2AError interface {
	error

	// Code returns the JSON-RPC error code.
	Code() int

	// Message returns the standard human-readable message for the code.
	Message() string
}

// JSONParseError indicates the request body is not parseable JSON.
type JSONParseError struct {
	Msg string
}

var _ A2AError = (*JSONParseError)(nil)

func (e *JSONParseError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid JSON payload: %s", e.Msg)
	}
	return "invalid JSON payload"
}

// Code returns the JSON-RPC error code.
func (e *JSONParseError) Code() int { return ErrorCodeParse }

// Message returns the standard message.
func (e *JSONParseError) Message() string { return "Invalid JSON payload" }

// NewJSONParseError creates a JSONParseError with the given detail.
func NewJSONParseError(msg string) *JSONParseError {
	return &JSONParseError{Msg: msg}
}

// InvalidRequestError indicates a malformed JSON-RPC envelope.
type InvalidRequestError struct {
	Msg string
}

var _ A2AError = (*InvalidRequestError)(nil)

func (e *InvalidRequestError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("request payload validation error: %s", e.Msg)
	}
	return "request payload validation error"
}

// Code returns the JSON-RPC error code.
func (e *InvalidRequestError) Code() int { return ErrorCodeInvalidRequest }

// Message returns the standard message.
func (e *InvalidRequestError) Message() string { return "Request payload validation error" }

// NewInvalidRequestError creates an InvalidRequestError with the given detail.
func NewInvalidRequestError(msg string) *InvalidRequestError {
	return &InvalidRequestError{Msg: msg}
}

// MethodNotFoundError indicates an unsupported JSON-RPC method.
type MethodNotFoundError struct {
	Method string
}

var _ A2AError = (*MethodNotFoundError)(nil)

func (e *MethodNotFoundError) Error() string {
	return fmt.Sprintf("method not found: %s", e.Method)
}

// Code returns the JSON-RPC error code.
func (e *MethodNotFoundError) Code() int { return ErrorCodeMethodNotFound }

// Message returns the standard message.
func (e *MethodNotFoundError) Message() string { return "Method not found" }

// NewMethodNotFoundError creates a MethodNotFoundError for the given method.
func NewMethodNotFoundError(method string) *MethodNotFoundError {
	return &MethodNotFoundError{Method: method}
}

// InvalidParamsError indicates params that do not match the method shape.
type InvalidParamsError struct {
	Msg string
}

var _ A2AError = (*InvalidParamsError)(nil)

func (e *InvalidParamsError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("invalid parameters: %s", e.Msg)
	}
	return "invalid parameters"
}

// Code returns the JSON-RPC error code.
func (e *InvalidParamsError) Code() int { return ErrorCodeInvalidParams }

// Message returns the standard message.
func (e *InvalidParamsError) Message() string { return "Invalid parameters" }

// NewInvalidParamsError creates an InvalidParamsError with the given detail.
func NewInvalidParamsError(msg string) *InvalidParamsError {
	return &InvalidParamsError{Msg: msg}
}

// InternalError indicates an unclassified server fault.
type InternalError struct {
	Msg string
}

var _ A2AError = (*InternalError)(nil)

func (e *InternalError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("internal error: %s", e.Msg)
	}
	return "internal error"
}

// Code returns the JSON-RPC error code.
func (e *InternalError) Code() int { return ErrorCodeInternal }

// Message returns the standard message.
func (e *InternalError) Message() string { return "Internal error" }

// NewInternalError creates an InternalError with the given detail.
func NewInternalError(msg string) *InternalError {
	return &InternalError{Msg: msg}
}

// TaskNotFoundError indicates that the requested task was not found.
type TaskNotFoundError struct {
	TaskID string
}

var _ A2AError = (*TaskNotFoundError)(nil)

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Code returns the JSON-RPC error code.
func (e *TaskNotFoundError) Code() int { return ErrorCodeTaskNotFound }

// Message returns the standard message.
func (e *TaskNotFoundError) Message() string { return "Task not found" }

// NewTaskNotFoundError creates a TaskNotFoundError for the given task id.
func NewTaskNotFoundError(taskID string) *TaskNotFoundError {
	return &TaskNotFoundError{TaskID: taskID}
}

// TaskConflictError indicates an attempt to create a task whose id already
// exists in the store.
type TaskConflictError struct {
	TaskID string
}

var _ A2AError = (*TaskConflictError)(nil)

func (e *TaskConflictError) Error() string {
	return fmt.Sprintf("task already exists: %s", e.TaskID)
}

// Code returns the JSON-RPC error code.
func (e *TaskConflictError) Code() int { return ErrorCodeTaskConflict }

// Message returns the standard message.
func (e *TaskConflictError) Message() string { return "Task already exists" }

// NewTaskConflictError creates a TaskConflictError for the given task id.
func NewTaskConflictError(taskID string) *TaskConflictError {
	return &TaskConflictError{TaskID: taskID}
}

// InvalidTaskStateError indicates an operation that is illegal for the
// task's current status, such as tasks/send on a completed task.
type InvalidTaskStateError struct {
	TaskID string
	State  TaskState
}

var _ A2AError = (*InvalidTaskStateError)(nil)

func (e *InvalidTaskStateError) Error() string {
	return fmt.Sprintf("task %s is in state %q and accepts no further submissions", e.TaskID, e.State)
}

// Code returns the JSON-RPC error code.
func (e *InvalidTaskStateError) Code() int { return ErrorCodeInvalidTaskState }

// Message returns the standard message.
func (e *InvalidTaskStateError) Message() string { return "Task state does not allow this operation" }

// NewInvalidTaskStateError creates an InvalidTaskStateError for the given
// task id and state.
func NewInvalidTaskStateError(taskID string, state TaskState) *InvalidTaskStateError {
	return &InvalidTaskStateError{TaskID: taskID, State: state}
}

// AgentUnreachableError indicates a peer agent could not be reached at the
// transport level: connection failure, timeout, or a broken response.
type AgentUnreachableError struct {
	URL string
	Err error
}

var _ A2AError = (*AgentUnreachableError)(nil)

func (e *AgentUnreachableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("agent unreachable at %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("agent unreachable at %s", e.URL)
}

// Unwrap returns the underlying transport error.
func (e *AgentUnreachableError) Unwrap() error { return e.Err }

// Code returns the JSON-RPC error code.
func (e *AgentUnreachableError) Code() int { return ErrorCodeAgentUnreachable }

// Message returns the standard message.
func (e *AgentUnreachableError) Message() string { return "Agent unreachable" }

// NewAgentUnreachableError creates an AgentUnreachableError for the given
// URL wrapping the transport cause.
func NewAgentUnreachableError(url string, err error) *AgentUnreachableError {
	return &AgentUnreachableError{URL: url, Err: err}
}

// RemoteAgentError indicates a peer agent responded with a JSON-RPC error.
// It is distinct from [AgentUnreachableError]: the peer was reached and
// declined.
type RemoteAgentError struct {
	Agent      string
	RemoteCode int
	RemoteMsg  string
}

var _ A2AError = (*RemoteAgentError)(nil)

func (e *RemoteAgentError) Error() string {
	if e.Agent != "" {
		return fmt.Sprintf("remote agent %s returned error %d: %s", e.Agent, e.RemoteCode, e.RemoteMsg)
	}
	return fmt.Sprintf("remote agent returned error %d: %s", e.RemoteCode, e.RemoteMsg)
}

// Code returns the JSON-RPC error code.
func (e *RemoteAgentError) Code() int { return ErrorCodeRemoteAgent }

// Message returns the standard message.
func (e *RemoteAgentError) Message() string { return "Remote agent error" }

// NewRemoteAgentError creates a RemoteAgentError carrying the code and
// message the peer answered with.
func NewRemoteAgentError(agent string, code int, msg string) *RemoteAgentError {
	return &RemoteAgentError{Agent: agent, RemoteCode: code, RemoteMsg: msg}
}

// InvalidManifestError indicates a peer agent card that could not be parsed
// or validated.
type InvalidManifestError struct {
	Msg string
}

var _ A2AError = (*InvalidManifestError)(nil)

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("invalid agent card: %s", e.Msg)
}

// Code returns the JSON-RPC error code.
func (e *InvalidManifestError) Code() int { return ErrorCodeInvalidManifest }

// Message returns the standard message.
func (e *InvalidManifestError) Message() string { return "Invalid agent card" }

// NewInvalidManifestError creates an InvalidManifestError with the given
// detail.
func NewInvalidManifestError(msg string) *InvalidManifestError {
	return &InvalidManifestError{Msg: msg}
}

// AsJSONRPCError converts err into the JSON-RPC error object to put on the
// wire. Typed protocol errors keep their code and standard message, with the
// specific detail in data. Anything else becomes an internal error without
// leaking its text to the caller.
func AsJSONRPCError(err error) *JSONRPCError {
	var a2aErr A2AError
	if errors.As(err, &a2aErr) {
		return &JSONRPCError{
			Code:    a2aErr.Code(),
			Message: a2aErr.Message(),
			Data:    a2aErr.Error(),
		}
	}
	return &JSONRPCError{
		Code:    ErrorCodeInternal,
		Message: "Internal error",
	}
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"fmt"
	"strconv"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// A2A RPC method names.
const (
	// MethodTasksSend is the method name for sending a task.
	MethodTasksSend = "tasks/send"
	// MethodTasksGet is the method name for getting a task.
	MethodTasksGet = "tasks/get"
	// MethodTasksCancel is the method name for canceling a task.
	MethodTasksCancel = "tasks/cancel"
)

// ID represents the unique identifier of a JSON-RPC request: a string, a
// number, or null. It correlates a response with its request and is distinct
// from a task id. An explicit null id is distinct from an absent one.
type ID struct {
	value   any
	present bool
}

// NewID creates an ID from a string or numeric value.
func NewID(v any) ID {
	return ID{value: v, present: true}
}

// Value returns the underlying identifier value.
func (id ID) Value() any { return id.value }

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return !id.present }

func (id ID) String() string {
	switch v := id.value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// MarshalJSON implements [encoding/json.Marshaler].
func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.value)
}

// UnmarshalJSON implements [encoding/json.Unmarshaler]. Object and array
// identifiers are rejected.
func (id *ID) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.(type) {
	case string, float64, nil:
		id.value = v
		id.present = true
		return nil
	default:
		return fmt.Errorf("invalid JSON-RPC id type %T", v)
	}
}

// JSONRPCMessage is the base structure shared by all JSON-RPC 2.0 messages.
type JSONRPCMessage struct {
	// JSONRPC is the protocol version, always "2.0".
	JSONRPC string `json:"jsonrpc"`
	// ID correlates a request with its response.
	ID ID `json:"id,omitzero"`
}

// NewJSONRPCMessage creates a new [JSONRPCMessage] with the given id.
func NewJSONRPCMessage(id any) JSONRPCMessage {
	return JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      NewID(id),
	}
}

// JSONRPCRequest represents a generic JSON-RPC 2.0 request with its params
// still undecoded. The server decodes Params into the method's typed shape
// after dispatching on Method.
type JSONRPCRequest struct {
	JSONRPCMessage

	// Method identifies the operation to perform.
	Method string `json:"method"`
	// Params contains the raw parameters for the method.
	Params jsontext.Value `json:"params,omitzero"`
}

// JSONRPCError represents a JSON-RPC 2.0 error object.
type JSONRPCError struct {
	// Code is the error code.
	Code int `json:"code"`
	// Message is a short description of the error.
	Message string `json:"message"`
	// Data contains optional additional error details.
	Data any `json:"data,omitzero"`
}

func (e *JSONRPCError) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

// JSONRPCResponse represents a JSON-RPC 2.0 response. Exactly one of Result
// and Error is set.
type JSONRPCResponse struct {
	JSONRPCMessage

	// Result contains the successful result data.
	Result any `json:"result,omitzero"`
	// Error contains the error object if the request failed.
	Error *JSONRPCError `json:"error,omitzero"`
}

// ParseRequest decodes data into a JSON-RPC request and validates the
// envelope.
//
// Args:
//   - data: the raw request body.
//
// Returns:
//   - The decoded request, or a [JSONParseError] when data is not valid
//     JSON, or an [InvalidRequestError] when the envelope is malformed.
func ParseRequest(data []byte) (*JSONRPCRequest, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, NewJSONParseError(err.Error())
	}
	if req.JSONRPC != "2.0" {
		return nil, NewInvalidRequestError(fmt.Sprintf("unsupported jsonrpc version %q", req.JSONRPC))
	}
	if req.ID.IsZero() {
		return nil, NewInvalidRequestError("missing id")
	}
	if req.Method == "" {
		return nil, NewInvalidRequestError("missing method")
	}
	return &req, nil
}

// TaskSendParams carries the parameters of a tasks/send request.
type TaskSendParams struct {
	// ID is the task identifier, chosen by the caller.
	ID string `json:"id"`

	// SessionID groups related tasks. Optional; the server generates one
	// when absent.
	SessionID string `json:"sessionId,omitzero"`

	// Message is the submission, role "user".
	Message *Message `json:"message"`

	// HistoryLength bounds the history returned with the task. Optional.
	HistoryLength *int `json:"historyLength,omitzero"`

	// Metadata carries optional request metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate checks the params against the tasks/send contract.
func (p *TaskSendParams) Validate() error {
	if p.ID == "" {
		return NewInvalidParamsError("missing task id")
	}
	if p.Message == nil {
		return NewInvalidParamsError("missing message")
	}
	if !p.Message.Role.Valid() {
		return NewInvalidParamsError(fmt.Sprintf("invalid message role %q", p.Message.Role))
	}
	if len(p.Message.Parts) == 0 {
		return NewInvalidParamsError("message has no parts")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return NewInvalidParamsError("historyLength must not be negative")
	}
	return nil
}

// TaskQueryParams carries the parameters of a tasks/get request.
type TaskQueryParams struct {
	// ID is the task identifier.
	ID string `json:"id"`

	// HistoryLength bounds the history returned with the task. Optional;
	// the full history is returned when absent.
	HistoryLength *int `json:"historyLength,omitzero"`

	// Metadata carries optional request metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate checks the params against the tasks/get contract.
func (p *TaskQueryParams) Validate() error {
	if p.ID == "" {
		return NewInvalidParamsError("missing task id")
	}
	if p.HistoryLength != nil && *p.HistoryLength < 0 {
		return NewInvalidParamsError("historyLength must not be negative")
	}
	return nil
}

// TaskIDParams carries the parameters of requests that address a task by id
// alone, such as tasks/cancel.
type TaskIDParams struct {
	// ID is the task identifier.
	ID string `json:"id"`

	// Metadata carries optional request metadata.
	Metadata map[string]any `json:"metadata,omitzero"`
}

// Validate checks that a task id is present.
func (p *TaskIDParams) Validate() error {
	if p.ID == "" {
		return NewInvalidParamsError("missing task id")
	}
	return nil
}

// A2ARequest represents a typed request to the A2A API.
type A2ARequest interface {
	MethodName() string
}

// SendTaskRequest represents a request to initiate or continue a task.
type SendTaskRequest struct {
	JSONRPCMessage

	// Method is always "tasks/send".
	Method string         `json:"method"`
	Params TaskSendParams `json:"params"`
}

var _ A2ARequest = (*SendTaskRequest)(nil)

// MethodName implements [A2ARequest].
func (*SendTaskRequest) MethodName() string {
	return MethodTasksSend
}

// NewSendTaskRequest creates a new [SendTaskRequest].
func NewSendTaskRequest(id any, params TaskSendParams) SendTaskRequest {
	return SendTaskRequest{
		JSONRPCMessage: NewJSONRPCMessage(id),
		Method:         MethodTasksSend,
		Params:         params,
	}
}

// SendTaskResponse represents the response to a tasks/send request.
type SendTaskResponse struct {
	JSONRPCMessage

	Result *Task         `json:"result,omitzero"`
	Error  *JSONRPCError `json:"error,omitzero"`
}

// GetTaskRequest represents a request to retrieve a task.
type GetTaskRequest struct {
	JSONRPCMessage

	// Method is always "tasks/get".
	Method string          `json:"method"`
	Params TaskQueryParams `json:"params"`
}

var _ A2ARequest = (*GetTaskRequest)(nil)

// MethodName implements [A2ARequest].
func (*GetTaskRequest) MethodName() string {
	return MethodTasksGet
}

// NewGetTaskRequest creates a new [GetTaskRequest].
func NewGetTaskRequest(id any, params TaskQueryParams) GetTaskRequest {
	return GetTaskRequest{
		JSONRPCMessage: NewJSONRPCMessage(id),
		Method:         MethodTasksGet,
		Params:         params,
	}
}

// GetTaskResponse represents the response to a tasks/get request.
type GetTaskResponse struct {
	JSONRPCMessage

	Result *Task         `json:"result,omitzero"`
	Error  *JSONRPCError `json:"error,omitzero"`
}

// CancelTaskRequest represents a request to cancel a task.
type CancelTaskRequest struct {
	JSONRPCMessage

	// Method is always "tasks/cancel".
	Method string       `json:"method"`
	Params TaskIDParams `json:"params"`
}

var _ A2ARequest = (*CancelTaskRequest)(nil)

// MethodName implements [A2ARequest].
func (*CancelTaskRequest) MethodName() string {
	return MethodTasksCancel
}

// NewCancelTaskRequest creates a new [CancelTaskRequest].
func NewCancelTaskRequest(id any, params TaskIDParams) CancelTaskRequest {
	return CancelTaskRequest{
		JSONRPCMessage: NewJSONRPCMessage(id),
		Method:         MethodTasksCancel,
		Params:         params,
	}
}

// CancelTaskResponse represents the response to a tasks/cancel request.
type CancelTaskResponse struct {
	JSONRPCMessage

	Result *Task         `json:"result,omitzero"`
	Error  *JSONRPCError `json:"error,omitzero"`
}

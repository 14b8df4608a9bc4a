// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/a2a-mesh"
)

func TestIDRoundTrip(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		data  string
		wantS string
	}{
		"string": {
			data:  `"req-1"`,
			wantS: "req-1",
		},
		"number": {
			data:  `42`,
			wantS: "42",
		},
		"null": {
			data:  `null`,
			wantS: "",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var id a2a.ID
			if err := json.Unmarshal([]byte(tt.data), &id); err != nil {
				t.Fatalf("Unmarshal(%s): %v", tt.data, err)
			}
			if got := id.String(); got != tt.wantS {
				t.Errorf("String() = %q, want %q", got, tt.wantS)
			}

			out, err := json.Marshal(id)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if string(out) != tt.data {
				t.Errorf("Marshal = %s, want %s", out, tt.data)
			}
		})
	}
}

func TestIDRejectsStructuredValues(t *testing.T) {
	t.Parallel()

	for _, data := range []string{`{"a":1}`, `[1,2]`} {
		var id a2a.ID
		if err := json.Unmarshal([]byte(data), &id); err == nil {
			t.Errorf("Unmarshal(%s) succeeded, want error", data)
		}
	}
}

func TestParseRequest(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		body       string
		wantMethod string
		wantErr    int
	}{
		"valid tasks/send": {
			body:       `{"jsonrpc":"2.0","id":"1","method":"tasks/send","params":{"id":"t1","message":{"role":"user","parts":[{"type":"text","text":"hi"}]}}}`,
			wantMethod: a2a.MethodTasksSend,
		},
		"valid numeric id": {
			body:       `{"jsonrpc":"2.0","id":7,"method":"tasks/get","params":{"id":"t1"}}`,
			wantMethod: a2a.MethodTasksGet,
		},
		"not json": {
			body:    `{jsonrpc`,
			wantErr: a2a.ErrorCodeParse,
		},
		"wrong version": {
			body:    `{"jsonrpc":"1.0","id":"1","method":"tasks/send"}`,
			wantErr: a2a.ErrorCodeInvalidRequest,
		},
		"missing version": {
			body:    `{"id":"1","method":"tasks/send"}`,
			wantErr: a2a.ErrorCodeInvalidRequest,
		},
		"missing id": {
			body:    `{"jsonrpc":"2.0","method":"tasks/send"}`,
			wantErr: a2a.ErrorCodeInvalidRequest,
		},
		"missing method": {
			body:    `{"jsonrpc":"2.0","id":"1"}`,
			wantErr: a2a.ErrorCodeInvalidRequest,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			req, err := a2a.ParseRequest([]byte(tt.body))
			if tt.wantErr != 0 {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var a2aErr a2a.A2AError
				if !errors.As(err, &a2aErr) {
					t.Fatalf("error %T does not implement A2AError", err)
				}
				if a2aErr.Code() != tt.wantErr {
					t.Errorf("error code = %d, want %d", a2aErr.Code(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRequest: %v", err)
			}
			if req.Method != tt.wantMethod {
				t.Errorf("method = %q, want %q", req.Method, tt.wantMethod)
			}
		})
	}
}

func TestTaskSendParamsValidate(t *testing.T) {
	t.Parallel()

	negative := -1

	tests := map[string]struct {
		params  a2a.TaskSendParams
		wantErr bool
	}{
		"valid": {
			params: a2a.TaskSendParams{
				ID:      "t1",
				Message: a2a.NewUserTextMessage("hi"),
			},
		},
		"missing id": {
			params: a2a.TaskSendParams{
				Message: a2a.NewUserTextMessage("hi"),
			},
			wantErr: true,
		},
		"missing message": {
			params:  a2a.TaskSendParams{ID: "t1"},
			wantErr: true,
		},
		"invalid role": {
			params: a2a.TaskSendParams{
				ID: "t1",
				Message: &a2a.Message{
					Role:  a2a.Role("system"),
					Parts: []a2a.Part{a2a.NewTextPart("hi")},
				},
			},
			wantErr: true,
		},
		"no parts": {
			params: a2a.TaskSendParams{
				ID:      "t1",
				Message: &a2a.Message{Role: a2a.RoleUser},
			},
			wantErr: true,
		},
		"negative history length": {
			params: a2a.TaskSendParams{
				ID:            "t1",
				Message:       a2a.NewUserTextMessage("hi"),
				HistoryLength: &negative,
			},
			wantErr: true,
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tt.params.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestTaskQueryParamsValidate(t *testing.T) {
	t.Parallel()

	if err := (&a2a.TaskQueryParams{ID: "t1"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := (&a2a.TaskQueryParams{}).Validate(); err == nil {
		t.Error("expected error for missing id")
	}

	negative := -2
	err := (&a2a.TaskQueryParams{ID: "t1", HistoryLength: &negative}).Validate()
	if err == nil {
		t.Error("expected error for negative historyLength")
	}
}

func TestSendTaskRequestEncoding(t *testing.T) {
	t.Parallel()

	req := a2a.NewSendTaskRequest("req-1", a2a.TaskSendParams{
		ID:        "t1",
		SessionID: "s1",
		Message:   a2a.NewUserTextMessage("Book a meeting at 3pm"),
	})

	data, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	body := string(data)
	for _, want := range []string{
		`"jsonrpc":"2.0"`,
		`"id":"req-1"`,
		`"method":"tasks/send"`,
		`"sessionId":"s1"`,
		`"Book a meeting at 3pm"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("encoded request missing %s:\n%s", want, body)
		}
	}

	parsed, err := a2a.ParseRequest(data)
	if err != nil {
		t.Fatalf("ParseRequest on encoded request: %v", err)
	}
	if parsed.Method != a2a.MethodTasksSend {
		t.Errorf("method = %q, want %q", parsed.Method, a2a.MethodTasksSend)
	}

	var params a2a.TaskSendParams
	if err := json.Unmarshal(parsed.Params, &params); err != nil {
		t.Fatalf("Unmarshal params: %v", err)
	}
	if params.ID != "t1" || params.SessionID != "s1" {
		t.Errorf("params = %+v", params)
	}
}

func TestMethodNames(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		req  a2a.A2ARequest
		want string
	}{
		"send": {
			req:  &a2a.SendTaskRequest{},
			want: "tasks/send",
		},
		"get": {
			req:  &a2a.GetTaskRequest{},
			want: "tasks/get",
		},
		"cancel": {
			req:  &a2a.CancelTaskRequest{},
			want: "tasks/cancel",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			if got := tt.req.MethodName(); got != tt.want {
				t.Errorf("MethodName() = %q, want %q", got, tt.want)
			}
		})
	}
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server implements the agent-side half of the A2A protocol: the
// task store, the task state machine, and the HTTP server that exposes both
// behind a JSON-RPC 2.0 endpoint and a well-known agent card.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/internal/pool"
)

const (
	// DefaultEndpoint is the listen address used when no endpoint option is
	// given.
	DefaultEndpoint = "localhost:10000"

	defaultReadTimeout     = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// Server exposes a [TaskManager] over the A2A wire protocol. It serves the
// agent card at the well-known path and JSON-RPC 2.0 task operations at the
// root path.
type Server struct {
	endpoint    string
	agentCard   *a2a.AgentCard
	taskManager TaskManager

	mux        *http.ServeMux
	httpServer *http.Server

	logger *slog.Logger
	tracer trace.Tracer

	readTimeout     time.Duration
	shutdownTimeout time.Duration
}

var _ http.Handler = (*Server)(nil)

// NewServer creates a new Server.
//
// Args:
//
//	card: The agent's capability manifest. Must validate.
//	taskManager: The task manager handling dispatched operations.
//	opts: Optional configuration.
//
// Returns:
//
//	A Server ready for Start, or an error when a dependency is missing or
//	the card is invalid.
func NewServer(card *a2a.AgentCard, taskManager TaskManager, opts ...Option) (*Server, error) {
	if card == nil {
		return nil, fmt.Errorf("agent card is required")
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	if taskManager == nil {
		return nil, fmt.Errorf("task manager is required")
	}

	s := &Server{
		endpoint:        DefaultEndpoint,
		agentCard:       card,
		taskManager:     taskManager,
		mux:             http.NewServeMux(),
		logger:          slog.Default(),
		tracer:          otel.GetTracerProvider().Tracer("a2a.server"),
		readTimeout:     defaultReadTimeout,
		shutdownTimeout: defaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerHandlers()

	return s, nil
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// registerHandlers sets up the HTTP routes for the server.
func (s *Server) registerHandlers() {
	s.mux.HandleFunc("GET "+a2a.AgentCardWellKnownPath, s.handleAgentCard)
	s.mux.HandleFunc("POST "+a2a.DefaultRPCPath, s.handleRPC)
}

// handleAgentCard serves the agent card. The read has no side effects.
func (s *Server) handleAgentCard(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "server.AgentCard")
	defer span.End()

	s.writeJSON(ctx, w, s.agentCard)
}

// handleRPC decodes one JSON-RPC request, dispatches it to the task manager,
// and writes exactly one response. Failures of any kind surface as JSON-RPC
// error objects on a 200 response.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.tracer.Start(r.Context(), "server.HandleRPC")
	defer span.End()

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		s.writeError(ctx, w, a2a.NewJSONRPCMessage(nil), a2a.NewJSONParseError("cannot read request body"))
		return
	}

	req, err := a2a.ParseRequest(body)
	if err != nil {
		s.writeError(ctx, w, a2a.NewJSONRPCMessage(nil), err)
		return
	}

	span.SetAttributes(attribute.String("a2a.method", req.Method))
	envelope := a2a.JSONRPCMessage{JSONRPC: "2.0", ID: req.ID}

	task, err := s.dispatch(ctx, req)
	if err != nil {
		s.logger.InfoContext(ctx, "rpc failed",
			"method", req.Method, "id", req.ID.String(), "error", err)
		s.writeError(ctx, w, envelope, err)
		return
	}

	s.logger.InfoContext(ctx, "rpc handled",
		"method", req.Method, "id", req.ID.String(),
		"task_id", task.ID, "state", task.Status.State)
	s.writeResult(ctx, w, envelope, task)
}

// dispatch routes a parsed request to the task manager operation named by
// its method.
func (s *Server) dispatch(ctx context.Context, req *a2a.JSONRPCRequest) (*a2a.Task, error) {
	switch req.Method {
	case a2a.MethodTasksSend:
		var params a2a.TaskSendParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.taskManager.OnSendTask(ctx, &params)

	case a2a.MethodTasksGet:
		var params a2a.TaskQueryParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.taskManager.OnGetTask(ctx, &params)

	case a2a.MethodTasksCancel:
		var params a2a.TaskIDParams
		if err := unmarshalParams(req.Params, &params); err != nil {
			return nil, err
		}
		return s.taskManager.OnCancelTask(ctx, &params)

	default:
		return nil, a2a.NewMethodNotFoundError(req.Method)
	}
}

func unmarshalParams(raw []byte, v any) error {
	if len(raw) == 0 {
		return a2a.NewInvalidParamsError("missing params")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return a2a.NewInvalidParamsError(err.Error())
	}
	return nil
}

func (s *Server) writeResult(ctx context.Context, w http.ResponseWriter, envelope a2a.JSONRPCMessage, task *a2a.Task) {
	s.writeJSON(ctx, w, &a2a.JSONRPCResponse{
		JSONRPCMessage: envelope,
		Result:         task,
	})
}

func (s *Server) writeError(ctx context.Context, w http.ResponseWriter, envelope a2a.JSONRPCMessage, err error) {
	s.writeJSON(ctx, w, &a2a.JSONRPCResponse{
		JSONRPCMessage: envelope,
		Error:          a2a.AsJSONRPCError(err),
	})
}

// writeJSON encodes v into a pooled buffer and writes it to the wire in a
// single Write call.
func (s *Server) writeJSON(ctx context.Context, w http.ResponseWriter, v any) {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if err := json.MarshalWrite(buf, v); err != nil {
		s.logger.ErrorContext(ctx, "response encoding failed", "error", err)
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		s.logger.WarnContext(ctx, "response write failed", "error", err)
	}
}

// Start begins serving on the configured endpoint. It blocks until the
// server stops and returns nil after a clean Shutdown.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:        s.endpoint,
		Handler:     s.mux,
		ReadTimeout: s.readTimeout,
	}

	s.logger.Info("server listening", "endpoint", s.endpoint, "agent", s.agentCard.Name)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve %s: %w", s.endpoint, err)
	}
	return nil
}

// Shutdown gracefully stops the server, waiting up to the configured
// shutdown timeout for in-flight requests to drain.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down", "endpoint", s.endpoint)
	return s.httpServer.Shutdown(ctx)
}

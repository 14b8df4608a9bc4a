// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client provides the calling side of the A2A protocol: a JSON-RPC
// client bound to one agent endpoint, and a resolver for the agent's
// well-known card.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/internal/pool"
)

// DefaultTimeout bounds a single RPC call when the caller's context carries
// no deadline of its own.
const DefaultTimeout = 30 * time.Second

// Client is a JSON-RPC client bound to a single agent endpoint.
//
// Every call is bounded by a timeout. A pure transport failure is retried
// once; an error answered by the remote agent is never retried and surfaces
// as a [a2a.RemoteAgentError] carrying the original code and message.
type Client struct {
	url        string
	httpClient *http.Client
	timeout    time.Duration
	userAgent  string
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewClient creates a new Client.
//
// Args:
//
//	url: The agent's RPC endpoint, for example "http://localhost:10001".
//	opts: Optional configuration.
//
// Returns:
//
//	A Client, or an error when url is empty.
func NewClient(url string, opts ...Option) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("endpoint url is required")
	}

	c := &Client{
		url:        url,
		httpClient: &http.Client{},
		timeout:    DefaultTimeout,
		userAgent:  "a2a-mesh-client/" + a2a.Version,
		logger:     slog.Default(),
		tracer:     otel.GetTracerProvider().Tracer("a2a.client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// URL returns the endpoint this client is bound to.
func (c *Client) URL() string { return c.url }

// SendTask submits a message to the agent under the given task id and
// returns the resulting task snapshot.
func (c *Client) SendTask(ctx context.Context, params a2a.TaskSendParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	req := a2a.NewSendTaskRequest(uuid.NewString(), params)
	var resp a2a.SendTaskResponse
	if err := c.call(ctx, a2a.MethodTasksSend, &req, &resp); err != nil {
		return nil, err
	}
	return c.unwrap(resp.Result, resp.Error)
}

// GetTask retrieves the task identified by params.ID.
func (c *Client) GetTask(ctx context.Context, params a2a.TaskQueryParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	req := a2a.NewGetTaskRequest(uuid.NewString(), params)
	var resp a2a.GetTaskResponse
	if err := c.call(ctx, a2a.MethodTasksGet, &req, &resp); err != nil {
		return nil, err
	}
	return c.unwrap(resp.Result, resp.Error)
}

// CancelTask requests cancellation of the task identified by params.ID.
func (c *Client) CancelTask(ctx context.Context, params a2a.TaskIDParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	req := a2a.NewCancelTaskRequest(uuid.NewString(), params)
	var resp a2a.CancelTaskResponse
	if err := c.call(ctx, a2a.MethodTasksCancel, &req, &resp); err != nil {
		return nil, err
	}
	return c.unwrap(resp.Result, resp.Error)
}

// call performs one JSON-RPC exchange. rpcResp must be a pointer to the
// method's typed response.
func (c *Client) call(ctx context.Context, method string, rpcReq, rpcResp any) error {
	ctx, span := c.tracer.Start(ctx, "client.Call",
		trace.WithAttributes(
			attribute.String("a2a.method", method),
			attribute.String("a2a.endpoint", c.url),
		))
	defer span.End()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	if err := json.MarshalWrite(buf, rpcReq); err != nil {
		return fmt.Errorf("encode %s request: %w", method, err)
	}
	body := buf.Bytes()

	var lastErr error
	for attempt := range 2 {
		if attempt > 0 {
			c.logger.DebugContext(ctx, "retrying after transport error",
				"url", c.url, "method", method, "error", lastErr)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return a2a.NewAgentUnreachableError(c.url, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("User-Agent", c.userAgent)

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		return c.decode(httpResp, rpcResp)
	}

	return a2a.NewAgentUnreachableError(c.url, lastErr)
}

// decode reads one HTTP response into the typed RPC response. A peer that
// answers outside the protocol counts as unreachable.
func (c *Client) decode(httpResp *http.Response, rpcResp any) error {
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return a2a.NewAgentUnreachableError(c.url, fmt.Errorf("unexpected status %d", httpResp.StatusCode))
	}
	if err := json.UnmarshalRead(httpResp.Body, rpcResp); err != nil {
		return a2a.NewAgentUnreachableError(c.url, fmt.Errorf("malformed response: %w", err))
	}
	return nil
}

// unwrap maps a decoded JSON-RPC response to its task or error.
func (c *Client) unwrap(result *a2a.Task, rpcErr *a2a.JSONRPCError) (*a2a.Task, error) {
	if rpcErr != nil {
		return nil, a2a.NewRemoteAgentError(c.url, rpcErr.Code, rpcErr.Message)
	}
	if result == nil {
		return nil, a2a.NewAgentUnreachableError(c.url, errors.New("response carried neither result nor error"))
	}
	return result, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

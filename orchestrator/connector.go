// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/client"
)

// Connector wraps outbound task calls to one peer agent.
//
// Each connector owns a session id, generated once on first use and reused
// for every call, so the peer can group the delegated tasks into one
// conversation. A Connector is safe for concurrent use.
type Connector struct {
	name   string
	client *client.Client

	sessionOnce sync.Once
	sessionID   string
}

// NewConnector creates a Connector for the named peer reachable at url.
func NewConnector(name, url string, opts ...client.Option) (*Connector, error) {
	c, err := client.NewClient(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Connector{
		name:   name,
		client: c,
	}, nil
}

// Name returns the peer agent's name.
func (c *Connector) Name() string { return c.name }

// SessionID returns the connector's session id, generating it on first use.
func (c *Connector) SessionID() string {
	c.sessionOnce.Do(func() {
		c.sessionID = uuid.NewString()
	})
	return c.sessionID
}

// SendTask submits msg to the peer under the given task id and returns the
// peer's task snapshot.
//
// A JSON-RPC error from the peer surfaces as a [a2a.RemoteAgentError]; a
// transport failure or timeout as a [a2a.AgentUnreachableError].
func (c *Connector) SendTask(ctx context.Context, taskID string, msg *a2a.Message) (*a2a.Task, error) {
	return c.client.SendTask(ctx, a2a.TaskSendParams{
		ID:        taskID,
		SessionID: c.SessionID(),
		Message:   msg,
	})
}

// GetTask retrieves the peer's view of the task. historyLength bounds the
// returned history when non-negative.
func (c *Connector) GetTask(ctx context.Context, taskID string, historyLength int) (*a2a.Task, error) {
	params := a2a.TaskQueryParams{ID: taskID}
	if historyLength >= 0 {
		params.HistoryLength = &historyLength
	}
	return c.client.GetTask(ctx, params)
}

// Close releases the underlying client.
func (c *Connector) Close() error {
	return c.client.Close()
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command a2actl is an operator client for A2A agents: it fetches agent
// cards, submits tasks, and re-queries them from the command line.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/client"
)

type cardCmd struct {
	URL string `arg:"" help:"Agent base URL."`
}

func (c *cardCmd) Run() error {
	card, err := client.NewCardResolver(c.URL).Resolve(context.Background())
	if err != nil {
		return err
	}
	return printJSON(card)
}

type sendCmd struct {
	URL     string `arg:"" help:"Agent RPC endpoint."`
	Text    string `arg:"" help:"Message text to submit."`
	Task    string `help:"Task id. Generated when absent."`
	Session string `help:"Session id grouping related tasks."`
}

func (c *sendCmd) Run() error {
	cl, err := client.NewClient(c.URL)
	if err != nil {
		return err
	}
	defer cl.Close()

	taskID := c.Task
	if taskID == "" {
		taskID = uuid.NewString()
	}

	task, err := cl.SendTask(context.Background(), a2a.TaskSendParams{
		ID:        taskID,
		SessionID: c.Session,
		Message:   a2a.NewUserTextMessage(c.Text),
	})
	if err != nil {
		return err
	}
	return printJSON(task)
}

type getCmd struct {
	URL           string `arg:"" help:"Agent RPC endpoint."`
	Task          string `arg:"" help:"Task id to fetch."`
	HistoryLength int    `help:"Bound the returned history to the last N entries." default:"-1"`
}

func (c *getCmd) Run() error {
	cl, err := client.NewClient(c.URL)
	if err != nil {
		return err
	}
	defer cl.Close()

	params := a2a.TaskQueryParams{ID: c.Task}
	if c.HistoryLength >= 0 {
		params.HistoryLength = &c.HistoryLength
	}

	task, err := cl.GetTask(context.Background(), params)
	if err != nil {
		return err
	}
	return printJSON(task)
}

func printJSON(v any) error {
	if err := json.MarshalWrite(os.Stdout, v, jsontext.WithIndent("  ")); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println()
	return nil
}

type cli struct {
	Card cardCmd `cmd:"" help:"Fetch an agent's card."`
	Send sendCmd `cmd:"" help:"Submit a task message to an agent."`
	Get  getCmd  `cmd:"" help:"Fetch a task from an agent."`
}

func main() {
	godotenv.Load()

	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("a2actl"),
		kong.Description("Operator client for A2A agents."))
	kctx.FatalIfErrorf(kctx.Run())
}

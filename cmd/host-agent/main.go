// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command host-agent serves the orchestrator: an A2A server that routes each
// submission to a peer agent discovered from a registry file.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/discovery"
	"github.com/go-a2a/a2a-mesh/orchestrator"
	"github.com/go-a2a/a2a-mesh/server"
)

type cli struct {
	Host     string   `help:"Host to bind." default:"localhost" env:"A2A_HOST"`
	Port     int      `help:"Port to listen on." default:"10000" env:"A2A_PORT"`
	Registry string   `help:"JSON file listing peer agent base URLs." env:"A2A_REGISTRY"`
	Agents   []string `help:"Additional peer agent base URLs." env:"A2A_AGENTS"`
}

func main() {
	godotenv.Load()

	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("host-agent"),
		kong.Description("A2A orchestrator agent."))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	kctx.FatalIfErrorf(run(flags, logger))
}

func run(flags cli, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var urls []string
	if flags.Registry != "" {
		loaded, err := discovery.LoadRegistry(flags.Registry)
		if err != nil {
			return err
		}
		urls = loaded
	}
	urls = append(urls, flags.Agents...)
	if len(urls) == 0 {
		return fmt.Errorf("no peer agents configured: pass --registry or --agents")
	}

	disc := discovery.NewClient(urls, discovery.WithLogger(logger))

	orch, err := orchestrator.New(ctx, disc, orchestrator.DefaultKeywordPolicy(),
		orchestrator.WithLogger(logger))
	if err != nil {
		return err
	}
	defer orch.Close()

	names := orch.AgentNames()
	logger.Info("orchestrator ready", "agents", strings.Join(names, ","))

	tm, err := server.NewDefaultTaskManager(server.NewInMemoryTaskStore(), orch)
	if err != nil {
		return err
	}
	tm = tm.WithLogger(logger)

	endpoint := fmt.Sprintf("%s:%d", flags.Host, flags.Port)
	card := &a2a.AgentCard{
		Name:               "host_agent",
		Description:        "Routes requests to the best-suited peer agent.",
		URL:                "http://" + endpoint,
		Version:            a2a.Version,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "delegate",
				Name:        "Delegate",
				Description: "Delegates a request to one of the discovered agents.",
				Tags:        []string{"routing", "orchestration"},
			},
		},
	}

	srv, err := server.NewServer(card, tm,
		server.WithEndpoint(endpoint),
		server.WithLogger(logger))
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	return srv.Start()
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command calendar-agent serves the calendar leaf agent: an A2A server whose
// processor answers availability questions and books events.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"gorm.io/gorm"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/calendar"
	"github.com/go-a2a/a2a-mesh/phonebook"
	"github.com/go-a2a/a2a-mesh/server"
)

type cli struct {
	Host      string `help:"Host to bind." default:"localhost" env:"A2A_HOST"`
	Port      int    `help:"Port to listen on." default:"10001" env:"A2A_PORT"`
	Mock      bool   `help:"Serve the canned demo availability instead of a live calendar." env:"A2A_MOCK"`
	User      string `help:"Display name of the calendar owner." default:"demo" env:"A2A_USER"`
	UserEmail string `help:"Email address of the calendar owner." env:"A2A_USER_EMAIL"`
	DB        string `help:"SQLite file for tasks and contacts. Empty keeps everything in memory." env:"A2A_DB"`
	Contacts  string `help:"JSON file seeding the phonebook." env:"A2A_CONTACTS"`
}

func main() {
	// Absence of a .env file is fine; explicit environment still applies.
	godotenv.Load()

	var flags cli
	kctx := kong.Parse(&flags,
		kong.Name("calendar-agent"),
		kong.Description("A2A calendar agent."))

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	kctx.FatalIfErrorf(run(flags, logger))
}

func run(flags cli, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dsn := ":memory:"
	if flags.DB != "" {
		dsn = flags.DB
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("open database %s: %w", dsn, err)
	}

	pb, err := phonebook.New(db, phonebook.WithLogger(logger))
	if err != nil {
		return err
	}
	if flags.Contacts != "" {
		added, err := pb.Seed(ctx, flags.Contacts)
		if err != nil {
			return err
		}
		logger.Info("phonebook seeded", "file", flags.Contacts, "added", added)
	}

	var provider calendar.Provider = calendar.NewMemoryCalendar()
	if flags.Mock {
		provider = calendar.MockCalendar{}
	}

	processor, err := calendar.NewProcessor(provider,
		calendar.WithContacts(pb),
		calendar.WithLogger(logger))
	if err != nil {
		return err
	}

	var store server.TaskStore = server.NewInMemoryTaskStore()
	if flags.DB != "" {
		store, err = server.NewDatabaseTaskStore(db)
		if err != nil {
			return err
		}
	}
	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer store.Close(context.Background())

	tm, err := server.NewDefaultTaskManager(store, processor)
	if err != nil {
		return err
	}
	tm = tm.WithLogger(logger)

	endpoint := fmt.Sprintf("%s:%d", flags.Host, flags.Port)
	card := &a2a.AgentCard{
		Name:               "calendar_agent",
		Description:        fmt.Sprintf("Manages %s's calendar: checks availability and books events.", flags.User),
		URL:                "http://" + endpoint,
		Version:            a2a.Version,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills: []a2a.AgentSkill{
			{
				ID:          "availability",
				Name:        "Check availability",
				Description: "Lists open 30-minute slots on a given date and books events into them.",
				Tags:        []string{"availability", "time", "event", "calendar"},
				Examples: []string{
					"What times are available on 2026-03-02?",
					"Book a meeting with Ada at 3pm",
				},
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

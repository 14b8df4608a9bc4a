// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/a2a-mesh"
	"github.com/go-a2a/a2a-mesh/phonebook"
	"github.com/go-a2a/a2a-mesh/server"
)

// ContactDirectory is the slice of the phonebook the processor needs:
// resolving an attendee name to a contact.
type ContactDirectory interface {
	Lookup(ctx context.Context, name string) (*phonebook.Contact, error)
}

// Processor is the calendar agent's [server.TaskProcessor]. It reads the
// latest user message, decides between an availability inquiry and an event
// booking, and answers input-required when the request is missing a field it
// needs.
type Processor struct {
	provider Provider
	contacts ContactDirectory

	logger *slog.Logger
	tracer trace.Tracer
}

var _ server.TaskProcessor = (*Processor)(nil)

// ProcessorOption configures a [Processor].
type ProcessorOption func(*Processor)

// WithContacts sets the phonebook used to resolve attendees. Without one,
// attendee names are accepted unresolved.
func WithContacts(contacts ContactDirectory) ProcessorOption {
	return func(p *Processor) {
		p.contacts = contacts
	}
}

// WithLogger sets the [*slog.Logger] for the [Processor].
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithTracer sets the [trace.Tracer] for the [Processor].
func WithTracer(tracer trace.Tracer) ProcessorOption {
	return func(p *Processor) {
		p.tracer = tracer
	}
}

// NewProcessor creates a Processor over the given calendar provider.
func NewProcessor(provider Provider, opts ...ProcessorOption) (*Processor, error) {
	if provider == nil {
		return nil, fmt.Errorf("calendar provider is required")
	}

	p := &Processor{
		provider: provider,
		logger:   slog.Default(),
		tracer:   otel.GetTracerProvider().Tracer("a2a.calendar"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

var (
	dateRE     = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
	clockRE    = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	meridiemRE = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(am|pm)\b`)
	attendeeRE = regexp.MustCompile(`(?i)\bwith\s+([a-z]+(?:\s+[a-z]+)?)\b`)
	durationRE = regexp.MustCompile(`(?i)\bfor\s+(\d+)\s*min`)
	titleRE    = regexp.MustCompile(`(?i)(?:titled|called|about)\s+"([^"]+)"`)
	agendaRE   = regexp.MustCompile(`(?i)\bagenda[:\s]\s*(.+)$`)

	availabilityRE = regexp.MustCompile(`(?i)\b(availab|free|open slot|what time|when (are|is))`)
	bookingRE      = regexp.MustCompile(`(?i)\b(book|create|schedule|set up|meeting|event|appointment)\b`)
)

// request is what the processor could extract from the conversation so far.
// Fields accumulate across turns, so a follow-up only needs to supply what
// was missing.
type request struct {
	date     string
	clock    string
	attendee string
	title    string
	agenda   string
	duration int
}

// Process implements [server.TaskProcessor].
func (p *Processor) Process(ctx context.Context, history []*a2a.Message) (*server.ProcessResult, error) {
	ctx, span := p.tracer.Start(ctx, "calendar.Process")
	defer span.End()

	latest := latestUserText(history)
	if latest == "" {
		return inputRequired("Please tell me, as text, what you would like to do with the calendar."), nil
	}

	req := parseRequest(history)

	switch {
	case availabilityRE.MatchString(latest):
		span.SetAttributes(attribute.String("a2a.intent", "availability"))
		return p.availability(ctx, req)
	case bookingRE.MatchString(latest):
		span.SetAttributes(attribute.String("a2a.intent", "create_event"))
		return p.createEvent(ctx, req)
	default:
		return inputRequired("I can check availability or book an event. " +
			"Try \"what times are available on 2026-03-02\" or \"book a meeting with Ada at 3pm\"."), nil
	}
}

// availability answers an availability inquiry for the requested date.
func (p *Processor) availability(ctx context.Context, req request) (*server.ProcessResult, error) {
	slots, err := p.provider.Availability(ctx, req.date)
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}

	day := req.date
	if day == "" {
		day = "tomorrow"
	}
	if len(slots) == 0 {
		return &server.ProcessResult{
			Reply: a2a.NewAgentTextMessage(fmt.Sprintf("There are no open slots on %s.", day)),
			State: a2a.TaskStateCompleted,
		}, nil
	}

	times := make([]string, len(slots))
	slotData := make([]any, len(slots))
	for i, s := range slots {
		times[i] = s.Time
		slotData[i] = map[string]any{"time": s.Time, "duration": s.Duration}
	}

	p.logger.InfoContext(ctx, "availability answered", "date", day, "slots", len(slots))
	return &server.ProcessResult{
		Reply: a2a.NewAgentTextMessage(fmt.Sprintf(
			"Open %d-minute slots on %s: %s.", SlotMinutes, day, strings.Join(times, ", "))),
		State: a2a.TaskStateCompleted,
		Artifacts: []*a2a.Artifact{{
			Name:  "availability",
			Parts: []a2a.Part{a2a.NewDataPart(map[string]any{"date": day, "slots": slotData})},
		}},
	}, nil
}

// createEvent books an event once the conversation has supplied a date, a
// time, and a resolvable attendee.
func (p *Processor) createEvent(ctx context.Context, req request) (*server.ProcessResult, error) {
	if req.date == "" && req.clock == "" {
		return inputRequired("When should the event take place? Please give me a date (YYYY-MM-DD) and a time."), nil
	}
	if req.date == "" {
		return inputRequired("What date is the event on? Please use YYYY-MM-DD."), nil
	}
	if req.clock == "" {
		return inputRequired(fmt.Sprintf("What time on %s should the event start?", req.date)), nil
	}

	var attendee *phonebook.Contact
	if req.attendee != "" && p.contacts != nil {
		contact, err := p.contacts.Lookup(ctx, req.attendee)
		if err != nil {
			return inputRequired(fmt.Sprintf(
				"I could not find %q in the phonebook. Who should I invite?", req.attendee)), nil
		}
		attendee = contact
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", req.date+" "+req.clock, time.UTC)
	if err != nil {
		return inputRequired(fmt.Sprintf(
			"I could not understand %q as a time on %s. Please use HH:MM.", req.clock, req.date)), nil
	}

	ev := Event{
		Title:       req.title,
		Description: req.agenda,
		Start:       start,
		Duration:    time.Duration(req.duration) * time.Minute,
	}
	if ev.Title == "" {
		ev.Title = "Meeting"
		if req.attendee != "" {
			ev.Title = "Meeting with " + req.attendee
		}
	}
	if req.agenda != "" {
		ev.Description = "Agenda:\n" + req.agenda
	}
	if attendee != nil {
		ev.Attendee = attendee.FullName()
	} else if req.attendee != "" {
		ev.Attendee = req.attendee
	}

	if err := p.provider.CreateEvent(ctx, ev); err != nil {
		return inputRequired(fmt.Sprintf(
			"I could not book %q at %s on %s: %v. Would another time work?",
			ev.Title, req.clock, req.date, err)), nil
	}

	minutes := int(ev.End().Sub(ev.Start).Minutes())
	reply := fmt.Sprintf("Event created: %s on %s at %s for %d minutes.", ev.Title, req.date, req.clock, minutes)
	if ev.Attendee != "" {
		reply += " Invited: " + ev.Attendee + "."
	}

	p.logger.InfoContext(ctx, "event created",
		"title", ev.Title, "start", ev.Start, "minutes", minutes)
	return &server.ProcessResult{
		Reply: a2a.NewAgentTextMessage(reply),
		State: a2a.TaskStateCompleted,
		Artifacts: []*a2a.Artifact{{
			Name: "event",
			Parts: []a2a.Part{a2a.NewDataPart(map[string]any{
				"title":    ev.Title,
				"date":     req.date,
				"time":     req.clock,
				"duration": minutes,
				"attendee": ev.Attendee,
			})},
		}},
	}, nil
}

func inputRequired(text string) *server.ProcessResult {
	return &server.ProcessResult{
		Reply: a2a.NewAgentTextMessage(text),
		State: a2a.TaskStateInputRequired,
	}
}

// parseRequest extracts the request fields from every user turn so far,
// oldest first, letting later turns override earlier ones.
func parseRequest(history []*a2a.Message) request {
	var req request
	for _, msg := range history {
		if msg.Role != a2a.RoleUser {
			continue
		}
		text := msg.Text()

		if m := dateRE.FindStringSubmatch(text); m != nil {
			req.date = m[1]
		}
		if clock, ok := parseClock(text); ok {
			req.clock = clock
		}
		if m := attendeeRE.FindStringSubmatch(text); m != nil {
			if name := trimAttendee(m[1]); name != "" {
				req.attendee = name
			}
		}
		if m := titleRE.FindStringSubmatch(text); m != nil {
			req.title = m[1]
		}
		if m := agendaRE.FindStringSubmatch(text); m != nil {
			req.agenda = strings.TrimSpace(m[1])
		}
		if m := durationRE.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				req.duration = n
			}
		}
	}
	return req
}

// trimAttendee drops filler words the attendee pattern may have swallowed,
// as in "with Ada at 3pm".
func trimAttendee(raw string) string {
	words := strings.Fields(raw)
	kept := words[:0]
	for _, w := range words {
		switch strings.ToLower(w) {
		case "at", "on", "for", "about", "and", "the", "a", "an":
		default:
			kept = append(kept, w)
		}
	}
	return strings.Join(kept, " ")
}

// parseClock finds a start time as either "HH:MM" or "3pm".
func parseClock(text string) (string, bool) {
	if m := clockRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			return fmt.Sprintf("%02d:%02d", hour, minute), true
		}
	}
	if m := meridiemRE.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		if hour >= 1 && hour <= 12 {
			if strings.EqualFold(m[2], "pm") && hour != 12 {
				hour += 12
			}
			if strings.EqualFold(m[2], "am") && hour == 12 {
				hour = 0
			}
			return fmt.Sprintf("%02d:00", hour), true
		}
	}
	return "", false
}

// latestUserText returns the text of the most recent user message.
func latestUserText(history []*a2a.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == a2a.RoleUser {
			return history[i].Text()
		}
	}
	return ""
}

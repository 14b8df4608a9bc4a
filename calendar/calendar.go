// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package calendar implements the calendar leaf agent: a task processor that
// answers availability questions and books events against a calendar
// provider.
package calendar

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Business hours bound the availability scan.
const (
	BusinessHoursStart = 9  // 09:00
	BusinessHoursEnd   = 17 // 17:00

	// SlotMinutes is the granularity of availability slots and the default
	// event duration.
	SlotMinutes = 30
)

// Slot is one bookable window within business hours.
type Slot struct {
	// Time is the slot start in "HH:MM", 24-hour clock.
	Time string `json:"time"`

	// Duration is the slot length in minutes.
	Duration int `json:"duration"`
}

// Event is a calendar entry.
type Event struct {
	// Title names the event. Required.
	Title string

	// Description carries free-form detail. An agenda is appended to it as
	// its own paragraph.
	Description string

	// Attendee is the invited contact's display name. Optional.
	Attendee string

	// Start is the event start time.
	Start time.Time

	// Duration is the event length. Zero means [SlotMinutes] minutes.
	Duration time.Duration
}

// End returns the event end time, applying the default duration.
func (e Event) End() time.Time {
	d := e.Duration
	if d == 0 {
		d = SlotMinutes * time.Minute
	}
	return e.Start.Add(d)
}

// Provider is the narrow calendar interface the processor talks to. The
// repository ships in-memory implementations only; a real calendar API client
// substitutes here without touching the processor.
type Provider interface {
	// Availability returns the free slots on the given "YYYY-MM-DD" date.
	// An empty date means tomorrow.
	Availability(ctx context.Context, date string) ([]Slot, error)

	// CreateEvent books an event, failing when it collides with an existing
	// one.
	CreateEvent(ctx context.Context, ev Event) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock is a [Clock] frozen at a single instant.
type FixedClock struct {
	T time.Time
}

// Now implements [Clock].
func (c FixedClock) Now() time.Time { return c.T }

// MemoryCalendar is an in-memory [Provider]. Events live for the process
// lifetime only.
type MemoryCalendar struct {
	mu     sync.Mutex
	events []Event
	clock  Clock
}

var _ Provider = (*MemoryCalendar)(nil)

// MemoryCalendarOption configures a [MemoryCalendar].
type MemoryCalendarOption func(*MemoryCalendar)

// WithClock sets the calendar's clock.
func WithClock(clock Clock) MemoryCalendarOption {
	return func(c *MemoryCalendar) {
		c.clock = clock
	}
}

// WithEvents seeds the calendar with existing events.
func WithEvents(events ...Event) MemoryCalendarOption {
	return func(c *MemoryCalendar) {
		c.events = append(c.events, events...)
	}
}

// NewMemoryCalendar creates an empty in-memory calendar.
func NewMemoryCalendar(opts ...MemoryCalendarOption) *MemoryCalendar {
	c := &MemoryCalendar{
		clock: systemClock{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Availability scans the date's business hours in 30-minute steps and
// returns the slots that collide with no existing event.
func (c *MemoryCalendar) Availability(ctx context.Context, date string) ([]Slot, error) {
	day, err := c.resolveDate(date)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var slots []Slot
	cursor := day.Add(BusinessHoursStart * time.Hour)
	end := day.Add(BusinessHoursEnd * time.Hour)
	for cursor.Before(end) {
		slotEnd := cursor.Add(SlotMinutes * time.Minute)
		if !c.conflictsLocked(cursor, slotEnd) {
			slots = append(slots, Slot{
				Time:     cursor.Format("15:04"),
				Duration: SlotMinutes,
			})
		}
		cursor = slotEnd
	}
	return slots, nil
}

// CreateEvent books an event after a conflict check. Two events collide when
// their windows overlap and they carry the same title.
func (c *MemoryCalendar) CreateEvent(ctx context.Context, ev Event) error {
	if ev.Title == "" {
		return fmt.Errorf("event needs a title")
	}
	if ev.Start.IsZero() {
		return fmt.Errorf("event needs a start time")
	}
	if ev.Duration == 0 {
		ev.Duration = SlotMinutes * time.Minute
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.events {
		if existing.Title == ev.Title && overlaps(ev.Start, ev.End(), existing.Start, existing.End()) {
			return fmt.Errorf("event %q already booked at %s", ev.Title, existing.Start.Format(time.RFC3339))
		}
	}

	c.events = append(c.events, ev)
	return nil
}

// Events returns a copy of the stored events.
func (c *MemoryCalendar) Events() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()

	events := make([]Event, len(c.events))
	copy(events, c.events)
	return events
}

func (c *MemoryCalendar) conflictsLocked(slotStart, slotEnd time.Time) bool {
	for _, ev := range c.events {
		if overlaps(slotStart, slotEnd, ev.Start, ev.End()) {
			return true
		}
	}
	return false
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// resolveDate parses a "YYYY-MM-DD" date, defaulting to tomorrow (UTC) when
// the date is empty.
func (c *MemoryCalendar) resolveDate(date string) (time.Time, error) {
	if date == "" {
		tomorrow := c.clock.Now().AddDate(0, 0, 1)
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), 0, 0, 0, 0, time.UTC), nil
	}

	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", date)
	}
	return day, nil
}

// MockCalendar is the demo [Provider]: availability is always 10:00, 10:30,
// and 11:00, and every booking succeeds.
type MockCalendar struct{}

var _ Provider = (*MockCalendar)(nil)

// Availability implements [Provider] with the fixed demo slots.
func (MockCalendar) Availability(ctx context.Context, date string) ([]Slot, error) {
	return []Slot{
		{Time: "10:00", Duration: SlotMinutes},
		{Time: "10:30", Duration: SlotMinutes},
		{Time: "11:00", Duration: SlotMinutes},
	}, nil
}

// CreateEvent implements [Provider]; the mock accepts every event.
func (MockCalendar) CreateEvent(ctx context.Context, ev Event) error {
	return nil
}

// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package phonebook stores the contact directory agents consult when a task
// names a person: who they are, whether they run an A2A agent, and how to
// reach them by email.
package phonebook

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/go-json-experiment/json"
	"gorm.io/gorm"
)

// Contact is one entry of the directory. AgentName/AgentURL are set when the
// contact runs an A2A agent of their own; Email when they are reachable by
// mail.
type Contact struct {
	ID        string `gorm:"primaryKey;size:32" json:"id,omitzero"`
	FirstName string `gorm:"size:128;index" json:"firstName"`
	LastName  string `gorm:"size:128;index" json:"lastName"`
	AgentName string `gorm:"size:128" json:"agentName,omitzero"`
	AgentURL  string `gorm:"size:256" json:"agentUrl,omitzero"`
	Email     string `gorm:"size:256" json:"email,omitzero"`
}

// TableName returns the table name for contacts.
func (Contact) TableName() string {
	return "contacts"
}

// FullName returns "first last" with a single space, trimmed.
func (c *Contact) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// HasAgent reports whether the contact can be reached through an A2A agent.
func (c *Contact) HasAgent() bool {
	return c.AgentName != "" && c.AgentURL != ""
}

// HasEmail reports whether the contact can be reached by email.
func (c *Contact) HasEmail() bool {
	return c.Email != ""
}

// ErrContactNotFound is returned by lookups that match no contact.
var ErrContactNotFound = errors.New("contact not found")

// PhoneBook is a contact directory backed by a GORM database.
type PhoneBook struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Option represents an option for configuring the [PhoneBook].
type Option func(*PhoneBook)

// WithLogger sets the [*slog.Logger] for the [PhoneBook].
func WithLogger(logger *slog.Logger) Option {
	return func(pb *PhoneBook) {
		pb.logger = logger
	}
}

// New creates a PhoneBook over db and migrates its schema.
func New(db *gorm.DB, opts ...Option) (*PhoneBook, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}

	pb := &PhoneBook{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(pb)
	}

	if err := db.AutoMigrate(&Contact{}); err != nil {
		return nil, fmt.Errorf("migrate contacts table: %w", err)
	}
	return pb, nil
}

// Add stores a contact, generating a random id when the contact carries none.
func (pb *PhoneBook) Add(ctx context.Context, contact *Contact) error {
	if contact == nil {
		return fmt.Errorf("contact cannot be nil")
	}
	if contact.FirstName == "" && contact.LastName == "" {
		return fmt.Errorf("contact needs a name")
	}
	if contact.ID == "" {
		contact.ID = newContactID()
	}

	if err := pb.db.WithContext(ctx).Create(contact).Error; err != nil {
		return fmt.Errorf("add contact %s: %w", contact.FullName(), err)
	}

	pb.logger.InfoContext(ctx, "contact added",
		"contact_id", contact.ID, "name", contact.FullName(), "has_agent", contact.HasAgent())
	return nil
}

// Lookup finds the first contact whose first, last, or full name contains
// name, case-insensitively. It returns [ErrContactNotFound] when nothing
// matches.
func (pb *PhoneBook) Lookup(ctx context.Context, name string) (*Contact, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrContactNotFound
	}

	// SQLite's LOWER is ASCII-only, which covers the directory's content;
	// the full-name match needs the concatenation done in SQL.
	var contact Contact
	err := pb.db.WithContext(ctx).
		Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(first_name || ' ' || last_name) LIKE ?",
			"%"+needle+"%", "%"+needle+"%", "%"+needle+"%").
		Order("first_name, last_name").
		First(&contact).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("lookup contact %q: %w", name, err)
	}
	return &contact, nil
}

// Get retrieves a contact by id.
func (pb *PhoneBook) Get(ctx context.Context, id string) (*Contact, error) {
	var contact Contact
	if err := pb.db.WithContext(ctx).Where("id = ?", id).First(&contact).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrContactNotFound
		}
		return nil, fmt.Errorf("get contact %s: %w", id, err)
	}
	return &contact, nil
}

// Update replaces the stored contact with the same id.
func (pb *PhoneBook) Update(ctx context.Context, contact *Contact) error {
	if contact == nil || contact.ID == "" {
		return fmt.Errorf("contact needs an id")
	}

	result := pb.db.WithContext(ctx).Model(&Contact{}).Where("id = ?", contact.ID).Updates(map[string]any{
		"first_name": contact.FirstName,
		"last_name":  contact.LastName,
		"agent_name": contact.AgentName,
		"agent_url":  contact.AgentURL,
		"email":      contact.Email,
	})
	if result.Error != nil {
		return fmt.Errorf("update contact %s: %w", contact.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// Remove deletes a contact by id.
func (pb *PhoneBook) Remove(ctx context.Context, id string) error {
	result := pb.db.WithContext(ctx).Where("id = ?", id).Delete(&Contact{})
	if result.Error != nil {
		return fmt.Errorf("remove contact %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrContactNotFound
	}
	return nil
}

// All returns every contact, ordered by name.
func (pb *PhoneBook) All(ctx context.Context) ([]*Contact, error) {
	var contacts []*Contact
	if err := pb.db.WithContext(ctx).Order("first_name, last_name").Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return contacts, nil
}

// Seed loads contacts from a JSON file, a JSON array of [Contact] objects,
// skipping ids that already exist. It returns the number of contacts added.
func (pb *PhoneBook) Seed(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read contacts %s: %w", path, err)
	}

	var contacts []*Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return 0, fmt.Errorf("parse contacts %s: %w", path, err)
	}

	added := 0
	for _, contact := range contacts {
		if contact.ID != "" {
			if _, err := pb.Get(ctx, contact.ID); err == nil {
				continue
			}
		}
		if err := pb.Add(ctx, contact); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// newContactID returns a random 16-hex-character identifier.
func newContactID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

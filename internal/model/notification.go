package model

import (
	"time"
)

// Severity indicates how urgent a notification is
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityNormal   Severity = "normal"
	SeverityLow      Severity = "low"
)

// Valid reports whether s is one of the known severity levels
func (s Severity) Valid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityNormal, SeverityLow:
		return true
	}
	return false
}

// Notification represents a persisted user notification.
// Empty strings in optional text fields are stored as NULL; an empty
// Scope means the notification is never deduplicated.
type Notification struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"user_id" db:"user_id" validate:"required"`
	Origin      string     `json:"origin" db:"origin"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	SavedAt     *time.Time `json:"saved_at,omitempty" db:"saved_at"`
	ReadAt      *time.Time `json:"read_at,omitempty" db:"read_at"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty" db:"updated_at"`
	Title       string     `json:"title" db:"title" validate:"required"`
	Description string     `json:"description,omitempty" db:"description"`
	Link        string     `json:"link,omitempty" db:"link"`
	Severity    Severity   `json:"severity" db:"severity" validate:"required,oneof=critical high normal low"`
	Topic       string     `json:"topic,omitempty" db:"topic"`
	Scope       string     `json:"scope,omitempty" db:"scope"`
	Icon        string     `json:"icon,omitempty" db:"icon"`
}

// Read reports whether the notification has been marked read
func (n *Notification) Read() bool {
	return n.ReadAt != nil
}

// Saved reports whether the notification has been bookmarked
func (n *Notification) Saved() bool {
	return n.SavedAt != nil
}

// NotificationPayload carries the caller-supplied fields overwritten on
// a restore. Read/saved state and creation time are never part of it.
type NotificationPayload struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description,omitempty"`
	Link        string   `json:"link,omitempty"`
	Severity    Severity `json:"severity" validate:"required,oneof=critical high normal low"`
	Topic       string   `json:"topic,omitempty"`
	Icon        string   `json:"icon,omitempty"`
}

// NotificationStatus holds per-user aggregate counts, derived at query
// time from the read column's nullness
type NotificationStatus struct {
	Unread int `json:"unread" db:"unread"`
	Read   int `json:"read" db:"read"`
}

// NotificationMarkResponse represents the response after a bulk mark operation
type NotificationMarkResponse struct {
	AffectedCount int64 `json:"affected_count"`
}

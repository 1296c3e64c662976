package model

import (
	"time"
)

// ReadState is a three-valued read filter. The zero value means "don't
// filter", so an absent query parameter can never be confused with
// filtering for unread.
type ReadState int

const (
	// ReadAny matches both read and unread notifications
	ReadAny ReadState = iota
	// ReadOnly matches notifications with a read timestamp
	ReadOnly
	// UnreadOnly matches notifications without a read timestamp
	UnreadOnly
)

// NotificationFilter controls filtering and pagination for notification
// queries. All predicates are optional and combine with logical AND.
type NotificationFilter struct {
	Read      ReadState
	SavedOnly bool
	// CreatedAfter is an exclusive lower bound: a notification created
	// exactly at this instant is excluded.
	CreatedAfter time.Time
	// Search is a case-insensitive substring matched against title and
	// description.
	Search string
	Limit  int
	Offset int
}

// CreatedAfterPreset maps a stable key to a display label and the
// computation of its lower bound. Pure configuration data for the
// presentation layer; never mutated at runtime.
type CreatedAfterPreset struct {
	Label string
	Since func(now time.Time) time.Time
}

// CreatedAfterPresets are the preset keys accepted by the `since` list
// parameter.
var CreatedAfterPresets = map[string]CreatedAfterPreset{
	"today": {
		Label: "Today",
		Since: func(now time.Time) time.Time {
			y, m, d := now.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		},
	},
	"last7days": {
		Label: "Last 7 days",
		Since: func(now time.Time) time.Time { return now.AddDate(0, 0, -7) },
	},
	"last30days": {
		Label: "Last 30 days",
		Since: func(now time.Time) time.Time { return now.AddDate(0, 0, -30) },
	},
	"lastyear": {
		Label: "Last year",
		Since: func(now time.Time) time.Time { return now.AddDate(-1, 0, 0) },
	},
}

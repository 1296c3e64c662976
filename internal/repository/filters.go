package repository

import (
	"fmt"
	"strings"

	"github.com/yourorg/notification-service/internal/model"
)

// notificationColumns is the canonical select list. Optional text
// columns are stored as NULL but surfaced as empty strings.
const notificationColumns = `id, user_id, origin, created_at, saved_at, read_at, updated_at,
		title,
		COALESCE(description, '') AS description,
		COALESCE(link, '') AS link,
		severity,
		COALESCE(topic, '') AS topic,
		COALESCE(scope, '') AS scope,
		COALESCE(icon, '') AS icon`

const selectNotification = `SELECT ` + notificationColumns + ` FROM notifications`

// buildListQuery composes every predicate of the filter into a single
// conjunctive WHERE clause so the database evaluates one plan. Results
// are always user-scoped and ordered newest first.
func buildListQuery(userID string, filter model.NotificationFilter) (string, []interface{}) {
	conditions := []string{"user_id = $1"}
	args := []interface{}{userID}

	switch filter.Read {
	case model.ReadOnly:
		conditions = append(conditions, "read_at IS NOT NULL")
	case model.UnreadOnly:
		conditions = append(conditions, "read_at IS NULL")
	}

	if filter.SavedOnly {
		conditions = append(conditions, "saved_at IS NOT NULL")
	}

	if !filter.CreatedAfter.IsZero() {
		// Exclusive bound: rows created exactly at the cutoff are excluded.
		args = append(args, filter.CreatedAfter)
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", len(args)))
	}

	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := len(args)
		conditions = append(conditions,
			fmt.Sprintf("(title ILIKE $%d OR description ILIKE $%d)", n, n))
	}

	query := selectNotification + " WHERE " + strings.Join(conditions, " AND ") +
		" ORDER BY created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", filter.Offset)
	}

	return query, args
}

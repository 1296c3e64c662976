package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/yourorg/notification-service/internal/model"
)

func TestBuildListQueryUserScopeOnly(t *testing.T) {
	query, args := buildListQuery("alice", model.NotificationFilter{})

	if !strings.Contains(query, "WHERE user_id = $1") {
		t.Errorf("query must always be user-scoped, got: %s", query)
	}
	if !strings.Contains(query, "ORDER BY created_at DESC") {
		t.Errorf("query must order newest first, got: %s", query)
	}
	if strings.Contains(query, "LIMIT") || strings.Contains(query, "OFFSET") {
		t.Errorf("no pagination requested but query has some: %s", query)
	}
	if len(args) != 1 || args[0] != "alice" {
		t.Errorf("expected args [alice], got %v", args)
	}
}

func TestBuildListQueryReadTriState(t *testing.T) {
	tests := []struct {
		name       string
		read       model.ReadState
		wantClause string
		skipClause string
	}{
		{"any", model.ReadAny, "", "read_at"},
		{"read only", model.ReadOnly, "read_at IS NOT NULL", ""},
		{"unread only", model.UnreadOnly, "read_at IS NULL", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, _ := buildListQuery("alice", model.NotificationFilter{Read: tt.read})
			if tt.wantClause != "" && !strings.Contains(query, tt.wantClause) {
				t.Errorf("expected %q in query: %s", tt.wantClause, query)
			}
			if tt.skipClause != "" && strings.Contains(query, tt.skipClause) {
				t.Errorf("did not expect %q in query: %s", tt.skipClause, query)
			}
		})
	}
}

func TestBuildListQueryAllPredicatesCompose(t *testing.T) {
	cutoff := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	query, args := buildListQuery("alice", model.NotificationFilter{
		Read:         model.UnreadOnly,
		SavedOnly:    true,
		CreatedAfter: cutoff,
		Search:       "deploy",
		Limit:        20,
		Offset:       40,
	})

	for _, clause := range []string{
		"user_id = $1",
		"read_at IS NULL",
		"saved_at IS NOT NULL",
		"created_at > $2",
		"(title ILIKE $3 OR description ILIKE $3)",
		"LIMIT 20",
		"OFFSET 40",
	} {
		if !strings.Contains(query, clause) {
			t.Errorf("expected %q in query: %s", clause, query)
		}
	}

	// A single conjunctive plan: one SELECT, predicates joined by AND.
	if strings.Count(query, "SELECT") != 1 {
		t.Errorf("expected a single query plan, got: %s", query)
	}
	if len(args) != 3 {
		t.Fatalf("expected 3 args, got %v", args)
	}
	if args[1] != cutoff {
		t.Errorf("expected cutoff arg %v, got %v", cutoff, args[1])
	}
	if args[2] != "%deploy%" {
		t.Errorf("expected search pattern %%deploy%%, got %v", args[2])
	}
}

func TestBuildListQueryCreatedAfterExclusive(t *testing.T) {
	query, _ := buildListQuery("alice", model.NotificationFilter{
		CreatedAfter: time.Now(),
	})

	// The boundary is exclusive: a record created exactly at the cutoff
	// must not match.
	if !strings.Contains(query, "created_at > $2") {
		t.Errorf("expected strict created_at comparison, got: %s", query)
	}
	if strings.Contains(query, ">=") {
		t.Errorf("boundary must be exclusive, got: %s", query)
	}
}

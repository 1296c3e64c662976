package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourorg/notification-service/internal/model"
	"github.com/yourorg/notification-service/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryStore is an in-memory service.NotificationStore for handler tests
type memoryStore struct {
	mu            sync.Mutex
	notifications map[string]*model.Notification
	lastFilter    model.NotificationFilter
}

func newMemoryStore() *memoryStore {
	return &memoryStore{notifications: map[string]*model.Notification{}}
}

func (m *memoryStore) ListNotifications(_ context.Context, userID string, filter model.NotificationFilter) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastFilter = filter
	out := []model.Notification{}
	for _, n := range m.notifications {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memoryStore) GetNotificationByID(_ context.Context, id string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, nil
	}
	copied := *n
	return &copied, nil
}

func (m *memoryStore) GetScopeNotification(_ context.Context, userID, origin, scope string) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.notifications {
		if n.UserID == userID && n.Origin == origin && n.Scope == scope {
			copied := *n
			return &copied, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) GetStatus(_ context.Context, userID string) (*model.NotificationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := &model.NotificationStatus{}
	for _, n := range m.notifications {
		if n.UserID != userID {
			continue
		}
		if n.ReadAt == nil {
			status.Unread++
		} else {
			status.Read++
		}
	}
	return status, nil
}

func (m *memoryStore) SaveNotification(_ context.Context, n *model.Notification) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *n
	m.notifications[n.ID] = &copied
	result := copied
	return &result, nil
}

func (m *memoryStore) RestoreNotification(_ context.Context, id string, payload model.NotificationPayload) (*model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, nil
	}
	n.Title = payload.Title
	n.Severity = payload.Severity
	n.ReadAt = nil
	copied := *n
	return &copied, nil
}

func (m *memoryStore) mark(userID string, ids []string, set func(n *model.Notification)) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, id := range ids {
		n, ok := m.notifications[id]
		if !ok || n.UserID != userID {
			continue
		}
		set(n)
		count++
	}
	return count, nil
}

func (m *memoryStore) MarkRead(_ context.Context, userID string, ids []string) (int64, error) {
	now := time.Now().UTC()
	return m.mark(userID, ids, func(n *model.Notification) { n.ReadAt = &now })
}

func (m *memoryStore) MarkUnread(_ context.Context, userID string, ids []string) (int64, error) {
	return m.mark(userID, ids, func(n *model.Notification) { n.ReadAt = nil })
}

func (m *memoryStore) MarkSaved(_ context.Context, userID string, ids []string) (int64, error) {
	now := time.Now().UTC()
	return m.mark(userID, ids, func(n *model.Notification) { n.SavedAt = &now })
}

func (m *memoryStore) MarkUnsaved(_ context.Context, userID string, ids []string) (int64, error) {
	return m.mark(userID, ids, func(n *model.Notification) { n.SavedAt = nil })
}

// setupTestRouter wires the handler behind a stub auth middleware that
// injects the given user
func setupTestRouter(store service.NotificationStore, userID string) *gin.Engine {
	svc := service.NewNotificationService(store, zap.NewNop())
	h := NewNotificationHandler(svc, zap.NewNop())

	router := gin.New()
	authed := router.Group("/api/v1/users/me/notifications")
	authed.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Next()
	})
	authed.GET("", h.GetNotifications)
	authed.GET("/status", h.GetStatus)
	authed.GET("/:id", h.GetNotification)
	authed.PUT("/read", h.MarkRead)
	authed.PUT("/unread", h.MarkUnread)
	authed.PUT("/save", h.MarkSaved)
	authed.PUT("/unsave", h.MarkUnsaved)

	router.POST("/api/v1/service/notifications", h.CreateNotification)

	return router
}

func seedNotification(t *testing.T, store *memoryStore, userID, id string) *model.Notification {
	t.Helper()
	n := &model.Notification{
		ID:        id,
		UserID:    userID,
		Title:     "Build finished",
		Severity:  model.SeverityNormal,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := store.SaveNotification(context.Background(), n); err != nil {
		t.Fatalf("seeding: %v", err)
	}
	return n
}

func doRequest(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestGetNotificationsEmpty(t *testing.T) {
	router := setupTestRouter(newMemoryStore(), "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got []model.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
	// An empty result is a JSON array, not null.
	if strings.TrimSpace(w.Body.String()) == "null" {
		t.Error("empty result must encode as [], got null")
	}
}

func TestGetNotificationsFilterParsing(t *testing.T) {
	store := newMemoryStore()
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodGet,
		"/api/v1/users/me/notifications?read=false&saved=true&q=deploy&limit=10&offset=20", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	f := store.lastFilter
	if f.Read != model.UnreadOnly {
		t.Errorf("expected UnreadOnly, got %v", f.Read)
	}
	if !f.SavedOnly {
		t.Error("expected SavedOnly filter")
	}
	if f.Search != "deploy" {
		t.Errorf("expected search %q, got %q", "deploy", f.Search)
	}
	if f.Limit != 10 || f.Offset != 20 {
		t.Errorf("expected limit 10 offset 20, got %d %d", f.Limit, f.Offset)
	}
}

func TestGetNotificationsReadParamAbsentMeansAny(t *testing.T) {
	store := newMemoryStore()
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.lastFilter.Read != model.ReadAny {
		t.Errorf("absent read param must mean no read filtering, got %v", store.lastFilter.Read)
	}
}

func TestGetNotificationsBadParams(t *testing.T) {
	router := setupTestRouter(newMemoryStore(), "alice")

	tests := []struct {
		name  string
		query string
	}{
		{"bad read", "?read=yes"},
		{"bad created_after", "?created_after=yesterday"},
		{"unknown since preset", "?since=last5minutes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications"+tt.query, "")
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestGetNotificationsCreatedAfterAndPreset(t *testing.T) {
	store := newMemoryStore()
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodGet,
		"/api/v1/users/me/notifications?created_after=2024-05-01T00:00:00Z", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !store.lastFilter.CreatedAfter.Equal(want) {
		t.Errorf("expected cutoff %v, got %v", want, store.lastFilter.CreatedAfter)
	}

	w = doRequest(router, http.MethodGet, "/api/v1/users/me/notifications?since=last7days", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cutoff := store.lastFilter.CreatedAfter
	if cutoff.IsZero() {
		t.Fatal("expected preset to set a cutoff")
	}
	age := time.Since(cutoff)
	if age < 6*24*time.Hour || age > 8*24*time.Hour {
		t.Errorf("last7days cutoff out of range: %v", cutoff)
	}
}

func TestGetStatus(t *testing.T) {
	store := newMemoryStore()
	seedNotification(t, store, "alice", "n1")
	seedNotification(t, store, "alice", "n2")
	router := setupTestRouter(store, "alice")

	if _, err := store.MarkRead(context.Background(), "alice", []string{"n1"}); err != nil {
		t.Fatalf("marking read: %v", err)
	}

	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var status model.NotificationStatus
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if status.Unread != 1 || status.Read != 1 {
		t.Errorf("expected 1 unread / 1 read, got %+v", status)
	}
}

func TestGetNotificationByID(t *testing.T) {
	store := newMemoryStore()
	seedNotification(t, store, "alice", "n1")
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications/n1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var got model.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.ID != "n1" || got.Title != "Build finished" {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestGetNotificationUnknownID(t *testing.T) {
	router := setupTestRouter(newMemoryStore(), "alice")

	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications/unknown", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestGetNotificationOwnedByOtherUser(t *testing.T) {
	store := newMemoryStore()
	seedNotification(t, store, "bob", "n1")
	router := setupTestRouter(store, "alice")

	// Another user's record is indistinguishable from a missing one.
	w := doRequest(router, http.MethodGet, "/api/v1/users/me/notifications/n1", "")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for foreign notification, got %d", w.Code)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	store := newMemoryStore()
	seedNotification(t, store, "alice", "n1")
	seedNotification(t, store, "bob", "n2")
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodPut, "/api/v1/users/me/notifications/read",
		`{"ids": ["n1", "n2", "unknown"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp model.NotificationMarkResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.AffectedCount != 1 {
		t.Errorf("only the caller's own record should be marked, got count %d", resp.AffectedCount)
	}
	if store.notifications["n2"].ReadAt != nil {
		t.Error("foreign notification must stay untouched")
	}
}

func TestMarkEndpointsBadBody(t *testing.T) {
	router := setupTestRouter(newMemoryStore(), "alice")

	for _, path := range []string{"/read", "/unread", "/save", "/unsave"} {
		t.Run(path, func(t *testing.T) {
			w := doRequest(router, http.MethodPut, "/api/v1/users/me/notifications"+path, `{`)
			if w.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for malformed body, got %d", w.Code)
			}
		})
	}
}

func TestMarkSaveUnsaveRoundTrip(t *testing.T) {
	store := newMemoryStore()
	seedNotification(t, store, "alice", "n1")
	router := setupTestRouter(store, "alice")

	w := doRequest(router, http.MethodPut, "/api/v1/users/me/notifications/save", `{"ids": ["n1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.notifications["n1"].SavedAt == nil {
		t.Fatal("expected record to be bookmarked")
	}

	w = doRequest(router, http.MethodPut, "/api/v1/users/me/notifications/unsave", `{"ids": ["n1"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if store.notifications["n1"].SavedAt != nil {
		t.Error("expected bookmark to be cleared")
	}
}

func TestCreateNotification(t *testing.T) {
	store := newMemoryStore()
	router := setupTestRouter(store, "")

	w := doRequest(router, http.MethodPost, "/api/v1/service/notifications",
		`{"user_id": "alice", "title": "Deploy failed", "severity": "critical", "origin": "ci"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var got model.Notification
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if got.ID == "" {
		t.Error("expected a generated id")
	}
	if got.UserID != "alice" || got.Severity != model.SeverityCritical {
		t.Errorf("unexpected notification: %+v", got)
	}
}

func TestCreateNotificationRejectsBadSeverity(t *testing.T) {
	router := setupTestRouter(newMemoryStore(), "")

	w := doRequest(router, http.MethodPost, "/api/v1/service/notifications",
		`{"user_id": "alice", "title": "x", "severity": "urgent"}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
}

package audit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store := NewStore(db)
	require.NoError(t, store.AutoMigrate())
	return store
}

func newEvent(actor, resource string, at time.Time) *Event {
	return &Event{
		ID:           uuid.New().String(),
		Actor:        actor,
		Method:       "POST",
		Path:         "/api/v1/" + resource,
		ResourceType: resource,
		Action:       "create",
		Outcome:      "success",
		StatusCode:   http.StatusCreated,
		CreatedAt:    at,
	}
}

func TestStoreListPaginates(t *testing.T) {
	store := setupTestStore(t)
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Append(newEvent("alice", "vessels", base.Add(time.Duration(i)*time.Minute))))
	}

	page, next, total, err := store.List(ListFilter{}, 2, "")
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.NotEmpty(t, next)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt))

	rest, next2, _, err := store.List(ListFilter{}, 10, next)
	require.NoError(t, err)
	assert.Len(t, rest, 3)
	assert.Empty(t, next2)
}

func TestStoreListFilters(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now()
	require.NoError(t, store.Append(newEvent("alice", "vessels", now)))
	require.NoError(t, store.Append(newEvent("bob", "sensors", now)))

	events, _, total, err := store.List(ListFilter{Actor: "bob"}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, events, 1)
	assert.Equal(t, "sensors", events[0].ResourceType)
}

func TestStoreGetMissingReturnsNil(t *testing.T) {
	store := setupTestStore(t)
	e, err := store.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Now()
	require.NoError(t, store.Append(newEvent("alice", "vessels", now.Add(-48*time.Hour))))
	require.NoError(t, store.Append(newEvent("alice", "vessels", now)))

	n, err := store.Prune(ctx, now, 0)
	require.NoError(t, err)
	assert.Zero(t, n, "zero days keeps everything")

	n, err = store.Prune(ctx, now, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, _, total, err := store.List(ListFilter{}, 10, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestRetentionUsesClock(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	now := time.Now()
	require.NoError(t, store.Append(newEvent("alice", "vessels", now)))

	r := NewRetention(store, Config{Enabled: true, RetentionDays: 7}, nil)
	assert.Zero(t, r.Prune(ctx))

	r.now = func() time.Time { return now.AddDate(0, 0, 8) }
	assert.Equal(t, int64(1), r.Prune(ctx))
}

func TestRetentionRunPrunesAtStart(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Append(newEvent("alice", "vessels", time.Now().AddDate(0, 0, -30))))

	r := NewRetention(store, Config{Enabled: true, RetentionDays: 7}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		_, _, total, err := store.List(ListFilter{}, 10, "")
		return err == nil && total == 0
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("retention did not stop")
	}
}

func TestRetentionDisabledReturns(t *testing.T) {
	for name, r := range map[string]*Retention{
		"no store":     NewRetention(nil, DefaultConfig(), nil),
		"disabled":     NewRetention(setupTestStore(t), Config{RetentionDays: 90}, nil),
		"keep forever": NewRetention(setupTestStore(t), Config{Enabled: true}, nil),
	} {
		t.Run(name, func(t *testing.T) {
			done := make(chan struct{})
			go func() {
				r.Run(context.Background())
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(time.Second):
				t.Fatal("disabled retention did not return")
			}
		})
	}
}

func TestMiddlewareRecordsMutations(t *testing.T) {
	store := setupTestStore(t)
	r := chi.NewRouter()
	r.Use(Middleware(store, DefaultConfig(), nil))
	r.Delete("/api/v1/vessels/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Get("/api/v1/vessels", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/vessels/7", nil)
	req.Header.Set(ActorHeader, "carol")
	r.ServeHTTP(httptest.NewRecorder(), req)
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/vessels", nil))

	events, _, total, err := store.List(ListFilter{}, 10, "")
	require.NoError(t, err)
	require.Equal(t, int64(1), total, "GET must not be audited")
	e := events[0]
	assert.Equal(t, "carol", e.Actor)
	assert.Equal(t, "vessels", e.ResourceType)
	assert.Equal(t, "7", e.ResourceID)
	assert.Equal(t, "delete", e.Action)
	assert.Equal(t, "blocked", e.Outcome)
	assert.Equal(t, http.StatusConflict, e.StatusCode)
}

func TestMiddlewareDisabled(t *testing.T) {
	store := setupTestStore(t)
	h := Middleware(store, Config{Enabled: false}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/operators", nil))
	assert.Equal(t, http.StatusCreated, rec.Code)

	_, _, total, err := store.List(ListFilter{}, 10, "")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestResourceFromPath(t *testing.T) {
	tests := []struct {
		path     string
		resource string
		id       string
	}{
		{"/api/v1/vessels", "vessels", ""},
		{"/api/v1/vessels/3", "vessels", "3"},
		{"/api/v1/vessels/3/sensors", "sensors", ""},
		{"/api/v1/vessel-types/2/requirements/5", "requirements", "5"},
		{"/api/v1/alerts/4/acknowledge", "alerts", "4"},
		{"/api/v1/imports/6f1c2a9e-8d3b-4c55-9a7e-1b2c3d4e5f60/cancel", "imports", "6f1c2a9e-8d3b-4c55-9a7e-1b2c3d4e5f60"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resource, id := resourceFromPath(tt.path)
			assert.Equal(t, tt.resource, resource)
			assert.Equal(t, tt.id, id)
		})
	}
}

func TestActionFor(t *testing.T) {
	assert.Equal(t, "create", actionFor("POST", "/api/v1/vessels"))
	assert.Equal(t, "update", actionFor("PATCH", "/api/v1/vessels/1"))
	assert.Equal(t, "delete", actionFor("DELETE", "/api/v1/vessels/1"))
	assert.Equal(t, "acknowledge", actionFor("POST", "/api/v1/alerts/1/acknowledge"))
	assert.Equal(t, "cancel", actionFor("POST", "/api/v1/imports/6f1c2a9e-8d3b-4c55-9a7e-1b2c3d4e5f60/cancel"))
	assert.False(t, isAudited("POST", "/metrics"))
	assert.False(t, isAudited("GET", "/api/v1/vessels"))
}

func TestHandlers(t *testing.T) {
	store := setupTestStore(t)
	e := newEvent("alice", "fleets", time.Now())
	require.NoError(t, store.Append(e))

	srv := httptest.NewServer(Router(store))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events?actor=alice")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Events    []Event `json:"events"`
		TotalSize int64   `json:"totalSize"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.TotalSize)

	resp2, err := http.Get(srv.URL + "/events/" + e.ID)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	resp3, err := http.Get(srv.URL + "/events/missing")
	require.NoError(t, err)
	defer resp3.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp3.StatusCode)
}

package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/geophoto-worker/internal/api/domain"
	"github.com/cuongbtq/geophoto-worker/internal/api/dto"
	"github.com/cuongbtq/geophoto-worker/internal/api/handler"
	"github.com/cuongbtq/geophoto-worker/internal/api/model"
	"github.com/cuongbtq/geophoto-worker/internal/api/storage"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeStore struct {
	decisions  []model.Decision
	err        error
	lastFilter storage.DecisionFilter
}

func (f *fakeStore) GetDecision(_ context.Context, photoID, campaign string) (*model.Decision, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, d := range f.decisions {
		if d.PhotoID == photoID && (campaign == "" || d.Campaign == campaign) {
			d := d
			return &d, nil
		}
	}
	return nil, domain.ErrDecisionNotFound
}

// ListDecisions mimics the keyset query over decisions sorted newest first
func (f *fakeStore) ListDecisions(_ context.Context, filter storage.DecisionFilter) ([]model.Decision, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}

	var out []model.Decision
	for _, d := range f.decisions {
		if filter.Campaign != "" && d.Campaign != filter.Campaign {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		if c := filter.Cursor; c != nil && !keysetBefore(d, c) {
			continue
		}
		out = append(out, d)
		if len(out) == filter.PageSize+1 {
			break
		}
	}
	return out, nil
}

// keysetBefore reports whether d sorts after the cursor in
// (processed_at, photo_id, campaign) DESC order
func keysetBefore(d model.Decision, c *storage.DecisionCursor) bool {
	if !d.ProcessedAt.Equal(c.ProcessedAt) {
		return d.ProcessedAt.Before(c.ProcessedAt)
	}
	if d.PhotoID != c.PhotoID {
		return d.PhotoID < c.PhotoID
	}
	return d.Campaign < c.Campaign
}

func sampleDecisions() []model.Decision {
	base := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	return []model.Decision{
		{PhotoID: "p3", Campaign: "demo", Status: "accepted", ProcessedAt: base.Add(3 * time.Second)},
		{PhotoID: "p2", Campaign: "demo", Status: "rejected", ProcessedAt: base.Add(2 * time.Second)},
		{PhotoID: "p1", Campaign: "demo", Status: "download_failed", ProcessedAt: base.Add(time.Second)},
	}
}

func newTestRouter(store handler.DecisionStore, health func(context.Context) error) *gin.Engine {
	return SetupRouter(&handler.Dependencies{
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:       store,
		HealthCheck: health,
	})
}

func doGet(r http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		check      func(context.Context) error
		wantStatus int
		wantBody   string
	}{
		{name: "no check", wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "database up", check: func(context.Context) error { return nil }, wantStatus: http.StatusOK, wantBody: "healthy"},
		{name: "database down", check: func(context.Context) error { return errors.New("connection refused") }, wantStatus: http.StatusServiceUnavailable, wantBody: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newTestRouter(&fakeStore{}, tt.check), "/health")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(&fakeStore{decisions: sampleDecisions()}, nil)
	doGet(r, "/api/v1/decisions")

	w := doGet(r, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "geophoto_http_requests_total")
}

func TestRequestID(t *testing.T) {
	r := newTestRouter(&fakeStore{}, nil)

	w := doGet(r, "/health")
	assert.NotEmpty(t, w.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(requestIDHeader))
}

func TestListDecisions(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		store      *fakeStore
		wantStatus int
		wantIDs    []string
		wantMore   bool
	}{
		{
			name:       "default page",
			query:      "",
			store:      &fakeStore{decisions: sampleDecisions()},
			wantStatus: http.StatusOK,
			wantIDs:    []string{"p3", "p2", "p1"},
		},
		{
			name:       "page size two has more",
			query:      "?page_size=2",
			store:      &fakeStore{decisions: sampleDecisions()},
			wantStatus: http.StatusOK,
			wantIDs:    []string{"p3", "p2"},
			wantMore:   true,
		},
		{
			name:       "status filter",
			query:      "?status=rejected",
			store:      &fakeStore{decisions: sampleDecisions()},
			wantStatus: http.StatusOK,
			wantIDs:    []string{"p2"},
		},
		{
			name:       "unknown status",
			query:      "?status=maybe",
			store:      &fakeStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad cursor",
			query:      "?cursor=%25%25",
			store:      &fakeStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad page size",
			query:      "?page_size=ten",
			store:      &fakeStore{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "store error",
			query:      "",
			store:      &fakeStore{err: errors.New("db down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newTestRouter(tt.store, nil), "/api/v1/decisions"+tt.query)
			require.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantStatus != http.StatusOK {
				return
			}

			var resp dto.ListDecisionsResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

			ids := make([]string, len(resp.Decisions))
			for i, d := range resp.Decisions {
				ids[i] = d.PhotoID
			}
			assert.Equal(t, tt.wantIDs, ids)
			assert.Equal(t, tt.wantMore, resp.NextCursor != "")
		})
	}
}

func TestListDecisions_FollowsCursor(t *testing.T) {
	store := &fakeStore{decisions: sampleDecisions()}
	r := newTestRouter(store, nil)

	var seen []string
	target := "/api/v1/decisions?page_size=1"
	for i := 0; i < 5; i++ {
		w := doGet(r, target)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListDecisionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, d := range resp.Decisions {
			seen = append(seen, d.PhotoID)
		}
		if resp.NextCursor == "" {
			break
		}
		target = "/api/v1/decisions?page_size=1&cursor=" + resp.NextCursor
	}

	assert.Equal(t, []string{"p3", "p2", "p1"}, seen)
}

func TestListDecisions_CursorKeepsTiesAcrossCampaigns(t *testing.T) {
	at := time.Date(2025, 2, 15, 10, 0, 0, 0, time.UTC)
	store := &fakeStore{decisions: []model.Decision{
		{PhotoID: "p1", Campaign: "spring", Status: "accepted", ProcessedAt: at},
		{PhotoID: "p1", Campaign: "autumn", Status: "rejected", ProcessedAt: at},
		{PhotoID: "p0", Campaign: "spring", Status: "accepted", ProcessedAt: at},
	}}
	r := newTestRouter(store, nil)

	var seen []string
	target := "/api/v1/decisions?page_size=1"
	for i := 0; i < 5; i++ {
		w := doGet(r, target)
		require.Equal(t, http.StatusOK, w.Code)

		var resp dto.ListDecisionsResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		for _, d := range resp.Decisions {
			seen = append(seen, d.Campaign+"/"+d.PhotoID)
		}
		if resp.NextCursor == "" {
			break
		}
		target = "/api/v1/decisions?page_size=1&cursor=" + resp.NextCursor
	}

	assert.Equal(t, []string{"spring/p1", "autumn/p1", "spring/p0"}, seen)
	require.NotNil(t, store.lastFilter.Cursor)
	assert.Equal(t, "autumn", store.lastFilter.Cursor.Campaign)
}

func TestListDecisions_PageSizeClamped(t *testing.T) {
	store := &fakeStore{}
	doGet(newTestRouter(store, nil), "/api/v1/decisions?page_size=1000&campaign=demo")
	assert.Equal(t, 100, store.lastFilter.PageSize)
	assert.Equal(t, "demo", store.lastFilter.Campaign)
}

func TestGetDecision(t *testing.T) {
	tests := []struct {
		name         string
		path         string
		store        *fakeStore
		wantStatus   int
		wantVerified bool
	}{
		{name: "found accepted", path: "/api/v1/decisions/p3", store: &fakeStore{decisions: sampleDecisions()}, wantStatus: http.StatusOK, wantVerified: true},
		{name: "found rejected", path: "/api/v1/decisions/p2?campaign=demo", store: &fakeStore{decisions: sampleDecisions()}, wantStatus: http.StatusOK},
		{name: "other campaign", path: "/api/v1/decisions/p2?campaign=other", store: &fakeStore{decisions: sampleDecisions()}, wantStatus: http.StatusNotFound},
		{name: "missing", path: "/api/v1/decisions/p9", store: &fakeStore{decisions: sampleDecisions()}, wantStatus: http.StatusNotFound},
		{name: "store error", path: "/api/v1/decisions/p1", store: &fakeStore{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(newTestRouter(tt.store, nil), tt.path)
			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got dto.DecisionDTO
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
			assert.Equal(t, tt.wantVerified, got.Verified)
			assert.True(t, strings.HasPrefix(got.ProcessedAt, "2025-02-15T10:00:0"))
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(&fakeStore{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/decisions", nil)
	req.Header.Set("Origin", "https://dashboard.example.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

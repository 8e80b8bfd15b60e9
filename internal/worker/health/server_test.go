package health

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/geophoto-worker/internal/worker/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type staticStatus struct {
	state  domain.State
	cursor domain.Cursor
}

func (s staticStatus) State() domain.State   { return s.state }
func (s staticStatus) Cursor() domain.Cursor { return s.cursor }

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     staticStatus
		wantCode   int
		wantStatus string
	}{
		{name: "polling", status: staticStatus{state: domain.StatePoll, cursor: domain.NewCursor("2025-02-15T10:00:10.000Z")}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "sleeping", status: staticStatus{state: domain.StateSleep}, wantCode: http.StatusOK, wantStatus: "healthy"},
		{name: "fatal", status: staticStatus{state: domain.StateFatal}, wantCode: http.StatusServiceUnavailable, wantStatus: "unhealthy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewRouter(tt.status).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			require.Equal(t, tt.wantCode, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			assert.Equal(t, string(tt.status.state), body["state"])
			assert.Equal(t, tt.status.cursor.String(), body["cursor"])
		})
	}
}

func TestMetrics(t *testing.T) {
	w := httptest.NewRecorder()
	NewRouter(staticStatus{state: domain.StatePoll}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer(0, staticStatus{state: domain.StatePoll}, time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

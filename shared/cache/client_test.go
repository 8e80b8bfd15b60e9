package cache

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		wantAddr string
		wantDB   int
		wantErr  bool
	}{
		{name: "url", url: "redis://localhost:6379/2", wantAddr: "localhost:6379", wantDB: 2},
		{name: "host port", url: "cache:6380", wantAddr: "cache:6380"},
		{name: "trims spaces", url: "  cache:6380 ", wantAddr: "cache:6380"},
		{name: "empty", url: "", wantErr: true},
		{name: "bad db", url: "redis://localhost:6379/notanumber", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opt, err := Options(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAddr, opt.Addr)
			assert.Equal(t, tt.wantDB, opt.DB)
		})
	}
}

func TestConnect(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	client, err := Connect(context.Background(), addr, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.NoError(t, client.Close())
}

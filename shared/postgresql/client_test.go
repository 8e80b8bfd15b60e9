package postgresql

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_DSN(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "explicit sslmode",
			config: Config{Host: "db", Port: 5432, User: "geo", Password: "secret", Database: "photos", SSLMode: "require"},
			want:   "host=db port=5432 user=geo password=secret dbname=photos sslmode=require",
		},
		{
			name:   "defaults to disable",
			config: Config{Host: "localhost", Port: 5433, User: "u", Password: "p", Database: "d"},
			want:   "host=localhost port=5433 user=u password=p dbname=d sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.DSN())
		})
	}
}

func TestNewClient_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// port 1 on loopback refuses connections
	client, err := NewClient(ctx, &Config{
		Host: "127.0.0.1", Port: 1, User: "u", Password: "p", Database: "d",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
	assert.Nil(t, client)
}

package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/avaxform/internal/config"
)

func TestServerConfigFrom(t *testing.T) {
	tests := []struct {
		name string
		in   config.ServerConfig
		want *ServerConfig
	}{
		{
			name: "zero keeps defaults",
			want: DefaultServerConfig(),
		},
		{
			name: "overrides",
			in: config.ServerConfig{
				Address:            "127.0.0.1",
				Port:               9000,
				ReadTimeout:        config.Duration(5 * time.Second),
				MaxRequestBodySize: -1,
			},
			want: &ServerConfig{
				Address:            "127.0.0.1",
				Port:               9000,
				ReadTimeout:        5 * time.Second,
				WriteTimeout:       30 * time.Second,
				IdleTimeout:        120 * time.Second,
				MaxHeaderBytes:     1 << 20,
				MaxRequestBodySize: -1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ServerConfigFrom(tt.in))
		})
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func TestServer_StartStop(t *testing.T) {
	port := freePort(t)
	srv := NewServer(&ServerConfig{Address: "127.0.0.1", Port: port}, nil)
	NewHandler(nil).Register(srv.Engine())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(context.Background())
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	assert.True(t, srv.IsRunning())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	require.NoError(t, <-errCh)
	assert.False(t, srv.IsRunning())

	// Stopping twice is a no-op.
	assert.NoError(t, srv.Stop(ctx))
}

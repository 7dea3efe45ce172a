package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ignite/lead-finder/internal/config"
)

func TestServerTimeoutsFromConfig(t *testing.T) {
	cfg := config.ServerConfig{ReadTimeoutSeconds: 30, WriteTimeoutSeconds: 90, IdleTimeoutSeconds: 45}
	h := http.NotFoundHandler()
	srv := NewServer(cfg, h).httpServer("127.0.0.1:0")

	assert.Equal(t, "127.0.0.1:0", srv.Addr)
	assert.Equal(t, 30*time.Second, srv.ReadTimeout)
	assert.Equal(t, 90*time.Second, srv.WriteTimeout)
	assert.Equal(t, 45*time.Second, srv.IdleTimeout)
	assert.Equal(t, 15*time.Second, srv.ReadHeaderTimeout)
	assert.NotNil(t, srv.Handler)
}

func TestServerShutdownBeforeStart(t *testing.T) {
	srv := NewServer(config.ServerConfig{}, http.NotFoundHandler())
	assert.NoError(t, srv.Shutdown(t.Context()))
}

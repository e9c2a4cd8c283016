package httpserver

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"sealgate/internal/platform/config"
)

func TestNewAppliesConfiguredTimeouts(t *testing.T) {
	cfg := config.Server{
		Addr:              ":9999",
		ReadHeaderTimeout: 2 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       90 * time.Second,
	}
	srv := New(cfg, http.NotFoundHandler())

	assert.Equal(t, ":9999", srv.Addr)
	assert.Equal(t, 2*time.Second, srv.ReadHeaderTimeout)
	assert.Equal(t, 45*time.Second, srv.WriteTimeout)
	assert.Equal(t, 90*time.Second, srv.IdleTimeout)
	assert.NotNil(t, srv.Handler)
}

package profiler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerStartAndShutdown(t *testing.T) {
	server := New(0)

	require.NoError(t, server.Start(context.Background()))
	assert.NotEmpty(t, server.Addr())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(shutdownCtx))
}

func TestServerPprofIndex(t *testing.T) {
	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	resp, err := http.Get("http://" + server.Addr() + "/debug/pprof/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

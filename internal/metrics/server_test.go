package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	port := 9999

	server := NewServer(port, prometheus.NewRegistry(), log)

	assert.NotNil(t, server)
	assert.Equal(t, port, server.port)
	assert.Nil(t, server.server) // Server not started yet
	assert.Nil(t, server.Addr())
}

func TestServerStartAndShutdown(t *testing.T) {
	log := zerolog.Nop()
	reg := prometheus.NewRegistry()
	m := NewSearchMetrics(reg)
	m.Generations.Add(4)

	server := NewServer(0, reg, log)
	require.NoError(t, server.Start())
	require.NotNil(t, server.Addr())

	port := server.Addr().(*net.TCPAddr).Port
	client := &http.Client{Timeout: 5 * time.Second}

	// Health endpoint
	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/health", port))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(body), `"status":"healthy"`)

	// Metrics endpoint serves the given registry
	resp, err = client.Get(fmt.Sprintf("http://localhost:%d/metrics", port))
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "macross_generations_total 4")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))
}

func TestServerStart_PortInUse(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()

	port := listener.Addr().(*net.TCPAddr).Port
	server := NewServer(port, prometheus.NewRegistry(), zerolog.Nop())

	assert.Error(t, server.Start())
}

func TestServerShutdownWithoutStart(t *testing.T) {
	server := NewServer(9996, prometheus.NewRegistry(), zerolog.Nop())
	assert.NoError(t, server.Shutdown(context.Background()))
}

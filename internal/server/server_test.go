package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetcore-io/fleetcore/pkg/options"
)

func TestNewHTTPServerDisabled(t *testing.T) {
	assert.Nil(t, NewHTTPServer(options.NewHttpOptions(), prometheus.NewRegistry(), nil, logr.Discard()))
}

func TestHTTPServerRoutes(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "fleet_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	var ready atomic.Bool
	opts := options.NewHttpOptions()
	opts.Addr = "127.0.0.1:0"
	s := NewHTTPServer(opts, reg, ready.Load, logr.Discard())
	require.NotNil(t, s)

	get := func(path string) (int, string) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec.Code, rec.Body.String()
	}

	code, body := get("/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body)

	code, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	ready.Store(true)
	code, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, code)

	code, body = get("/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "fleet_test_total 1")
}

func TestHTTPServerStartAndShutdown(t *testing.T) {
	opts := options.NewHttpOptions()
	opts.Addr = "127.0.0.1:0"
	s := NewHTTPServer(opts, prometheus.NewRegistry(), nil, logr.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	require.Eventually(t, func() bool { return s.Addr() != nil }, time.Second, 5*time.Millisecond)
	resp, err := http.Get("http://" + s.Addr().String() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestManagerStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	m := NewManager(logr.Discard())

	var stopped atomic.Bool
	m.Add(RunnableFunc(func(ctx context.Context) error {
		<-ctx.Done()
		stopped.Store(true)
		return nil
	}))
	m.Add(RunnableFunc(func(context.Context) error { return boom }))
	m.Add(nil)

	err := m.Start(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, stopped.Load())
}

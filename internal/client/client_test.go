package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"restaurants/internal/server"
	"restaurants/internal/shared"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	cfg := &shared.ServerConfig{
		Port:            3000,
		Store:           shared.StoreMemory,
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: time.Second,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := server.NewApp(context.Background(), cfg, log, prometheus.NewRegistry())
	require.NoError(t, err)

	ts := httptest.NewServer(app.Handler)
	t.Cleanup(ts.Close)

	return New(&shared.ClientConfig{ServerURL: ts.URL + "/", Timeout: 5 * time.Second})
}

func TestClientLifecycle(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	all, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, server.SeedRestaurants(), all)

	created, err := c.Create(ctx, shared.Restaurant{ID: "ignored", Name: "Taco Hut", Cuisine: "mexican"})
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", created.ID)

	takeout := true
	require.NoError(t, c.Update(ctx, created.ID, shared.RestaurantPatch{HasTakeout: &takeout}))

	got, err := c.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, shared.Restaurant{ID: created.ID, Name: "Taco Hut", Cuisine: "mexican", HasTakeout: true}, got)

	require.NoError(t, c.Delete(ctx, created.ID))

	_, err = c.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientSurfacesServerMessage(t *testing.T) {
	c := newTestClient(t)

	err := c.Delete(context.Background(), "nope")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Restaurant with id 'nope' not found", apiErr.Message)

	_, err = c.Create(context.Background(), shared.Restaurant{Name: "", Cuisine: "x"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestClientPlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := &Client{ServerURL: ts.URL, HTTP: ts.Client()}
	_, err := c.List(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}

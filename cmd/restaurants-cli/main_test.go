package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"restaurants/internal/server"
	"restaurants/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func startServer(t *testing.T) string {
	t.Helper()
	cfg := &shared.ServerConfig{
		Port:            3000,
		Store:           shared.StoreMemory,
		LogLevel:        "info",
		LogFormat:       "json",
		ShutdownTimeout: time.Second,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	app, err := server.NewApp(context.Background(), cfg, log, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(app.Handler)
	t.Cleanup(ts.Close)
	return ts.URL
}

func execute(t *testing.T, url string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--server", url}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLIRoundTrip(t *testing.T) {
	url := startServer(t)

	out, err := execute(t, url, "list")
	require.NoError(t, err)
	var all []shared.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &all))
	assert.Len(t, all, 2)

	out, err = execute(t, url, "create", "--name", "Taco Hut", "--cuisine", "mexican")
	require.NoError(t, err)
	var created shared.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	require.NotEmpty(t, created.ID)
	assert.False(t, created.HasTakeout)

	out, err = execute(t, url, "update", created.ID, "--takeout")
	require.NoError(t, err)
	assert.Equal(t, "updated "+created.ID+"\n", out)

	out, err = execute(t, url, "get", created.ID)
	require.NoError(t, err)
	var got shared.Restaurant
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, shared.Restaurant{ID: created.ID, Name: "Taco Hut", Cuisine: "mexican", HasTakeout: true}, got)

	_, err = execute(t, url, "delete", created.ID)
	require.NoError(t, err)

	_, err = execute(t, url, "get", created.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestCLIUpdateNeedsAField(t *testing.T) {
	_, err := execute(t, "http://127.0.0.1:1", "update", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nothing to update")
}

func TestCLIRejectsBadServerURL(t *testing.T) {
	_, err := execute(t, "not a url", "list")
	require.Error(t, err)
}

func TestCLIYAMLOutput(t *testing.T) {
	url := startServer(t)

	out, err := execute(t, url, "list", "-o", "yaml")
	require.NoError(t, err)
	var all []shared.Restaurant
	require.NoError(t, yaml.Unmarshal([]byte(out), &all))
	assert.Equal(t, server.SeedRestaurants(), all)
	assert.Contains(t, out, "hasTakeout: true")
}

func TestCLIRejectsUnknownOutputFormat(t *testing.T) {
	url := startServer(t)

	_, err := execute(t, url, "list", "--output", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

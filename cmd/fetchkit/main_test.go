package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/vango-dev/fetchkit/internal/adminapi"
	"github.com/vango-dev/fetchkit/internal/config"
	"github.com/vango-dev/fetchkit/internal/errors"
	"github.com/vango-dev/fetchkit/pkg/resource"
	"github.com/vango-dev/fetchkit/pkg/statehub"
)

// run executes the CLI in an empty working directory.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func adminServer(t *testing.T, users int) string {
	t.Helper()
	store := adminapi.NewStore()
	store.Seed(users)
	srv := adminapi.New(store, adminapi.WithLogger(slog.New(slog.DiscardHandler)))

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts.URL + "/api"
}

func TestVersionShort(t *testing.T) {
	out, err := run(t, "version", "-s")
	require.NoError(t, err)
	assert.Equal(t, "dev\n", out)
}

func TestVersionIgnoresBrokenConfig(t *testing.T) {
	t.Setenv("FETCHKIT_LOG_LEVEL", "verbose")
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

func TestUnknownOutputFormat(t *testing.T) {
	_, err := run(t, "-o", "xml", "config", "show")
	assert.Equal(t, "E121", errors.CodeOf(err))
}

func TestInvalidConfig(t *testing.T) {
	t.Setenv("FETCHKIT_PAGINATION_LIMIT", "0")
	_, err := run(t, "config", "show")
	require.Error(t, err)
	assert.Equal(t, "E101", errors.CodeOf(err))
	assert.ErrorIs(t, err, config.ErrInvalid)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", "nope.yaml", "config", "show")
	assert.Equal(t, "E100", errors.CodeOf(err))
}

func TestUsersListTable(t *testing.T) {
	base := adminServer(t, 12)

	out, err := run(t, "--base-url", base, "users", "list", "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "User 001")
	assert.Contains(t, out, "User 005")
	assert.NotContains(t, out, "User 006")
	assert.Contains(t, out, "Page 1 of 3 (12 users)")
}

func TestUsersListJSON(t *testing.T) {
	base := adminServer(t, 12)

	out, err := run(t, "--base-url", base, "-o", "json", "users", "list", "--limit", "5", "--page", "2")
	require.NoError(t, err)

	var page userPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Users, 5)
	assert.Equal(t, "User 006", page.Users[0].Name)
}

func TestUsersListClampsPastEnd(t *testing.T) {
	base := adminServer(t, 12)

	out, err := run(t, "--base-url", base, "-o", "yaml", "users", "list", "--limit", "5", "--page", "9")
	require.NoError(t, err)

	var page userPage
	require.NoError(t, yaml.Unmarshal([]byte(out), &page))
	assert.Equal(t, 3, page.Page)
	require.Len(t, page.Users, 2)
	assert.Equal(t, "User 011", page.Users[0].Name)
}

func TestUsersListRejectsBadFlags(t *testing.T) {
	_, err := run(t, "users", "list", "--page", "0")
	assert.Equal(t, "E120", errors.CodeOf(err))

	_, err = run(t, "users", "list", "--limit", "500")
	assert.Equal(t, "E120", errors.CodeOf(err))
}

func TestUsersGetNotFound(t *testing.T) {
	base := adminServer(t, 1)

	_, err := run(t, "--base-url", base, "users", "get", "missing")
	require.Error(t, err)
	assert.Equal(t, "E141", errors.CodeOf(err))
	assert.Contains(t, err.Error(), "user not found")
}

func TestUsersCreate(t *testing.T) {
	base := adminServer(t, 0)

	out, err := run(t, "--base-url", base, "-o", "json", "users", "create", "--name", "Ada", "--email", "ada@example.com", "--role", "admin")
	require.NoError(t, err)

	var u adminapi.User
	require.NoError(t, json.Unmarshal([]byte(out), &u))
	assert.Equal(t, "Ada", u.Name)
	assert.Equal(t, "admin", u.Role)

	out, err = run(t, "--base-url", base, "users", "get", u.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "ada@example.com")
}

func TestUsersCreateValidationHint(t *testing.T) {
	base := adminServer(t, 0)

	_, err := run(t, "--base-url", base, "users", "create", "--name", "Ada", "--email", "nope")
	require.Error(t, err)

	var ce *errors.CodedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "E141", ce.Code)
	assert.Contains(t, ce.Error(), "invalid user")
	assert.Equal(t, "email: failed email", ce.Suggestion)
}

func TestStatsWatch(t *testing.T) {
	base := adminServer(t, 4)

	out, err := run(t, "--base-url", base, "-o", "json", "stats", "watch", "--count", "2", "--interval", "10ms")
	require.NoError(t, err)

	dec := json.NewDecoder(strings.NewReader(out))
	for range 2 {
		var snap statehub.Snapshot[adminapi.Stats]
		require.NoError(t, dec.Decode(&snap))
		assert.Equal(t, "success", snap.Status)
		require.NotNil(t, snap.Data)
		assert.Equal(t, 4, snap.Data.Users)
	}
}

func TestStatsWatchTable(t *testing.T) {
	base := adminServer(t, 3)

	out, err := run(t, "--base-url", base, "stats", "watch", "--count", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "users=3")
}

func TestStatsWatchS3RequiresBucket(t *testing.T) {
	_, err := run(t, "stats", "watch", "--source", "s3", "--count", "1")
	assert.Equal(t, "E120", errors.CodeOf(err))
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fk.yaml")

	out, err := run(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	_, err = os.Stat(path)
	require.NoError(t, err)

	out, err = run(t, "--config", path, "-o", "yaml", "config", "show")
	require.NoError(t, err)

	var cfg config.Config
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, config.DefaultLimit, cfg.Pagination.Limit)

	out, err = run(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "pagination.limit")
}

func TestStoreUsersCall(t *testing.T) {
	store := adminapi.NewStore()
	store.Seed(3)
	call := storeUsers(store)

	res, err := call(context.Background(), resource.Params{"page": 2, "limit": 2})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 3, res.Pagination.Total)

	res, err = call(context.Background(), resource.Params{})
	require.NoError(t, err)
	assert.False(t, res.Success)
}

func TestServeStopsOnCancel(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Polling.Interval = 10 * time.Millisecond

	var errOut bytes.Buffer
	c := &cli{out: io.Discard, errOut: &errOut, cfg: cfg, log: slog.New(slog.DiscardHandler)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.serve(ctx, 5) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not stop")
	}
}

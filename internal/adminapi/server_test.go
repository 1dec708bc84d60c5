package adminapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/fetchkit/pkg/httpsource"
	"github.com/vango-dev/fetchkit/pkg/metrics"
	"github.com/vango-dev/fetchkit/pkg/resource"
)

var discard = slog.New(slog.DiscardHandler)

func newTestServer(t *testing.T, users int, opts ...Option) (*Server, *httptest.Server) {
	t.Helper()
	store := NewStore()
	store.Seed(users)

	s := New(store, append([]Option{WithLogger(discard)}, opts...)...)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func getEnvelope[T any](t *testing.T, url string) (int, resource.CallResult[T]) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env resource.CallResult[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestListUsers(t *testing.T) {
	_, ts := newTestServer(t, 23)

	code, env := getEnvelope[[]User](t, ts.URL+"/api/users?page=3&limit=10")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.Len(t, env.Data, 3)
	assert.Equal(t, "User 021", env.Data[0].Name)
	assert.Equal(t, &resource.PageInfo{Page: 3, Limit: 10, Total: 23, TotalPages: 3}, env.Pagination)
}

func TestListUsersDefaults(t *testing.T) {
	_, ts := newTestServer(t, 15)

	_, env := getEnvelope[[]User](t, ts.URL+"/api/users")
	assert.Len(t, env.Data, DefaultPageLimit)
	assert.Equal(t, 1, env.Pagination.Page)
	assert.Equal(t, 2, env.Pagination.TotalPages)
}

func TestListUsersPastEnd(t *testing.T) {
	_, ts := newTestServer(t, 5)

	code, env := getEnvelope[[]User](t, ts.URL+"/api/users?page=4")
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, env.Data)
	assert.Equal(t, 1, env.Pagination.TotalPages)
}

func TestListUsersRejectsBadQuery(t *testing.T) {
	_, ts := newTestServer(t, 5)

	tests := []struct {
		query string
		msg   string
	}{
		{"page=0", "page must be a positive integer"},
		{"page=x", "page must be a positive integer"},
		{"limit=-2", "limit must be a positive integer"},
		{"limit=101", "limit must not exceed 100"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			code, env := getEnvelope[any](t, ts.URL+"/api/users?"+tt.query)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.msg, env.Message)
		})
	}
}

func TestGetUser(t *testing.T) {
	s, ts := newTestServer(t, 3)
	users, _ := s.store.List(1, 3)

	code, env := getEnvelope[User](t, ts.URL+"/api/users/"+users[1].ID)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, users[1], env.Data)

	code, env = getEnvelope[User](t, ts.URL+"/api/users/missing")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "user not found", env.Message)
}

func TestCreateUser(t *testing.T) {
	var changes atomic.Int32
	s, ts := newTestServer(t, 0, WithChangeHook(func() { changes.Add(1) }))

	body := `{"name":"Ada","email":"ada@example.com"}`
	resp, err := http.Post(ts.URL+"/api/users", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var env resource.CallResult[User]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "Ada", env.Data.Name)
	assert.Equal(t, "viewer", env.Data.Role)
	assert.NotEmpty(t, env.Data.ID)

	assert.Equal(t, 1, s.store.Count())
	assert.Equal(t, int32(1), changes.Load())
}

func TestCreateUserValidation(t *testing.T) {
	var changes atomic.Int32
	s, ts := newTestServer(t, 0, WithChangeHook(func() { changes.Add(1) }))

	body := `{"name":"A","email":"nope","role":"root"}`
	resp, err := http.Post(ts.URL+"/api/users", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var env resource.CallResult[any]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "invalid user", env.Message)
	assert.ElementsMatch(t, []string{
		"name: failed min",
		"email: failed email",
		"role: failed oneof",
	}, env.Errors)

	resp2, err := http.Post(ts.URL+"/api/users", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp2.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp2.StatusCode)

	assert.Zero(t, s.store.Count())
	assert.Zero(t, changes.Load())
}

func TestDeleteUser(t *testing.T) {
	var changes atomic.Int32
	s, ts := newTestServer(t, 2, WithChangeHook(func() { changes.Add(1) }))
	users, _ := s.store.List(1, 2)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/users/"+users[0].ID, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, s.store.Count())
	assert.Equal(t, int32(1), changes.Load())

	resp, err = http.DefaultClient.Do(req.Clone(context.Background()))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStats(t *testing.T) {
	_, ts := newTestServer(t, 8)

	getEnvelope[any](t, ts.URL+"/healthz")
	code, env := getEnvelope[Stats](t, ts.URL+"/api/stats")
	require.Equal(t, http.StatusOK, code)

	assert.Equal(t, 8, env.Data.Users)
	assert.Equal(t, uint64(1), env.Data.Requests)
	assert.Equal(t, []RoleCount{
		{Role: "admin", Count: 2},
		{Role: "editor", Count: 2},
		{Role: "viewer", Count: 4},
	}, env.Data.Roles)
	assert.Zero(t, env.Data.HubClients)
}

func TestRateLimit(t *testing.T) {
	_, ts := newTestServer(t, 1, WithRateLimit(2))

	for range 2 {
		code, _ := getEnvelope[any](t, ts.URL+"/api/stats")
		require.Equal(t, http.StatusOK, code)
	}

	resp, err := http.Get(ts.URL + "/api/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "60", resp.Header.Get("Retry-After"))

	// Health checks sit outside the limited group.
	code, _ := getEnvelope[any](t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
}

func TestRateLimiterEvict(t *testing.T) {
	now := time.Unix(1000, 0)
	l := NewIPRateLimiter(10)
	l.now = func() time.Time { return now }

	l.limiter("10.0.0.1")
	now = now.Add(5 * time.Minute)
	l.limiter("10.0.0.2")
	now = now.Add(6 * time.Minute)

	assert.Equal(t, 1, l.evict(visitorTTL))
	assert.Len(t, l.visitors, 1)
	assert.Contains(t, l.visitors, "10.0.0.2")
}

type recordedRequest struct {
	route string
	code  int
}

type recordingObserver struct {
	mu   sync.Mutex
	seen []recordedRequest
}

func (o *recordingObserver) ObserveRequest(route string, code int, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.seen = append(o.seen, recordedRequest{route, code})
}

func TestRequestObserverUsesRoutePattern(t *testing.T) {
	obs := &recordingObserver{}
	_, ts := newTestServer(t, 1, WithRequestObserver(obs))

	getEnvelope[any](t, ts.URL+"/api/users/abc")
	getEnvelope[any](t, ts.URL+"/api/users?page=1")

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Equal(t, []recordedRequest{
		{"/api/users/{id}", http.StatusNotFound},
		{"/api/users", http.StatusOK},
	}, obs.seen)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	_, ts := newTestServer(t, 1, WithRequestObserver(m), WithGatherer(reg))

	getEnvelope[any](t, ts.URL+"/api/stats")

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `fetchkit_http_requests_total{code="200",route="/api/stats"} 1`)
}

func TestPaginatedResourceAgainstServer(t *testing.T) {
	_, ts := newTestServer(t, 12)

	client, err := httpsource.New(ts.URL+"/api", httpsource.WithRetryConfig(0, time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	users := resource.NewPaginated(httpsource.List[User](client, "/users"),
		resource.WithInitialLimit(5), resource.WithLogger(discard))
	defer users.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, users.Wait(ctx))

	s := users.PageState()
	require.Empty(t, s.Error)
	assert.Equal(t, 12, s.Total)
	assert.Equal(t, 3, s.TotalPages)
	assert.Len(t, s.Data, 5)

	require.True(t, users.GoToPage(3))
	require.NoError(t, users.Wait(ctx))
	s = users.PageState()
	assert.Len(t, s.Data, 2)
	assert.Equal(t, "User 011", s.Data[0].Name)
	assert.False(t, s.HasNextPage)
}

func TestResourceSurfacesNotFound(t *testing.T) {
	_, ts := newTestServer(t, 1)

	client, err := httpsource.New(ts.URL + "/api")
	require.NoError(t, err)

	r := resource.New(httpsource.Get[User](client, "/users/unknown"),
		resource.WithImmediate(false), resource.WithLogger(discard))
	defer r.Close()

	state := r.Execute(context.Background(), nil)
	assert.Equal(t, resource.Error, state.Status)
	assert.Equal(t, "user not found", state.Error)
}

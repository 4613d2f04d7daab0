package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/commissionhub/portal/internal/api/middleware"
	"github.com/commissionhub/portal/internal/apiclient"
	"github.com/commissionhub/portal/internal/authgate"
	"github.com/commissionhub/portal/internal/session"
)

// --- Mock Fetcher ---

type mockFetcher struct {
	calls   atomic.Int32
	release chan struct{}
	meFn    func(ctx context.Context) (*apiclient.Viewer, error)
}

func (m *mockFetcher) Me(ctx context.Context) (*apiclient.Viewer, error) {
	m.calls.Add(1)
	if m.release != nil {
		<-m.release
	}
	return m.meFn(ctx)
}

func viewerWithRoles(roles ...string) func(context.Context) (*apiclient.Viewer, error) {
	return func(context.Context) (*apiclient.Viewer, error) {
		return &apiclient.Viewer{ID: "u-1", Name: "Ada", Email: "ada@example.com", Roles: roles}, nil
	}
}

func failingWith(err error) func(context.Context) (*apiclient.Viewer, error) {
	return func(context.Context) (*apiclient.Viewer, error) { return nil, err }
}

type recordingGateObserver struct {
	mu       sync.Mutex
	outcomes []authgate.Outcome
}

func (o *recordingGateObserver) GateDecided(_ string, outcome authgate.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func resolvedStore(t *testing.T, meFn func(context.Context) (*apiclient.Viewer, error)) (*session.Store, *mockFetcher) {
	t.Helper()
	f := &mockFetcher{meFn: meFn}
	s := session.NewStore(f)
	require.True(t, s.EnsureLoaded(context.Background()))
	return s, f
}

func gateConfig(req authgate.Requirement) middleware.GateConfig {
	return middleware.GateConfig{
		Layout:          "admin",
		Requirement:     req,
		SignInURL:       "https://portal.example.com/sign-in",
		UnauthorizedURL: "/unauthorized",
		RetryPath:       "/api/session/retry",
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var env map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func serve(h http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRequireRole_AdminAllowed(t *testing.T) {
	store, _ := resolvedStore(t, viewerWithRoles("admin"))

	var captured session.Session
	var ok bool
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, ok = middleware.GetSession(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	w := serve(middleware.RequireRole(store, gateConfig(authgate.RequireAdmin))(inner), "/admin")

	assert.Equal(t, http.StatusOK, w.Code)
	require.True(t, ok)
	assert.Equal(t, "u-1", captured.Identity.ID)
}

func TestRequireRole_CustomerDeniedFromAdmin(t *testing.T) {
	store, _ := resolvedStore(t, viewerWithRoles("customer"))

	w := serve(middleware.RequireRole(store, gateConfig(authgate.RequireAdmin))(okHandler()), "/admin")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/unauthorized", w.Header().Get("Location"))
}

func TestRequireRole_AnonymousRedirectsToSignIn(t *testing.T) {
	store, _ := resolvedStore(t, failingWith(apiclient.ErrUnauthenticated))

	w := serve(middleware.RequireRole(store, gateConfig(authgate.RequireAdmin))(okHandler()), "/admin/events?page=2")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "portal.example.com", loc.Host)
	assert.Equal(t, "/sign-in", loc.Path)
	assert.Equal(t, "/admin/events?page=2", loc.Query().Get("next"))
}

func TestRequireRole_ErrorIsRecoverable(t *testing.T) {
	store, _ := resolvedStore(t, failingWith(errors.New("dial tcp 10.0.0.1:443: i/o timeout")))

	w := serve(middleware.RequireRole(store, gateConfig(authgate.RequirePartner))(okHandler()), "/partner")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	env := parseEnvelope(t, w)
	apiErr := env["error"].(map[string]interface{})
	assert.Equal(t, "SESSION_UNAVAILABLE", apiErr["code"])
	assert.NotContains(t, apiErr["message"], "i/o timeout")
	details := apiErr["details"].(map[string]interface{})
	assert.Equal(t, "/api/session/retry", details["retry"])
}

func TestRequireRole_LoadingNeverRendersContent(t *testing.T) {
	f := &mockFetcher{release: make(chan struct{}), meFn: viewerWithRoles("partner")}
	store := session.NewStore(f)
	defer close(f.release)

	rendered := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rendered = true
	})
	h := middleware.RequireRole(store, gateConfig(authgate.RequirePartner))(inner)

	for i := 0; i < 5; i++ {
		w := serve(h, "/partner")
		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Equal(t, "1", w.Header().Get("Retry-After"))
		env := parseEnvelope(t, w)
		data := env["data"].(map[string]interface{})
		assert.Equal(t, "loading", data["status"])
	}

	assert.False(t, rendered)
	require.Eventually(t, func() bool { return f.calls.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRequireRole_TriggersLoadOnMount(t *testing.T) {
	f := &mockFetcher{meFn: viewerWithRoles("customer")}
	store := session.NewStore(f)

	cfg := gateConfig(authgate.RequireCustomer)
	cfg.LoadingWait = time.Second

	w := serve(middleware.RequireRole(store, cfg)(okHandler()), "/customer")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRequireRole_IndependentLayoutsShareOneFetch(t *testing.T) {
	f := &mockFetcher{meFn: viewerWithRoles("admin", "partner")}
	store := session.NewStore(f)

	admin := gateConfig(authgate.RequireAdmin)
	admin.LoadingWait = time.Second
	partner := gateConfig(authgate.RequirePartner)
	partner.LoadingWait = time.Second

	adminH := middleware.RequireRole(store, admin)(okHandler())
	partnerH := middleware.RequireRole(store, partner)(okHandler())

	var wg sync.WaitGroup
	codes := make([]int, 20)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := adminH
			if i%2 == 0 {
				h = partnerH
			}
			codes[i] = serve(h, "/").Code
		}(i)
	}
	wg.Wait()

	for _, code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestRequireRole_CancelledRequestDoesNotPoisonSession(t *testing.T) {
	f := &mockFetcher{meFn: func(ctx context.Context) (*apiclient.Viewer, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return &apiclient.Viewer{ID: "u-1", Roles: []string{"admin"}}, nil
	}}
	store := session.NewStore(f)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil).WithContext(ctx)
	middleware.RequireRole(store, gateConfig(authgate.RequireAdmin))(okHandler()).ServeHTTP(httptest.NewRecorder(), req)

	require.Eventually(t, func() bool {
		return store.Snapshot().Status == session.StatusAuthenticated
	}, time.Second, time.Millisecond)
}

func TestRequireRole_ReportsDecisions(t *testing.T) {
	store, _ := resolvedStore(t, viewerWithRoles("customer"))
	obs := &recordingGateObserver{}

	cfg := gateConfig(authgate.RequireAdmin)
	cfg.Observer = obs
	serve(middleware.RequireRole(store, cfg)(okHandler()), "/admin")

	cfg.Requirement = authgate.RequireCustomer
	serve(middleware.RequireRole(store, cfg)(okHandler()), "/customer")

	assert.Equal(t, []authgate.Outcome{authgate.OutcomeDenyUnauthorized, authgate.OutcomeRender}, obs.outcomes)
}

func TestGetSession_EmptyContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := middleware.GetSession(req.Context())
	assert.False(t, ok)
}

package app

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/adminconsole/internal/apperror"
	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/config"
	"github.com/keyxmakerx/adminconsole/internal/metrics"
)

// stubAPI answers backend paths with canned JSON bodies.
func stubAPI(t *testing.T, responses map[string]string) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := responses[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func testConfig(backendURL string) *config.Config {
	return &config.Config{
		Env:            "development",
		Port:           8080,
		MetricsEnabled: true,
		Backend:        config.BackendConfig{URL: backendURL, Timeout: 2 * time.Second},
		Auth: config.AuthConfig{
			SecretKey:      "test-secret-that-is-long-enough-0123",
			CookieSecure:   "false",
			ResendCooldown: time.Minute,
			ProfileTTL:     time.Hour,
		},
	}
}

func newTestApp(t *testing.T, rdb *redis.Client, responses map[string]string) *App {
	t.Helper()
	return newTestAppAt(t, rdb, stubAPI(t, responses))
}

func newTestAppAt(t *testing.T, rdb *redis.Client, backendURL string) *App {
	t.Helper()
	a, err := New(testConfig(backendURL), rdb, metrics.New())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.RegisterRoutes()
	t.Cleanup(a.Close)
	return a
}

func serve(a *App, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func sessionRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.AddCookie(&http.Cookie{Name: "session_key", Value: "T"})
	req.AddCookie(&http.Cookie{Name: "session_expiration", Value: url.QueryEscape(time.Now().Add(time.Hour).UTC().Format(time.RFC3339))})
	return req
}

var validSession = map[string]string{
	backend.PathCheckSession: `{"success":true,"data":{"user":{"id":"u1","name":"Ada","email":"ada@example.com","role":"owner"}}}`,
	backend.PathSettings:     `{"success":true,"data":{"site_name":"Acme"}}`,
}

func TestNew_RequiresSecret(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Auth.SecretKey = ""
	if _, err := New(cfg, nil, nil); err == nil {
		t.Fatal("expected error without a secret key")
	}
}

func TestRoot_RedirectsToDashboard(t *testing.T) {
	a := newTestApp(t, nil, nil)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/dashboard" {
		t.Errorf("expected 303 to /dashboard, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestDashboard_WithoutSessionGoesToLogin(t *testing.T) {
	a := newTestApp(t, nil, nil)

	for _, path := range []string{"/dashboard", "/dashboard/admins", "/dashboard/no/such/page"} {
		rec := serve(a, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Errorf("%s: expected 303 to /login, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestDashboard_RendersWithLayout(t *testing.T) {
	a := newTestApp(t, nil, validSession)

	rec := serve(a, sessionRequest(http.MethodGet, "/dashboard/admins"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, want := range []string{"Ada (owner)", `href="/dashboard/admins" class="active"`, `name="csrf_token"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected a request ID header")
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("expected security headers")
	}
}

func TestDashboard_UnknownSectionIs404(t *testing.T) {
	a := newTestApp(t, nil, validSession)

	rec := serve(a, sessionRequest(http.MethodGet, "/dashboard/unknown"))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Request ID") {
		t.Error("expected the error page to show the request ID")
	}
}

func TestAPISession(t *testing.T) {
	a := newTestApp(t, nil, validSession)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without a session, got %d", rec.Code)
	}

	rec = serve(a, sessionRequest(http.MethodGet, "/api/v1/session"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"email":"ada@example.com"`) {
		t.Errorf("expected profile JSON, got %s", rec.Body.String())
	}
}

func TestLoginPost_RequiresCSRF(t *testing.T) {
	a := newTestApp(t, nil, nil)

	form := url.Values{"login": {"ada@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)

	if rec := serve(a, req); rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestErrorHandler_Upstream(t *testing.T) {
	a := newTestApp(t, nil, nil)
	fail := func(echo.Context) error { return apperror.NewUpstream(errors.New("dial tcp: refused")) }
	a.Echo.GET("/boom", fail)
	a.Echo.GET("/api/boom", fail)

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != PathError {
		t.Errorf("expected 303 to /error, got %d %q", rec.Code, rec.Header().Get("Location"))
	}

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("HX-Request", "true")
	rec = serve(a, req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != PathError {
		t.Errorf("expected HX-Redirect to /error, got %d %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, "/api/boom", nil))
	if rec.Code != http.StatusBadGateway || !strings.Contains(rec.Body.String(), apperror.GenericFailureMessage) {
		t.Errorf("expected 502 JSON, got %d %s", rec.Code, rec.Body.String())
	}

	rec = serve(a, httptest.NewRequest(http.MethodGet, PathError, nil))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected error page with 502, got %d", rec.Code)
	}
}

func TestDashboard_UnreachableSettingsGoToErrorPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == backend.PathCheckSession {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, validSession[backend.PathCheckSession])
			return
		}
		http.Error(w, "<html>bad gateway</html>", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	a := newTestAppAt(t, nil, srv.URL)

	for _, path := range []string{"/dashboard", "/dashboard/settings"} {
		rec := serve(a, sessionRequest(http.MethodGet, path))
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != PathError {
			t.Errorf("%s: expected 303 to /error, got %d %q", path, rec.Code, rec.Header().Get("Location"))
		}
	}
}

func TestDashboard_MalformedSettingsShowNotice(t *testing.T) {
	a := newTestApp(t, nil, map[string]string{
		backend.PathCheckSession: validSession[backend.PathCheckSession],
		backend.PathSettings:     `{"success":true,"data":["not","an","object"]}`,
	})

	rec := serve(a, sessionRequest(http.MethodGet, "/dashboard/settings"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Unable to load data from the server.") {
		t.Error("expected unable-to-load notice")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestApp(t, nil, validSession)

	serve(a, sessionRequest(http.MethodGet, "/dashboard"))

	rec := serve(a, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"adminconsole_guard_decisions_total", "adminconsole_backend_calls_total", "adminconsole_http_requests_total"} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in metrics output", want)
		}
	}
}

func TestHealthz(t *testing.T) {
	a := newTestApp(t, nil, nil)
	if rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("memory stores: expected 200, got %d", rec.Code)
	}

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })

	a = newTestApp(t, rdb, nil)
	if rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusOK {
		t.Errorf("redis up: expected 200, got %d", rec.Code)
	}

	mr.Close()
	if rec := serve(a, httptest.NewRequest(http.MethodGet, "/healthz", nil)); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("redis down: expected 503, got %d", rec.Code)
	}
}

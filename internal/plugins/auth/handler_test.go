package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/adminconsole/internal/backend"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
)

const testSecret = "test-secret-that-is-long-enough-0123"

// stubBackend records calls to the fake admin API and answers each path with
// a canned body.
type stubBackend struct {
	mu        sync.Mutex
	responses map[string]string
	calls     map[string]int
	bodies    map[string][]byte
	auth      map[string]string
}

func (s *stubBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	s.calls[r.URL.Path]++
	s.bodies[r.URL.Path] = body
	s.auth[r.URL.Path] = r.Header.Get("Authorization")
	resp, ok := s.responses[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, resp)
}

func (s *stubBackend) callCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func (s *stubBackend) lastBody(path string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bodies[path]
}

func (s *stubBackend) lastAuth(path string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auth[path]
}

// testEnv wires the auth plugin against a stub backend the way the app does.
type testEnv struct {
	e        *echo.Echo
	guards   *Guards
	backend  *stubBackend
	sealer   *Sealer
	profiles sessionstate.Provider
}

func newTestEnv(t *testing.T, responses map[string]string) *testEnv {
	t.Helper()

	stub := &stubBackend{
		responses: responses,
		calls:     map[string]int{},
		bodies:    map[string][]byte{},
		auth:      map[string]string{},
	}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)

	client := backend.NewClient(srv.URL, 2*time.Second)
	sealer, err := NewSealer(testSecret)
	if err != nil {
		t.Fatalf("NewSealer: %v", err)
	}
	profiles := sessionstate.NewMemoryProvider()
	t.Cleanup(func() { profiles.Close() })

	validator := NewSessionValidator(client, 0)
	sessions := NewSessions(CookiePolicy{Mode: "false"}, sealer, profiles, validator, time.Hour)
	guards := NewGuards(sessions, validator, nil)
	flow := NewLoginFlow(client, NewMemoryCooldown(), 60*time.Second, nil)

	e := echo.New()
	RegisterRoutes(e, NewHandler(flow, sessions), guards)

	protected := e.Group(PathDashboard, guards.RequireSession(), guards.RequireAuth())
	protected.GET("", func(c echo.Context) error {
		name := ""
		if p := GetProfile(c); p != nil {
			name = p.DisplayName()
		}
		return c.String(http.StatusOK, "dashboard:"+GetSessionToken(c)+":"+name)
	})

	return &testEnv{e: e, guards: guards, backend: stub, sealer: sealer, profiles: profiles}
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func (env *testEnv) pendingCookies(t *testing.T, p PendingLogin) []*http.Cookie {
	t.Helper()
	sealed, err := env.sealer.Seal(p.Password)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	return []*http.Cookie{
		{Name: CookieLogin, Value: url.QueryEscape(p.Login)},
		{Name: CookiePassword, Value: sealed},
		{Name: CookieAction, Value: p.Action},
	}
}

func formRequest(target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func assertRedirect(t *testing.T, rec *httptest.ResponseRecorder, target string) {
	t.Helper()
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d: %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != target {
		t.Errorf("expected redirect to %s, got %s", target, loc)
	}
}

func assertDeleted(t *testing.T, rec *httptest.ResponseRecorder, names ...string) {
	t.Helper()
	for _, name := range names {
		c := findCookie(rec, name)
		if c == nil || c.MaxAge >= 0 {
			t.Errorf("expected %s to be deleted, got %+v", name, c)
		}
	}
}

func futureExpiry() string {
	return time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
}

// --- Edge and Auth guard ---

func TestEdge_NoTokenRedirectsWithoutBackendCall(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathCheckSession: `{"success":true}`,
	})

	rec := env.do(httptest.NewRequest(http.MethodGet, "/dashboard", nil))

	assertRedirect(t, rec, PathLogin)
	if n := env.backend.callCount(backend.PathCheckSession); n != 0 {
		t.Errorf("expected no backend call, got %d", n)
	}
}

func TestEdge_InvalidSessionRedirectsToLogout(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathCheckSession: `{"success":false,"msg":"Session expired"}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	rec := env.do(req)

	assertRedirect(t, rec, PathLogout)
	if n := env.backend.callCount(backend.PathCheckSession); n != 1 {
		t.Errorf("expected 1 backend call, got %d", n)
	}
	if got := env.backend.lastAuth(backend.PathCheckSession); got != "Bearer T" {
		t.Errorf("expected bearer token, got %q", got)
	}
	assertDeleted(t, rec, CookieSessionKey, CookieSessionExpiration)
}

func TestEdge_BackendDownCountsAsInvalid(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	req.AddCookie(&http.Cookie{Name: CookieSessionExpiration, Value: futureExpiry()})

	assertRedirect(t, env.do(req), PathLogout)
}

func TestGuards_ValidSessionReachesPageWithOneCheck(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathCheckSession: `{"success":true,"data":{"user":{"id":"u1","name":"Ada","email":"ada@example.com"}}}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	req.AddCookie(&http.Cookie{Name: CookieSessionExpiration, Value: url.QueryEscape(futureExpiry())})
	rec := env.do(req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if body := rec.Body.String(); body != "dashboard:T:Ada" {
		t.Errorf("unexpected body %q", body)
	}
	if n := env.backend.callCount(backend.PathCheckSession); n != 1 {
		t.Errorf("expected edge and guard to share 1 backend call, got %d", n)
	}
	if _, err := env.profiles.Read(context.Background(), "T"); err != nil {
		t.Errorf("expected profile to be cached: %v", err)
	}
}

func TestAuthGuard_MissingExpirationRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathCheckSession: `{"success":true}`,
	})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})

	assertRedirect(t, env.do(req), PathLogin)
}

func TestEdge_HTMXAndAPIResponses(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	req.Header.Set("HX-Request", "true")
	rec := env.do(req)
	if rec.Code != http.StatusNoContent || rec.Header().Get("HX-Redirect") != PathLogin {
		t.Errorf("expected HX-Redirect to /login, got %d %q", rec.Code, rec.Header().Get("HX-Redirect"))
	}

	env.e.GET("/api/ping", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		env.guards.RequireSession())
	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for API request, got %d", rec.Code)
	}
}

// --- Guest guard ---

func TestGuestGuard_SignedInGoesToDashboard(t *testing.T) {
	env := newTestEnv(t, map[string]string{})
	if err := env.profiles.Write(context.Background(), "T", &sessionstate.Profile{ID: "u1"}, time.Hour); err != nil {
		t.Fatalf("Write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, PathLogin, nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	req.AddCookie(&http.Cookie{Name: CookieSessionExpiration, Value: url.QueryEscape(futureExpiry())})

	assertRedirect(t, env.do(req), PathDashboard)
}

func TestGuestGuard_WithoutProfileShowsLogin(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	req := httptest.NewRequest(http.MethodGet, PathLogin, nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	req.AddCookie(&http.Cookie{Name: CookieSessionExpiration, Value: url.QueryEscape(futureExpiry())})
	rec := env.do(req)

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `action="/login"`) {
		t.Errorf("expected login form, got %d", rec.Code)
	}
}

// --- Pending-login guard ---

func TestPendingGuard_MissingCookiesGoesBack(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	rec := env.do(httptest.NewRequest(http.MethodGet, PathVerify, nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "history.back()") {
		t.Errorf("expected back page, got %d: %s", rec.Code, rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, PathVerify, nil)
	req.Header.Set("Referer", "http://example.com/forgot-password")
	assertRedirect(t, env.do(req), "/forgot-password")

	for _, referer := range []string{
		"https://evil.test/phish",
		"http://example.com//evil.test/x",
		"http://example.com/%2Fevil.test/x",
	} {
		foreign := httptest.NewRequest(http.MethodGet, PathVerify, nil)
		foreign.Header.Set("Referer", referer)
		rec := env.do(foreign)
		if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "history.back()") {
			t.Errorf("%s: expected back page, got %d Location=%q", referer, rec.Code, rec.Header().Get("Location"))
		}
	}

	withQuery := httptest.NewRequest(http.MethodGet, PathVerify, nil)
	withQuery.Header.Set("Referer", "http://example.com/login?next=%2Fdashboard")
	assertRedirect(t, env.do(withQuery), "/login?next=%2Fdashboard")
}

func TestPendingGuard_TamperedPasswordCookieDenied(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	req := httptest.NewRequest(http.MethodGet, PathVerify, nil)
	req.AddCookie(&http.Cookie{Name: CookieLogin, Value: "a%40b.com"})
	req.AddCookie(&http.Cookie{Name: CookiePassword, Value: "plaintext"})
	req.AddCookie(&http.Cookie{Name: CookieAction, Value: ActionLogin2FA})

	rec := env.do(req)
	if !strings.Contains(rec.Body.String(), "history.back()") {
		t.Errorf("expected back page for unsealed password, got %d", rec.Code)
	}
}

// --- Login flow ---

func TestLogin_PendingWritesTransientCookies(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathLogin: `{"success":true,"data":{"otpRequired":true}}`,
	})

	rec := env.do(formRequest(PathLogin, url.Values{"login": {"a@b.com"}, "password": {"secret"}}))
	assertRedirect(t, rec, PathVerify)

	login := findCookie(rec, CookieLogin)
	action := findCookie(rec, CookieAction)
	password := findCookie(rec, CookiePassword)
	if login == nil || login.Value != url.QueryEscape("a@b.com") {
		t.Errorf("unexpected login cookie %+v", login)
	}
	if action == nil || action.Value != ActionLogin2FA {
		t.Errorf("unexpected action cookie %+v", action)
	}
	if password == nil || password.Value == "" || password.Value == "secret" {
		t.Fatalf("expected sealed password cookie, got %+v", password)
	}
	if opened, err := env.sealer.Open(password.Value); err != nil || opened != "secret" {
		t.Errorf("expected sealed secret, got %q, %v", opened, err)
	}
}

func TestLogin_RejectedShowsBackendMessage(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathLogin: `{"success":false,"msg":"Invalid <b>credentials</b>"}`,
	})

	rec := env.do(formRequest(PathLogin, url.Values{"login": {"a@b.com"}, "password": {"x"}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected form re-render, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid credentials") {
		t.Errorf("expected sanitized backend message in body: %s", rec.Body.String())
	}
	if findCookie(rec, CookieLogin) != nil {
		t.Error("expected no pending cookies on rejection")
	}
}

func TestVerify_HappyPathEstablishesSession(t *testing.T) {
	expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
	env := newTestEnv(t, map[string]string{
		backend.PathLoginVerify: `{"success":true,"data":{"token":"T","expiresAt":"` + expires + `","user":{"id":"u1","name":"Ada"}}}`,
	})

	pending := PendingLogin{Login: "a@b.com", Password: "secret", Action: ActionLogin2FA}
	rec := env.do(formRequest(PathVerify, url.Values{"otp": {"123456"}}, env.pendingCookies(t, pending)...))

	assertRedirect(t, rec, PathDashboard)

	var payload map[string]string
	if err := json.Unmarshal(env.backend.lastBody(backend.PathLoginVerify), &payload); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	want := map[string]string{"login": "a@b.com", "otp": "123456", "action": "login_2fa", "password": "secret"}
	for k, v := range want {
		if payload[k] != v {
			t.Errorf("payload[%s] = %q, want %q", k, payload[k], v)
		}
	}

	session := findCookie(rec, CookieSessionKey)
	if session == nil || session.Value != "T" {
		t.Fatalf("expected session_key=T, got %+v", session)
	}
	if session.MaxAge <= 0 || session.MaxAge > 3600 {
		t.Errorf("expected positive Max-Age up to 3600, got %d", session.MaxAge)
	}
	if exp := findCookie(rec, CookieSessionExpiration); exp == nil || exp.MaxAge <= 0 {
		t.Errorf("expected session_expiration with Max-Age, got %+v", exp)
	}
	assertDeleted(t, rec, CookieLogin, CookiePassword, CookieAction)

	if p, err := env.profiles.Read(context.Background(), "T"); err != nil || p.Name != "Ada" {
		t.Errorf("expected cached profile, got %+v, %v", p, err)
	}
}

func TestVerify_FailureKeepsPendingCookies(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathLoginVerify: `{"success":false,"msg":"Invalid code"}`,
	})

	pending := PendingLogin{Login: "a@b.com", Password: "secret", Action: ActionLogin2FA}
	rec := env.do(formRequest(PathVerify, url.Values{"otp": {"000000"}}, env.pendingCookies(t, pending)...))

	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Invalid code") {
		t.Errorf("expected verify form with message, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Errorf("expected cookies untouched, got %v", rec.Result().Cookies())
	}
}

func TestVerify_PasswordResetRedirectsToLogin(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathForgotPasswordVerify: `{"success":true}`,
	})

	pending := PendingLogin{Login: "a@b.com", Password: "new-password", Action: ActionForgotPassword}
	rec := env.do(formRequest(PathVerify, url.Values{"otp": {"123456"}}, env.pendingCookies(t, pending)...))

	assertRedirect(t, rec, PathLogin+"?reset=success")
	assertDeleted(t, rec, CookieLogin, CookiePassword, CookieAction)
	if findCookie(rec, CookieSessionKey) != nil {
		t.Error("expected no session from a password reset")
	}
}

func TestResend_TwiceWithinCooldownCallsBackendOnce(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathResendOTP: `{"success":true}`,
	})
	pending := PendingLogin{Login: "a@b.com", Password: "secret", Action: ActionLogin2FA}

	first := env.do(formRequest(PathResend, url.Values{}, env.pendingCookies(t, pending)...))
	if !strings.Contains(first.Body.String(), "A new code is on its way.") {
		t.Errorf("expected sent notice, got %s", first.Body.String())
	}

	second := env.do(formRequest(PathResend, url.Values{}, env.pendingCookies(t, pending)...))
	if body := second.Body.String(); strings.Contains(body, "A new code is on its way.") || !strings.Contains(body, "disabled>Resend code in ") {
		t.Errorf("expected suppressed resend with countdown, got %s", body)
	}

	if n := env.backend.callCount(backend.PathResendOTP); n != 1 {
		t.Errorf("expected exactly 1 resend call, got %d", n)
	}
}

func TestLogin_FirstCodeStartsResendCountdown(t *testing.T) {
	env := newTestEnv(t, map[string]string{
		backend.PathLogin:     `{"success":true,"data":{"otpRequired":true}}`,
		backend.PathResendOTP: `{"success":true}`,
	})

	login := env.do(formRequest(PathLogin, url.Values{"login": {"a@b.com"}, "password": {"secret"}}))
	assertRedirect(t, login, PathVerify)
	cookies := login.Result().Cookies()

	page := httptest.NewRequest(http.MethodGet, PathVerify, nil)
	for _, c := range cookies {
		page.AddCookie(c)
	}
	if body := env.do(page).Body.String(); !strings.Contains(body, "disabled>Resend code in ") {
		t.Errorf("expected verify page to start with a countdown, got %s", body)
	}

	resend := env.do(formRequest(PathResend, url.Values{}, cookies...))
	if strings.Contains(resend.Body.String(), "A new code is on its way.") {
		t.Errorf("expected resend to be suppressed right after login, got %s", resend.Body.String())
	}
	if n := env.backend.callCount(backend.PathResendOTP); n != 0 {
		t.Errorf("expected no resend calls, got %d", n)
	}
}

func TestCancel_DeletesTransientCookies(t *testing.T) {
	env := newTestEnv(t, map[string]string{})

	rec := env.do(formRequest(PathCancel, url.Values{}))
	assertRedirect(t, rec, PathLogin)
	assertDeleted(t, rec, CookieLogin, CookiePassword, CookieAction)
}

func TestLogout_ClearsEverything(t *testing.T) {
	env := newTestEnv(t, map[string]string{})
	if err := env.profiles.Write(context.Background(), "T", &sessionstate.Profile{ID: "u1"}, time.Hour); err != nil {
		t.Fatalf("Write: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, PathLogout, nil)
	req.AddCookie(&http.Cookie{Name: CookieSessionKey, Value: "T"})
	rec := env.do(req)

	assertRedirect(t, rec, PathLogin)
	assertDeleted(t, rec, CookieSessionKey, CookieSessionExpiration, CookieLogin, CookiePassword, CookieAction)
	if _, err := env.profiles.Read(context.Background(), "T"); err == nil {
		t.Error("expected cached profile to be cleared")
	}
}

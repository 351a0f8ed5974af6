package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	// csrfCookieName holds the console's double-submit token.
	csrfCookieName = "adminconsole_csrf"

	// csrfFormField is the hidden input rendered by layouts.CSRFField.
	csrfFormField = "csrf_token"

	// csrfHeaderName carries the token for requests sent from script.
	csrfHeaderName = "X-CSRF-Token"

	// csrfContextKey is where the current token is kept on the echo.Context.
	csrfContextKey = "csrf_token"

	csrfTokenBytes = 32
)

// CSRF guards the console's form posts (login, code verification, resend,
// logout) with a double-submit token. Every non-API response carries the
// token cookie; a POST, PUT, PATCH or DELETE must echo it back in the
// csrf_token field or the X-CSRF-Token header, otherwise it gets a 403.
func CSRF() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			// /api/ answers JSON to bearer-token callers and never reads the
			// session cookie.
			if strings.HasPrefix(req.URL.Path, "/api/") {
				return next(c)
			}

			token, err := ensureCSRFCookie(c)
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to generate CSRF token")
			}
			c.Set(csrfContextKey, token)

			if isSafeMethod(req.Method) {
				return next(c)
			}

			submitted := req.Header.Get(csrfHeaderName)
			if submitted == "" {
				submitted = req.FormValue(csrfFormField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusForbidden, "invalid or missing CSRF token")
			}
			return next(c)
		}
	}
}

// ensureCSRFCookie returns the token from the request cookie, issuing a new
// cookie when the browser has none yet.
func ensureCSRFCookie(c echo.Context) (string, error) {
	req := c.Request()
	if ck, err := req.Cookie(csrfCookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}

	token, err := newCSRFToken()
	if err != nil {
		return "", err
	}
	c.SetCookie(&http.Cookie{
		Name:  csrfCookieName,
		Value: token,
		Path:  "/",
		// Read by page script for the header form.
		HttpOnly: false,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteStrictMode,
	})
	return token, nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return true
	}
	return false
}

// newCSRFToken returns 32 random bytes, hex encoded.
func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GetCSRFToken returns the token CSRF stored for this request, or "".
// The app's layout injector hands it to the templates.
func GetCSRFToken(c echo.Context) string {
	token, _ := c.Get(csrfContextKey).(string)
	return token
}

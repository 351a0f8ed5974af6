package auth

import (
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
)

// CookieOptions are the optional attributes of a written cookie. Zero values
// mean: path "/", SameSite=Strict, HttpOnly, no Max-Age (browser session).
type CookieOptions struct {
	MaxAge   int
	Expires  time.Time
	SameSite http.SameSite
	Path     string

	// Secure overrides the jar's policy when non-nil.
	Secure *bool

	// Script makes the cookie readable from JavaScript (HttpOnly off).
	Script bool
}

// CookiePolicy decides the Secure attribute for cookies the console writes.
type CookiePolicy struct {
	// Mode is "auto" (follow TLS / X-Forwarded-Proto), "true" or "false".
	Mode string
}

// secure resolves the Secure attribute for a request.
func (p CookiePolicy) secure(req *http.Request) bool {
	switch p.Mode {
	case "true":
		return true
	case "false":
		return false
	default:
		return req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https"
	}
}

// CookieJar reads and writes the console's cookies for one request. Values
// are URL-escaped on write and unescaped on read. Nothing is cached: every
// Get re-parses the raw headers, checking cookies already written to the
// response (last write wins) before the ones the browser sent.
type CookieJar struct {
	c      echo.Context
	policy CookiePolicy
}

// NewCookieJar creates a jar bound to the request in c.
func NewCookieJar(c echo.Context, policy CookiePolicy) *CookieJar {
	return &CookieJar{c: c, policy: policy}
}

// Set writes a cookie.
func (j *CookieJar) Set(name, value string, opts CookieOptions) {
	cookie := &http.Cookie{
		Name:     name,
		Value:    url.QueryEscape(value),
		Path:     opts.Path,
		MaxAge:   opts.MaxAge,
		Expires:  opts.Expires,
		SameSite: opts.SameSite,
		HttpOnly: !opts.Script,
		Secure:   j.policy.secure(j.c.Request()),
	}
	if cookie.Path == "" {
		cookie.Path = "/"
	}
	if cookie.SameSite == 0 {
		cookie.SameSite = http.SameSiteStrictMode
	}
	if opts.Secure != nil {
		cookie.Secure = *opts.Secure
	}
	j.c.SetCookie(cookie)
}

// Get returns the unescaped value of a cookie, or ("", false) when absent.
// A cookie deleted earlier in the same request reads as absent.
func (j *CookieJar) Get(name string) (string, bool) {
	written := j.c.Response().Header().Values("Set-Cookie")
	for i := len(written) - 1; i >= 0; i-- {
		cookie, err := http.ParseSetCookie(written[i])
		if err != nil || cookie.Name != name {
			continue
		}
		if cookie.MaxAge < 0 || cookie.Value == "" {
			return "", false
		}
		return unescape(cookie.Value), true
	}

	cookie, err := j.c.Request().Cookie(name)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return unescape(cookie.Value), true
}

// Value returns the cookie's value, or "" when absent.
func (j *CookieJar) Value(name string) string {
	v, _ := j.Get(name)
	return v
}

// Delete clears a cookie immediately.
func (j *CookieJar) Delete(name string) {
	j.c.SetCookie(&http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   j.policy.secure(j.c.Request()),
	})
}

// unescape decodes a cookie value, falling back to the raw value for cookies
// not written by this jar.
func unescape(raw string) string {
	v, err := url.QueryUnescape(raw)
	if err != nil {
		return raw
	}
	return v
}

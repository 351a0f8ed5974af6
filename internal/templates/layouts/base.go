package layouts

import (
	"strings"

	"github.com/a-h/templ"
)

// appName is shown in titles and the header.
const appName = "Admin Console"

const styles = `
body{margin:0;font-family:system-ui,sans-serif;background:#f5f6f8;color:#1f2933}
a{color:#2f5fd0}
.shell{display:flex;min-height:100vh}
.sidebar{width:220px;background:#1f2933;color:#fff;padding:1rem}
.sidebar a{display:block;color:#cbd2d9;padding:.4rem .6rem;border-radius:4px;text-decoration:none}
.sidebar a.active{background:#323f4b;color:#fff}
.main{flex:1;padding:1.5rem 2rem}
.topbar{display:flex;justify-content:space-between;align-items:center;margin-bottom:1rem}
.card{background:#fff;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,.1);padding:1.5rem}
.auth{max-width:380px;margin:10vh auto}
.flash{padding:.75rem 1rem;border-radius:6px;margin-bottom:1rem}
.flash.error{background:#fde8e8;color:#9b1c1c}
.flash.success{background:#def7ec;color:#03543f}
label{display:block;margin:.75rem 0 .25rem}
input{width:100%;box-sizing:border-box;padding:.5rem;border:1px solid #cbd2d9;border-radius:4px}
button{margin-top:1rem;padding:.5rem 1rem;border:0;border-radius:4px;background:#2f5fd0;color:#fff;cursor:pointer}
button[disabled]{background:#9aa5b1;cursor:not-allowed}
button.link{background:none;color:#2f5fd0;padding:0}
`

// Base renders a full page with the dashboard chrome when the admin is
// signed in, or a bare centered card otherwise.
func Base(title string, body templ.Component) templ.Component {
	return Component(func(h *HTML) {
		ctx := h.Ctx()

		h.Raw("<!DOCTYPE html><html lang=\"en\"><head><meta charset=\"utf-8\">")
		h.Raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		if token := GetCSRFToken(ctx); token != "" {
			h.Raw(`<meta name="csrf-token"`)
			h.Attr("content", token)
			h.Raw(">")
		}
		h.Raw("<title>")
		if title != "" {
			h.Text(title + " · ")
		}
		h.Text(appName)
		h.Raw("</title><style>" + styles + "</style></head><body>")

		if IsAuthenticated(ctx) {
			h.Raw(`<div class="shell">`)
			sidebar(h)
			h.Raw(`<main class="main">`)
			topbar(h)
			flashes(h)
			h.Component(body)
			h.Raw(`</main></div>`)
		} else {
			h.Raw(`<main class="auth">`)
			flashes(h)
			h.Component(body)
			h.Raw(`</main>`)
		}

		h.Raw("</body></html>")
	})
}

func sidebar(h *HTML) {
	ctx := h.Ctx()
	active := GetActivePath(ctx)

	h.Raw(`<nav class="sidebar"><strong>`)
	h.Text(appName)
	h.Raw(`</strong>`)
	for _, item := range GetNavItems(ctx) {
		h.Raw("<a")
		h.URL("href", item.Path)
		if isActive(active, item.Path) {
			h.Attr("class", "active")
		}
		h.Raw(">")
		h.Text(item.Label)
		h.Raw("</a>")
	}
	h.Raw(`</nav>`)
}

func topbar(h *HTML) {
	ctx := h.Ctx()
	h.Raw(`<div class="topbar"><span>`)
	if name := GetUserName(ctx); name != "" {
		h.Text(name)
		if role := GetUserRole(ctx); role != "" {
			h.Text(" (" + role + ")")
		}
	}
	h.Raw(`</span><form method="post" action="/logout">`)
	CSRFField(h)
	h.Raw(`<button type="submit" class="link">Sign out</button></form></div>`)
}

func flashes(h *HTML) {
	ctx := h.Ctx()
	if msg := GetFlashError(ctx); msg != "" {
		Flash(h, "error", msg)
	}
	if msg := GetFlashSuccess(ctx); msg != "" {
		Flash(h, "success", msg)
	}
}

// Flash writes a notice box. kind is "error" or "success".
func Flash(h *HTML, kind, msg string) {
	h.Raw(`<div role="alert"`)
	h.Attr("class", "flash "+kind)
	h.Raw(">")
	h.Text(msg)
	h.Raw("</div>")
}

// CSRFField writes the hidden CSRF form field.
func CSRFField(h *HTML) {
	h.Raw(`<input type="hidden" name="csrf_token"`)
	h.Attr("value", GetCSRFToken(h.Ctx()))
	h.Raw(">")
}

// isActive reports whether path is the active nav entry. The dashboard root
// only matches itself; sections match their subpaths too.
func isActive(active, path string) bool {
	if active == path {
		return true
	}
	return path != "/dashboard" && strings.HasPrefix(active, path+"/")
}

// Package pages holds the page components shared across plugins: the error
// page, the browser-back bounce and the data-unavailable notice.
package pages

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/keyxmakerx/adminconsole/internal/templates/layouts"
)

// UnableToLoadMessage is shown where backend data could not be read.
const UnableToLoadMessage = "Unable to load data from the server."

// ErrorPage renders a full error page for the given status code.
func ErrorPage(code int, message string) templ.Component {
	return layouts.Base(strconv.Itoa(code), layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><h1>`)
		h.Text(strconv.Itoa(code))
		h.Raw(`</h1><p>`)
		h.Text(message)
		h.Raw(`</p>`)
		if id := layouts.GetRequestID(h.Ctx()); id != "" {
			h.Raw(`<p><small>Request ID: `)
			h.Text(id)
			h.Raw(`</small></p>`)
		}
		h.Raw(`<p><a href="/dashboard">Go to dashboard</a></p></section>`)
	}))
}

// BackPage sends the browser one step back in its history. Browsers without
// history (or without scripts) get a link to fallback instead.
func BackPage(fallback string) templ.Component {
	return layouts.Base("Redirecting", layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><p>Returning to the previous page…</p>`)
		h.Raw(`<p><a`)
		h.URL("href", fallback)
		h.Raw(`>Continue</a></p></section>`)
		h.Raw(`<script>if (history.length > 1) { history.back(); } else { location.replace(`)
		h.Raw(strconv.Quote(fallback))
		h.Raw(`); }</script>`)
	}))
}

// UnableToLoad is the inline notice rendered in place of backend data that
// could not be loaded.
func UnableToLoad() templ.Component {
	return layouts.Component(func(h *layouts.HTML) {
		layouts.Flash(h, "error", UnableToLoadMessage)
	})
}

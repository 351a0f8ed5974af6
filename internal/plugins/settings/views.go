package settings

import (
	"github.com/a-h/templ"

	"github.com/keyxmakerx/adminconsole/internal/templates/layouts"
	"github.com/keyxmakerx/adminconsole/internal/templates/pages"
)

// SettingsPage lists the backend settings, or a notice when they could not
// be loaded (nil snapshot).
func SettingsPage(snap *Snapshot) templ.Component {
	return layouts.Base("Settings", layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><h1>Settings</h1>`)
		switch {
		case snap == nil:
			h.Component(pages.UnableToLoad())
		case len(snap.Entries) == 0:
			h.Raw(`<p>No settings configured.</p>`)
		default:
			h.Raw(`<table><tbody>`)
			for _, e := range snap.Entries {
				h.Raw(`<tr><th scope="row">`)
				h.Text(e.Key)
				h.Raw(`</th><td>`)
				h.Text(e.Value)
				h.Raw(`</td></tr>`)
			}
			h.Raw(`</tbody></table>`)
		}
		h.Raw(`</section>`)
	}))
}

package dashboard

import (
	"github.com/a-h/templ"

	"github.com/keyxmakerx/adminconsole/internal/plugins/settings"
	"github.com/keyxmakerx/adminconsole/internal/sessionstate"
	"github.com/keyxmakerx/adminconsole/internal/templates/layouts"
	"github.com/keyxmakerx/adminconsole/internal/templates/pages"
)

// HomePage renders the overview. A nil snapshot means settings could not be
// loaded.
func HomePage(profile *sessionstate.Profile, snap *settings.Snapshot) templ.Component {
	return layouts.Base("Overview", layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><h1>Welcome`)
		if name := profile.DisplayName(); name != "" {
			h.Text(", " + name)
		}
		h.Raw(`</h1>`)

		if snap == nil {
			h.Component(pages.UnableToLoad())
		} else if site := snap.Get("site_name"); site != "" {
			h.Raw(`<p>`)
			h.Text(site)
			h.Raw(`</p>`)
		}

		h.Raw(`<ul>`)
		for _, s := range sections {
			h.Raw(`<li><a`)
			h.URL("href", "/dashboard/"+s.Slug)
			h.Raw(`>`)
			h.Text(s.Title)
			h.Raw(`</a> `)
			h.Text(s.Blurb)
			h.Raw(`</li>`)
		}
		h.Raw(`</ul></section>`)
	}))
}

// SectionPage renders a management area shell.
func SectionPage(s Section) templ.Component {
	return layouts.Base(s.Title, layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><h1>`)
		h.Text(s.Title)
		h.Raw(`</h1><p>`)
		h.Text(s.Blurb)
		h.Raw(`</p></section>`)
	}))
}

// ProfilePage renders the cached profile, or a notice when none is cached.
func ProfilePage(p *sessionstate.Profile) templ.Component {
	return layouts.Base("Profile", layouts.Component(func(h *layouts.HTML) {
		h.Raw(`<section class="card"><h1>Profile</h1>`)
		if p == nil {
			h.Component(pages.UnableToLoad())
			h.Raw(`</section>`)
			return
		}
		h.Raw(`<dl>`)
		field(h, "Name", p.Name)
		field(h, "Email", p.Email)
		field(h, "Role", p.Role)
		field(h, "ID", p.ID)
		h.Raw(`</dl></section>`)
	}))
}

func field(h *layouts.HTML, label, value string) {
	if value == "" {
		return
	}
	h.Raw(`<dt>`)
	h.Text(label)
	h.Raw(`</dt><dd>`)
	h.Text(value)
	h.Raw(`</dd>`)
}

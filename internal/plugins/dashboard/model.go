// Package dashboard renders the signed-in area of the console: the home
// page, the management sections and the admin's own profile. Every route
// sits behind the session edge check and the auth guard.
package dashboard

import "github.com/keyxmakerx/adminconsole/internal/templates/layouts"

// Section is one management area of the dashboard.
type Section struct {
	Slug  string
	Title string
	Blurb string
}

// sections lists the management areas in sidebar order.
var sections = []Section{
	{Slug: "admins", Title: "Admins", Blurb: "Console accounts and their roles."},
	{Slug: "partners", Title: "Partners", Blurb: "Advertising partners and their agreements."},
	{Slug: "publishers", Title: "Publishers", Blurb: "Publishers supplying inventory."},
	{Slug: "inventory", Title: "Inventory", Blurb: "Placements available for sale."},
	{Slug: "logs", Title: "Logs", Blurb: "Audit trail of admin activity."},
}

// findSection returns the section with the given slug.
func findSection(slug string) (Section, bool) {
	for _, s := range sections {
		if s.Slug == slug {
			return s, true
		}
	}
	return Section{}, false
}

// NavItems returns the sidebar links for the dashboard.
func NavItems() []layouts.NavItem {
	items := []layouts.NavItem{{Label: "Overview", Path: "/dashboard"}}
	for _, s := range sections {
		items = append(items, layouts.NavItem{Label: s.Title, Path: "/dashboard/" + s.Slug})
	}
	return append(items,
		layouts.NavItem{Label: "Settings", Path: "/dashboard/settings"},
		layouts.NavItem{Label: "Profile", Path: "/dashboard/profile"},
	)
}

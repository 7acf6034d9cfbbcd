package plugin

import (
	"entgo.io/ent/dialect/sql/schema"
)

// Default plugin directory layout, relative to the plugin directory.
const (
	DefaultSrcDir   = "/src"
	DefaultViewsDir = "/resources/views"
	DefaultCacheDir = "/data/cache"
)

// Directories is the layout of a plugin directory. Paths start with "/"
// and are appended to the plugin directory.
type Directories struct {
	Src   string `json:"src" yaml:"src"`
	Views string `json:"views" yaml:"views"`
	Cache string `json:"cache" yaml:"cache"`
}

// WithDefaults fills empty entries with the default layout.
func (d Directories) WithDefaults() Directories {
	if d.Src == "" {
		d.Src = DefaultSrcDir
	}
	if d.Views == "" {
		d.Views = DefaultViewsDir
	}
	if d.Cache == "" {
		d.Cache = DefaultCacheDir
	}
	return d
}

// Definition is what a plugin tells the framework about itself.
type Definition struct {
	// Namespace such as `Acme\Blog`; its identifier is the admin page slug.
	Namespace string
	Directory string

	// AdditionalNamespaces and AdditionalPrefixes are registered with the
	// class loader alongside the plugin's own namespace.
	AdditionalNamespaces map[string]string
	AdditionalPrefixes   map[string]string

	Directories Directories

	// Models are migrated when the ORM runs with auto-migrate.
	Models []*schema.Table
}

// Dirs returns the layout with defaults applied.
func (d Definition) Dirs() Directories {
	return d.Directories.WithDefaults()
}

// MenuPage is an admin menu entry.
type MenuPage struct {
	PageTitle  string `json:"pageTitle"`
	MenuTitle  string `json:"menuTitle"`
	Capability string `json:"capability"`
	Slug       string `json:"slug"`
	Position   int    `json:"position"`
}

// AdminMenuContext is handed to AdminMenuProvider implementations.
type AdminMenuContext struct {
	// Setup hands the definition to the framework and returns the plugin
	// identifier. It only does work when the plugin is the requested page.
	Setup func(def Definition) (string, error)

	pages []MenuPage
}

func NewAdminMenuContext(setup func(Definition) (string, error)) *AdminMenuContext {
	return &AdminMenuContext{Setup: setup}
}

func (m *AdminMenuContext) AddMenuPage(page MenuPage) {
	m.pages = append(m.pages, page)
}

func (m *AdminMenuContext) Pages() []MenuPage {
	out := make([]MenuPage, len(m.pages))
	copy(out, m.pages)
	return out
}

// Page returns the menu page registered under slug.
func (m *AdminMenuContext) Page(slug string) (MenuPage, bool) {
	for _, p := range m.pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return MenuPage{}, false
}

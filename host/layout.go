package host

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/plugin"
)

//go:embed resources/admin.html
var resources embed.FS

// Page is what the admin layout renders around a plugin's output.
type Page struct {
	Title   string
	Current string
	Menu    []plugin.MenuPage
	Content template.HTML
}

// Layout is the admin chrome every HTML response is wrapped in.
type Layout struct {
	tmpl      *template.Template
	adminPath string
	lang      string
}

func NewLayout(adminPath, lang string) (*Layout, error) {
	tmpl, err := template.ParseFS(resources, "resources/admin.html")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTemplate, "parse admin layout")
	}
	return &Layout{tmpl: tmpl, adminPath: adminPath, lang: lang}, nil
}

// Render writes page with status. Rendering happens before the header is
// sent so a template failure still yields a clean 500.
func (l *Layout) Render(w http.ResponseWriter, status int, page Page) {
	var buf bytes.Buffer
	err := l.tmpl.Execute(&buf, map[string]any{
		"Lang":      l.lang,
		"AdminPath": l.adminPath,
		"Title":     page.Title,
		"Current":   page.Current,
		"Menu":      page.Menu,
		"Content":   page.Content,
	})
	if err != nil {
		http.Error(w, "admin layout failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// Terminate ends the request with an error fragment inside the layout.
func (l *Layout) Terminate(w http.ResponseWriter, status int, fragment string) {
	l.Render(w, status, Page{
		Title:   "Error",
		Content: template.HTML(fragment),
	})
}

package view

import (
	"html/template"
	"strings"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/form"
)

// FormRenderer renders form views through the blocks of its themes. Later
// themes override blocks of earlier ones.
type FormRenderer struct {
	themes []string
	engine *Engine
}

func NewFormRenderer(themes ...string) *FormRenderer {
	return &FormRenderer{themes: themes}
}

func (r *FormRenderer) SetEngine(e *Engine) { r.engine = e }

func (r *FormRenderer) RenderBlock(block string, data any) (template.HTML, error) {
	if r.engine == nil {
		return "", errors.New(errors.ErrorTypeTemplate, "form renderer is not bound to an engine")
	}
	for i := len(r.themes) - 1; i >= 0; i-- {
		if r.engine.HasBlock(r.themes[i], block) {
			return r.engine.ExecuteBlock(r.themes[i], block, data)
		}
	}
	return "", errors.New(errors.ErrorTypeTemplate, "no form theme defines block "+block).
		WithDetail("themes", r.themes)
}

func (r *FormRenderer) Start(v *form.FormView) (template.HTML, error) {
	return r.RenderBlock("form_start", v)
}

// End renders the fields not rendered yet, then closes the form.
func (r *FormRenderer) End(v *form.FormView) (template.HTML, error) {
	rest, err := r.Rest(v)
	if err != nil {
		return "", err
	}
	end, err := r.RenderBlock("form_end", v)
	if err != nil {
		return "", err
	}
	return rest + end, nil
}

func (r *FormRenderer) Row(f *form.FieldView) (template.HTML, error) {
	f.SetRendered()
	return r.RenderBlock("form_row", f)
}

func (r *FormRenderer) Widget(f *form.FieldView) (template.HTML, error) {
	f.SetRendered()
	return r.RenderBlock("form_widget", f)
}

func (r *FormRenderer) Label(f *form.FieldView) (template.HTML, error) {
	return r.RenderBlock("form_label", f)
}

// Errors renders the errors of a form view or of a field view.
func (r *FormRenderer) Errors(v any) (template.HTML, error) {
	return r.RenderBlock("form_errors", v)
}

func (r *FormRenderer) Rest(v *form.FormView) (template.HTML, error) {
	var b strings.Builder
	for _, f := range v.Rest() {
		row, err := r.Row(f)
		if err != nil {
			return "", err
		}
		b.WriteString(string(row))
	}
	return template.HTML(b.String()), nil
}

// FormExtension exposes the renderer as form_* template functions.
type FormExtension struct {
	renderer *FormRenderer
}

func NewFormExtension(renderer *FormRenderer) *FormExtension {
	return &FormExtension{renderer: renderer}
}

func (e *FormExtension) Name() string { return "form" }

func (e *FormExtension) Renderer() *FormRenderer { return e.renderer }

func (e *FormExtension) SetEngine(engine *Engine) { e.renderer.SetEngine(engine) }

func (e *FormExtension) Funcs() template.FuncMap {
	return template.FuncMap{
		"form_start":  e.renderer.Start,
		"form_end":    e.renderer.End,
		"form_row":    e.renderer.Row,
		"form_widget": e.renderer.Widget,
		"form_label":  e.renderer.Label,
		"form_errors": e.renderer.Errors,
		"form_rest":   e.renderer.Rest,
	}
}

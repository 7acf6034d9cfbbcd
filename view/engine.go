// Package view renders plugin templates with html/template. Templates are
// looked up through a FilesystemLoader and extended with functions and
// globals contributed by extensions.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"sync"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/utils"
)

// Options configures an Engine. An empty Cache disables caching and every
// render re-parses its template. Engines built with the same Caches share
// parsed templates per cache dir; a nil Caches keeps them per engine.
type Options struct {
	Cache  string
	Caches *TemplateCaches
}

type Engine struct {
	loader   *FilesystemLoader
	cacheDir string
	cache    *TemplateCache

	mu         sync.RWMutex
	extensions []Extension
	globals    map[string]any
	// clones of cache entries bound to this engine's funcs
	parsed map[string]*template.Template
}

// NewEngine creates the cache directory when caching is enabled and it does
// not exist yet.
func NewEngine(loader *FilesystemLoader, opts Options) (*Engine, error) {
	e := &Engine{
		loader:  loader,
		globals: make(map[string]any),
	}
	if opts.Cache != "" {
		if err := utils.CreateDir(opts.Cache); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTemplate, "create template cache dir").WithDetail("path", opts.Cache)
		}
		dir, err := utils.RealPath(opts.Cache)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTemplate, "resolve template cache dir")
		}
		e.cacheDir = dir
		e.parsed = make(map[string]*template.Template)
		if opts.Caches != nil {
			e.cache = opts.Caches.For(dir)
		} else {
			e.cache = NewTemplateCache()
		}
	}
	return e, nil
}

func (e *Engine) Loader() *FilesystemLoader { return e.loader }

func (e *Engine) CacheEnabled() bool { return e.cacheDir != "" }

// CacheDir is the resolved cache directory, empty when caching is off.
func (e *Engine) CacheDir() string { return e.cacheDir }

// Cache is the parsed template cache, nil when caching is off.
func (e *Engine) Cache() *TemplateCache { return e.cache }

// AddExtension registers ext, replacing an extension with the same name.
func (e *Engine) AddExtension(ext Extension) {
	e.mu.Lock()
	replaced := false
	for i, existing := range e.extensions {
		if existing.Name() == ext.Name() {
			e.extensions[i] = ext
			replaced = true
			break
		}
	}
	if !replaced {
		e.extensions = append(e.extensions, ext)
	}
	if e.parsed != nil {
		e.parsed = make(map[string]*template.Template)
	}
	e.mu.Unlock()

	if aware, ok := ext.(EngineAware); ok {
		aware.SetEngine(e)
	}
}

func (e *Engine) Extension(name string) (Extension, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ext := range e.extensions {
		if ext.Name() == name {
			return ext, true
		}
	}
	return nil, false
}

func (e *Engine) AddGlobal(name string, value any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.globals[name] = value
}

// Render executes the named template into w. Data keys shadow globals.
func (e *Engine) Render(w io.Writer, name string, data map[string]any) error {
	t, err := e.load(name)
	if err != nil {
		return err
	}
	if err := t.Execute(w, e.context(data)); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTemplate, "render template").WithDetail("name", name)
	}
	return nil
}

func (e *Engine) RenderString(name string, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := e.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// ExecuteBlock executes one {{define}} block of the named template.
func (e *Engine) ExecuteBlock(name, block string, data any) (template.HTML, error) {
	t, err := e.load(name)
	if err != nil {
		return "", err
	}
	if t.Lookup(block) == nil {
		return "", errors.New(errors.ErrorTypeTemplate, fmt.Sprintf("block %q is not defined in %s", block, name))
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeTemplate, "render block").
			WithDetail("name", name).
			WithDetail("block", block)
	}
	return template.HTML(buf.String()), nil
}

// HasBlock reports whether the named template defines block.
func (e *Engine) HasBlock(name, block string) bool {
	t, err := e.load(name)
	return err == nil && t.Lookup(block) != nil
}

func (e *Engine) context(data map[string]any) map[string]any {
	e.mu.RLock()
	defer e.mu.RUnlock()

	ctx := make(map[string]any, len(e.globals)+len(data))
	for _, ext := range e.extensions {
		if gp, ok := ext.(GlobalsProvider); ok {
			for k, v := range gp.Globals() {
				ctx[k] = v
			}
		}
	}
	for k, v := range e.globals {
		ctx[k] = v
	}
	for k, v := range data {
		ctx[k] = v
	}
	return ctx
}

func (e *Engine) load(name string) (*template.Template, error) {
	if !e.CacheEnabled() {
		t, err := e.parse(name)
		if err != nil {
			return nil, err
		}
		metrics.TemplateRenderTotal.WithLabelValues("disabled").Inc()
		return t, nil
	}

	e.mu.RLock()
	t, ok := e.parsed[name]
	e.mu.RUnlock()
	if ok {
		metrics.TemplateRenderTotal.WithLabelValues("hit").Inc()
		return t, nil
	}

	shared, ok := e.cache.get(name)
	if ok {
		metrics.TemplateRenderTotal.WithLabelValues("hit").Inc()
	} else {
		parsed, err := e.parse(name)
		if err != nil {
			return nil, err
		}
		shared = e.cache.put(name, parsed)
		metrics.TemplateRenderTotal.WithLabelValues("miss").Inc()
	}

	t, err := shared.Clone()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTemplate, "clone cached template").WithDetail("name", name)
	}
	t.Funcs(e.funcs())

	e.mu.Lock()
	if cached, ok := e.parsed[name]; ok {
		t = cached
	} else {
		e.parsed[name] = t
	}
	e.mu.Unlock()
	return t, nil
}

func (e *Engine) parse(name string) (*template.Template, error) {
	src, err := e.loader.Find(name)
	if err != nil {
		return nil, err
	}
	t, err := template.New(name).Funcs(e.funcs()).Parse(src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTemplate, "parse template").WithDetail("name", name)
	}
	return t, nil
}

func (e *Engine) funcs() template.FuncMap {
	fm := template.FuncMap{
		"include": func(name string, data any) (template.HTML, error) {
			var buf bytes.Buffer
			t, err := e.load(name)
			if err != nil {
				return "", err
			}
			if err := t.Execute(&buf, data); err != nil {
				return "", err
			}
			return template.HTML(buf.String()), nil
		},
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ext := range e.extensions {
		if fp, ok := ext.(FuncsProvider); ok {
			for k, fn := range fp.Funcs() {
				fm[k] = fn
			}
		}
	}
	return fm
}

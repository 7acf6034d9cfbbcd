package view

import "html/template"

// Extension plugs functions and globals into an Engine.
type Extension interface {
	Name() string
}

// GlobalsProvider exposes values to every template.
type GlobalsProvider interface {
	Globals() map[string]any
}

// FuncsProvider exposes template functions. Functions must be known before
// templates are parsed, so adding one invalidates the cache.
type FuncsProvider interface {
	Funcs() template.FuncMap
}

// EngineAware extensions receive the engine they were added to.
type EngineAware interface {
	SetEngine(e *Engine)
}

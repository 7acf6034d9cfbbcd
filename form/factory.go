// Package form builds HTML forms over plain structs. Submitted values are
// read from the shared request, bound with `form` tags and checked by the
// extensions registered on the factory (CSRF, validation).
package form

import "net/url"

// Extension is anything added to a FactoryBuilder. Extensions take part in
// the form lifecycle by implementing one or more of the hook interfaces.
type Extension interface {
	Name() string
}

// SubmitHook runs before submitted values are bound. It may remove keys it
// consumed from values.
type SubmitHook interface {
	PreSubmit(f *Form, values url.Values)
}

// ValidateHook runs after binding.
type ValidateHook interface {
	Validate(f *Form)
}

// ViewHook decorates the view of a form.
type ViewHook interface {
	BuildView(f *Form, view *FormView)
}

// MessageTranslator translates error messages added to a form.
type MessageTranslator interface {
	TranslateMessage(id string, params map[string]any) string
}

type FactoryBuilder struct {
	extensions []Extension
}

func NewFactoryBuilder() *FactoryBuilder {
	return &FactoryBuilder{}
}

func (b *FactoryBuilder) AddExtension(ext Extension) *FactoryBuilder {
	if ext != nil {
		b.extensions = append(b.extensions, ext)
	}
	return b
}

func (b *FactoryBuilder) GetFormFactory() *Factory {
	exts := make([]Extension, len(b.extensions))
	copy(exts, b.extensions)
	return &Factory{extensions: exts}
}

// Factory creates forms sharing the same extensions.
type Factory struct {
	extensions []Extension
}

func (f *Factory) Extensions() []Extension {
	return f.extensions
}

// Create builds a form named name over data, a pointer to struct.
func (f *Factory) Create(name string, data any, opts ...Option) *Form {
	o := options{
		intention: "unknown",
		method:    "POST",
		csrf:      true,
	}
	for _, opt := range opts {
		opt(&o)
	}

	fields, err := describeFields(data)
	return &Form{
		name:    name,
		data:    data,
		opts:    o,
		fields:  fields,
		initErr: err,
		factory: f,
	}
}

func (f *Factory) translate(id string, params map[string]any) string {
	for _, ext := range f.extensions {
		if t, ok := ext.(MessageTranslator); ok {
			return t.TranslateMessage(id, params)
		}
	}
	return id
}

type options struct {
	intention string
	action    string
	method    string
	csrf      bool
}

type Option func(*options)

// WithIntention scopes the CSRF token to one kind of form.
func WithIntention(intention string) Option {
	return func(o *options) { o.intention = intention }
}

func WithoutCSRF() Option {
	return func(o *options) { o.csrf = false }
}

func WithAction(action string) Option {
	return func(o *options) { o.action = action }
}

func WithMethod(method string) Option {
	return func(o *options) { o.method = method }
}

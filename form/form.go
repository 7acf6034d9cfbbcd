package form

import (
	"errors"
	"net/url"
	"reflect"
	"strings"

	"github.com/leeforge/orchestra/http/binding"
	"github.com/leeforge/orchestra/request"
)

const (
	messageExtraFields  = "This form should not contain extra fields."
	messageInvalidValue = "This value is not valid."
)

// Error is a violation attached to a field, or to the form when Field is empty.
type Error struct {
	Field   string
	Message string
}

func (e Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

type Form struct {
	name    string
	data    any
	opts    options
	fields  []fieldMeta
	initErr error
	factory *Factory

	submitted bool
	values    url.Values
	errors    []Error
}

func (f *Form) Name() string      { return f.name }
func (f *Form) Data() any         { return f.data }
func (f *Form) Intention() string { return f.opts.intention }
func (f *Form) Method() string    { return strings.ToUpper(f.opts.method) }

// CSRFProtected reports whether the form expects a CSRF token.
func (f *Form) CSRFProtected() bool { return f.opts.csrf }

// HandleRequest submits the form when req uses the form's method and
// carries at least one of its fields. It only fails when the form was
// created over something that is not a pointer to struct.
func (f *Form) HandleRequest(req *request.Request) error {
	if f.initErr != nil {
		return f.initErr
	}
	if req == nil || !req.IsMethod(f.Method()) {
		return nil
	}

	source := req.Body
	if f.Method() == "GET" {
		source = req.Query
	}
	values, ok := f.collect(source)
	if !ok {
		return nil
	}
	f.submit(values)
	return nil
}

// Submit submits values keyed by bare field names.
func (f *Form) Submit(values url.Values) error {
	if f.initErr != nil {
		return f.initErr
	}
	f.submit(values)
	return nil
}

func (f *Form) collect(source url.Values) (url.Values, bool) {
	if f.name == "" {
		return source, len(source) > 0
	}

	prefix := f.name + "["
	values := url.Values{}
	found := false
	for key, vals := range source {
		if key == f.name {
			found = true
			continue
		}
		if !strings.HasPrefix(key, prefix) || !strings.HasSuffix(key, "]") {
			continue
		}
		found = true
		inner := strings.TrimSuffix(key[len(prefix):], "]")
		inner = strings.TrimSuffix(inner, "][")
		values[inner] = append(values[inner], vals...)
	}
	return values, found
}

func (f *Form) submit(values url.Values) {
	f.submitted = true
	f.errors = nil
	f.values = cloneValues(values)

	for _, ext := range f.factory.extensions {
		if hook, ok := ext.(SubmitHook); ok {
			hook.PreSubmit(f, values)
		}
	}

	known := make(map[string]fieldMeta, len(f.fields))
	for _, fm := range f.fields {
		known[fm.name] = fm
	}
	for key := range values {
		if _, ok := known[key]; !ok {
			f.AddError("", messageExtraFields, nil)
			break
		}
	}
	// unchecked checkboxes are not posted at all
	for _, fm := range f.fields {
		if fm.widget == "checkbox" {
			if _, ok := values[fm.name]; !ok {
				values.Set(fm.name, "false")
			}
		}
	}

	if err := binding.Values(values, f.data); err != nil {
		var bindErr *binding.BindError
		field := ""
		if errors.As(err, &bindErr) {
			field = f.fieldByGoName(bindErr.Field)
		}
		f.AddError(field, messageInvalidValue, nil)
	}

	for _, ext := range f.factory.extensions {
		if hook, ok := ext.(ValidateHook); ok {
			hook.Validate(f)
		}
	}
}

func (f *Form) fieldByGoName(goName string) string {
	for _, fm := range f.fields {
		if fm.goName == goName {
			return fm.name
		}
	}
	return ""
}

// AddError attaches a translated message to field ("" for the form).
func (f *Form) AddError(field, message string, params map[string]any) {
	f.errors = append(f.errors, Error{Field: field, Message: f.factory.translate(message, params)})
}

func (f *Form) addTranslatedError(field, message string) {
	f.errors = append(f.errors, Error{Field: field, Message: message})
}

func (f *Form) IsSubmitted() bool { return f.submitted }

func (f *Form) IsValid() bool { return f.submitted && len(f.errors) == 0 }

func (f *Form) Errors() []Error {
	out := make([]Error, len(f.errors))
	copy(out, f.errors)
	return out
}

// FieldErrors returns the messages attached to one field.
func (f *Form) FieldErrors(field string) []string {
	var msgs []string
	for _, e := range f.errors {
		if e.Field == field {
			msgs = append(msgs, e.Message)
		}
	}
	return msgs
}

// CreateView builds the render model of the form. Submitted forms show the
// submitted values, fresh forms show the bound data.
func (f *Form) CreateView() *FormView {
	view := &FormView{
		Name:      f.name,
		Action:    f.opts.action,
		Method:    f.Method(),
		Submitted: f.submitted,
		Valid:     f.IsValid(),
		Errors:    f.FieldErrors(""),
	}

	var rv reflect.Value
	if f.initErr == nil {
		rv = reflect.ValueOf(f.data).Elem()
	}
	for _, fm := range f.fields {
		value := ""
		if f.submitted {
			value = strings.Join(f.values[fm.name], ",")
		} else if rv.IsValid() {
			value = formatValue(rv.Field(fm.index))
		}
		view.Fields = append(view.Fields, &FieldView{
			Name:     fm.name,
			FullName: fullName(f.name, fm.name),
			ID:       fieldID(f.name, fm.name),
			Label:    fm.label,
			Type:     fm.widget,
			Value:    value,
			Required: fm.required,
			Errors:   f.FieldErrors(fm.name),
		})
	}

	for _, ext := range f.factory.extensions {
		if hook, ok := ext.(ViewHook); ok {
			hook.BuildView(f, view)
		}
	}
	return view
}

func cloneValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func fullName(form, field string) string {
	if form == "" {
		return field
	}
	return form + "[" + field + "]"
}

func fieldID(form, field string) string {
	if form == "" {
		return field
	}
	return form + "_" + field
}

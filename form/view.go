package form

// FormView is the render model handed to templates.
type FormView struct {
	Name      string
	Action    string
	Method    string
	Submitted bool
	Valid     bool
	Errors    []string
	Fields    []*FieldView
}

// Field returns the named field view, or nil.
func (v *FormView) Field(name string) *FieldView {
	for _, f := range v.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Rest returns the fields no template has rendered yet.
func (v *FormView) Rest() []*FieldView {
	var rest []*FieldView
	for _, f := range v.Fields {
		if !f.rendered {
			rest = append(rest, f)
		}
	}
	return rest
}

type FieldView struct {
	Name     string
	FullName string
	ID       string
	Label    string
	Type     string
	Value    string
	Required bool
	Errors   []string

	rendered bool
}

func (f *FieldView) Checked() bool {
	return f.Value == "true" || f.Value == "on" || f.Value == "1"
}

func (f *FieldView) SetRendered()     { f.rendered = true }
func (f *FieldView) IsRendered() bool { return f.rendered }

package form

import (
	"fmt"
	"reflect"
	"strings"
)

type fieldMeta struct {
	name     string
	goName   string
	label    string
	widget   string
	required bool
	index    int
}

func describeFields(data any) ([]fieldMeta, error) {
	rv := reflect.ValueOf(data)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("form data must be a non-nil pointer to struct, got %T", data)
	}

	rt := rv.Elem().Type()
	fields := make([]fieldMeta, 0, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if !sf.IsExported() {
			continue
		}
		name := fieldName(sf)
		if name == "-" {
			continue
		}
		fields = append(fields, fieldMeta{
			name:     name,
			goName:   sf.Name,
			label:    fieldLabel(sf),
			widget:   fieldWidget(sf),
			required: hasRule(sf.Tag.Get("validate"), "required"),
			index:    i,
		})
	}
	return fields, nil
}

func fieldName(sf reflect.StructField) string {
	if tag := sf.Tag.Get("form"); tag != "" {
		return strings.Split(tag, ",")[0]
	}
	return strings.ToLower(sf.Name)
}

func fieldLabel(sf reflect.StructField) string {
	if label := sf.Tag.Get("label"); label != "" {
		return label
	}
	// "EmailAddress" -> "Email address"
	var b strings.Builder
	for i, r := range sf.Name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte(' ')
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

func fieldWidget(sf reflect.StructField) string {
	if widget := sf.Tag.Get("widget"); widget != "" {
		return widget
	}
	t := sf.Type
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.Bool:
		return "checkbox"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	if hasRule(sf.Tag.Get("validate"), "email") {
		return "email"
	}
	return "text"
}

func hasRule(tag, rule string) bool {
	for _, r := range strings.Split(tag, ",") {
		if r == rule || strings.HasPrefix(r, rule+"=") {
			return true
		}
	}
	return false
}

func formatValue(v reflect.Value) string {
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice {
		parts := make([]string, v.Len())
		for i := range parts {
			parts[i] = fmt.Sprint(v.Index(i).Interface())
		}
		return strings.Join(parts, ",")
	}
	if v.IsZero() && v.Kind() != reflect.Bool {
		return ""
	}
	return fmt.Sprint(v.Interface())
}

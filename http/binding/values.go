package binding

import (
	"net/url"
	"reflect"
	"strconv"
	"strings"
)

// ValueUnmarshaler lets custom types parse their own form or query value.
type ValueUnmarshaler interface {
	UnmarshalValue(string) error
}

var unmarshalerType = reflect.TypeOf((*ValueUnmarshaler)(nil)).Elem()

// ArrayStrategy selects how slice fields are read.
type ArrayStrategy int

const (
	// ArrayStrategyMultiple: ?tags=go&tags=rust
	ArrayStrategyMultiple ArrayStrategy = iota
	// ArrayStrategyComma: ?tags=go,rust
	ArrayStrategyComma
	// ArrayStrategyBoth splits a single comma-separated value, otherwise takes every value.
	ArrayStrategyBoth
)

// Parser decodes url.Values into structs. Field names come from tagName,
// then the json tag, then the lower-cased field name. Nested structs use
// dotted names.
type Parser struct {
	tagName       string
	defaultTag    string
	arrayStrategy ArrayStrategy
}

func NewParser(tagName string) *Parser {
	return &Parser{
		tagName:       tagName,
		defaultTag:    "default",
		arrayStrategy: ArrayStrategyBoth,
	}
}

func (p *Parser) SetArrayStrategy(strategy ArrayStrategy) {
	p.arrayStrategy = strategy
}

// Parse fills v, which must be a non-nil pointer to struct.
func (p *Parser) Parse(values url.Values, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return &BindError{Type: "bind_error", Message: "v must be a non-nil pointer"}
	}

	rv = rv.Elem()
	if rv.Kind() != reflect.Struct {
		return &BindError{Type: "bind_error", Message: "v must be a pointer to struct"}
	}

	return p.parseStruct(values, rv, "")
}

func (p *Parser) parseStruct(values url.Values, rv reflect.Value, prefix string) error {
	rt := rv.Type()

	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		fieldType := rt.Field(i)

		if !field.CanSet() {
			continue
		}

		name := p.fieldName(fieldType, prefix)
		if name == "-" {
			continue
		}

		if field.Kind() == reflect.Struct && !reflect.PointerTo(field.Type()).Implements(unmarshalerType) {
			if err := p.parseStruct(values, field, name+"."); err != nil {
				return err
			}
			continue
		}

		if field.Kind() == reflect.Ptr && field.Type().Elem().Kind() == reflect.Struct && !field.Type().Implements(unmarshalerType) {
			if hasPrefix(values, name+".") {
				if field.IsNil() {
					field.Set(reflect.New(field.Type().Elem()))
				}
				if err := p.parseStruct(values, field.Elem(), name+"."); err != nil {
					return err
				}
			}
			continue
		}

		if err := p.setFieldValue(field, values[name], fieldType); err != nil {
			return err
		}
	}

	return nil
}

func hasPrefix(values url.Values, prefix string) bool {
	for key := range values {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func (p *Parser) fieldName(fieldType reflect.StructField, prefix string) string {
	for _, tag := range []string{p.tagName, "json"} {
		if tagValue := fieldType.Tag.Get(tag); tagValue != "" {
			name := strings.Split(tagValue, ",")[0]
			if name == "-" {
				return "-"
			}
			if name != "" {
				return prefix + name
			}
		}
	}
	return prefix + strings.ToLower(fieldType.Name)
}

func (p *Parser) setFieldValue(field reflect.Value, raw []string, fieldType reflect.StructField) error {
	if len(raw) == 0 {
		def := fieldType.Tag.Get(p.defaultTag)
		if def == "" {
			return nil
		}
		raw = []string{def}
	}

	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return p.setFieldValue(field.Elem(), raw, fieldType)
	}

	if field.CanAddr() && field.Addr().Type().Implements(unmarshalerType) {
		if err := field.Addr().Interface().(ValueUnmarshaler).UnmarshalValue(raw[0]); err != nil {
			return &BindError{Type: "bind_error", Field: fieldType.Name, Message: "failed to unmarshal value: " + err.Error()}
		}
		return nil
	}

	if field.Kind() == reflect.Slice {
		return p.setSlice(field, raw, fieldType.Name)
	}
	return setScalar(field, raw[0], fieldType.Name)
}

func (p *Parser) setSlice(field reflect.Value, raw []string, fieldName string) error {
	var items []string
	switch p.arrayStrategy {
	case ArrayStrategyMultiple:
		items = raw
	case ArrayStrategyComma:
		items = strings.Split(raw[0], ",")
	default:
		if len(raw) == 1 && strings.Contains(raw[0], ",") {
			items = strings.Split(raw[0], ",")
		} else {
			items = raw
		}
	}

	slice := reflect.MakeSlice(field.Type(), len(items), len(items))
	for i, item := range items {
		if err := setScalar(slice.Index(i), strings.TrimSpace(item), fieldName); err != nil {
			return err
		}
	}
	field.Set(slice)
	return nil
}

func setScalar(field reflect.Value, value string, fieldName string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, field.Type().Bits())
		if err != nil {
			return &BindError{Type: "bind_error", Field: fieldName, Message: "invalid integer value: " + err.Error()}
		}
		field.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(value, 10, field.Type().Bits())
		if err != nil {
			return &BindError{Type: "bind_error", Field: fieldName, Message: "invalid unsigned integer value: " + err.Error()}
		}
		field.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, field.Type().Bits())
		if err != nil {
			return &BindError{Type: "bind_error", Field: fieldName, Message: "invalid float value: " + err.Error()}
		}
		field.SetFloat(f)

	case reflect.Bool:
		// unchecked checkboxes are absent; a present box may post "on"
		if value == "on" {
			value = "true"
		}
		b, err := strconv.ParseBool(value)
		if err != nil {
			return &BindError{Type: "bind_error", Field: fieldName, Message: "invalid boolean value: " + err.Error()}
		}
		field.SetBool(b)

	default:
		return &BindError{Type: "bind_error", Field: fieldName, Message: "unsupported field type: " + field.Kind().String()}
	}

	return nil
}

package form

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/leeforge/orchestra/translation"
)

// ValidatorExtension validates bound data through `validate` struct tags
// and translates the violations.
type ValidatorExtension struct {
	validate   *validator.Validate
	translator *translation.Translator
}

// NewValidatorExtension names fields after their label (or form name) in
// messages. Translations for v are expected to be registered already.
func NewValidatorExtension(v *validator.Validate, t *translation.Translator) *ValidatorExtension {
	v.RegisterTagNameFunc(func(sf reflect.StructField) string {
		if label := sf.Tag.Get("label"); label != "" {
			return label
		}
		name := strings.Split(sf.Tag.Get("form"), ",")[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ValidatorExtension{validate: v, translator: t}
}

func (e *ValidatorExtension) Name() string { return "validator" }

func (e *ValidatorExtension) Validate(f *Form) {
	err := e.validate.Struct(f.Data())
	if err == nil {
		return
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		f.addTranslatedError("", err.Error())
		return
	}
	for _, fe := range verrs {
		msg := fe.Error()
		if e.translator != nil {
			msg = e.translator.TranslateError(fe)
		}
		f.addTranslatedError(f.fieldByGoName(fe.StructField()), msg)
	}
}

func (e *ValidatorExtension) TranslateMessage(id string, params map[string]any) string {
	if e.translator == nil {
		return id
	}
	return e.translator.Trans(id, params, translation.DomainValidators)
}

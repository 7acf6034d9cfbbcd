package binding

import (
	"sync"

	validatorV10 "github.com/go-playground/validator/v10"

	"github.com/leeforge/orchestra/translation"
)

// API parameters are checked with English messages. Admin forms build their
// own validator in the configured language.
var apiValidation = sync.OnceValues(func() (*validatorV10.Validate, *translation.Translator) {
	v := validatorV10.New()
	tr, err := translation.New("en")
	if err != nil {
		return v, nil
	}
	if err := tr.RegisterValidatorTranslations(v); err != nil {
		return v, nil
	}
	return v, tr
})

func violationMessage(tr *translation.Translator, fe validatorV10.FieldError) string {
	if tr == nil {
		return fe.Error()
	}
	return tr.TranslateError(fe)
}

package translation

import (
	"fmt"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	es_translations "github.com/go-playground/validator/v10/translations/es"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	ja_translations "github.com/go-playground/validator/v10/translations/ja"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// CSRFInvalidMessage is the message id of a failed CSRF check.
const CSRFInvalidMessage = "The CSRF token is invalid. Please try to resubmit the form."

var validatorRegistrations = map[string]func(*validator.Validate, ut.Translator) error{
	"en": en_translations.RegisterDefaultTranslations,
	"es": es_translations.RegisterDefaultTranslations,
	"fr": fr_translations.RegisterDefaultTranslations,
	"ja": ja_translations.RegisterDefaultTranslations,
	"zh": zh_translations.RegisterDefaultTranslations,
}

// RegisterValidatorTranslations installs the validator's default messages
// for the translator's language on v.
func (t *Translator) RegisterValidatorTranslations(v *validator.Validate) error {
	register, ok := validatorRegistrations[t.locale]
	if !ok {
		return nil
	}
	if err := register(v, t.trans); err != nil {
		return fmt.Errorf("register %s validator translations: %w", t.locale, err)
	}
	return nil
}

// TranslateError renders a validator field error in the translator's language.
func (t *Translator) TranslateError(fe validator.FieldError) string {
	return fe.Translate(t.trans)
}

// Form messages that ship with the framework. Shared resources override them.
func builtinValidatorMessages(lang string) map[string]string {
	switch lang {
	case "fr":
		return map[string]string{
			CSRFInvalidMessage:                           "Le jeton CSRF est invalide. Veuillez renvoyer le formulaire.",
			"This form should not contain extra fields.": "Ce formulaire ne doit pas contenir des champs supplémentaires.",
			"This value is not valid.":                   "Cette valeur n'est pas valide.",
		}
	case "es":
		return map[string]string{
			CSRFInvalidMessage:                           "El token CSRF no es válido. Por favor, pruebe a enviar nuevamente el formulario.",
			"This form should not contain extra fields.": "Este formulario no debería contener campos adicionales.",
			"This value is not valid.":                   "Este valor no es válido.",
		}
	default:
		return map[string]string{
			CSRFInvalidMessage:                           CSRFInvalidMessage,
			"This form should not contain extra fields.": "This form should not contain extra fields.",
			"This value is not valid.":                   "This value is not valid.",
		}
	}
}

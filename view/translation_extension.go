package view

import (
	"html/template"

	"github.com/leeforge/orchestra/translation"
)

type TranslationExtension struct {
	translator *translation.Translator
}

func NewTranslationExtension(t *translation.Translator) *TranslationExtension {
	return &TranslationExtension{translator: t}
}

func (e *TranslationExtension) Name() string { return "translation" }

func (e *TranslationExtension) Globals() map[string]any {
	return map[string]any{"locale": e.translator.Locale()}
}

// Funcs: {{ trans "Hello %name%" "name" .Name }} and
// {{ trans_domain "validators" "id" }}.
func (e *TranslationExtension) Funcs() template.FuncMap {
	return template.FuncMap{
		"trans": func(id string, pairs ...any) (string, error) {
			return e.trans(translation.DomainMessages, id, pairs)
		},
		"trans_domain": func(domain, id string, pairs ...any) (string, error) {
			return e.trans(domain, id, pairs)
		},
	}
}

func (e *TranslationExtension) trans(domain, id string, pairs []any) (string, error) {
	values, err := pairsToValues(pairs)
	if err != nil {
		return "", err
	}
	params := make(map[string]any, len(values))
	for k := range values {
		params[k] = values.Get(k)
	}
	return e.translator.Trans(id, params, domain), nil
}

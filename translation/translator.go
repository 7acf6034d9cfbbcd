// Package translation provides the message catalog bound to the configured
// language. Messages are grouped in domains ("messages", "validators", ...)
// and use %name% placeholders.
package translation

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/es"
	"github.com/go-playground/locales/fr"
	"github.com/go-playground/locales/ja"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"gopkg.in/yaml.v3"

	"github.com/leeforge/orchestra/errors"
)

const (
	DomainMessages   = "messages"
	DomainValidators = "validators"
)

var localeFactories = map[string]func() locales.Translator{
	"en": en.New,
	"es": es.New,
	"fr": fr.New,
	"ja": ja.New,
	"zh": zh.New,
}

// SupportedLanguages lists the languages a Translator can be created for.
func SupportedLanguages() []string {
	langs := make([]string, 0, len(localeFactories))
	for lang := range localeFactories {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Translator resolves message ids to localized strings.
type Translator struct {
	locale string
	uni    *ut.UniversalTranslator
	trans  ut.Translator

	mu      sync.RWMutex
	domains map[string]map[string]string
}

// New creates a translator for language, e.g. "en" or "fr_FR".
// The region suffix is ignored.
func New(language string) (*Translator, error) {
	lang := normalizeLanguage(language)
	factory, ok := localeFactories[lang]
	if !ok {
		return nil, errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unsupported language %q", language)).
			WithDetail("supported", SupportedLanguages())
	}

	loc := factory()
	uni := ut.New(loc, loc)
	trans, _ := uni.GetTranslator(loc.Locale())

	t := &Translator{
		locale:  lang,
		uni:     uni,
		trans:   trans,
		domains: make(map[string]map[string]string),
	}
	t.AddMessages(DomainValidators, builtinValidatorMessages(lang))
	return t, nil
}

func normalizeLanguage(language string) string {
	lang := strings.ToLower(strings.TrimSpace(language))
	if i := strings.IndexAny(lang, "_-"); i > 0 {
		lang = lang[:i]
	}
	return lang
}

func (t *Translator) Locale() string {
	return t.locale
}

// UT returns the universal translator used for validator messages.
func (t *Translator) UT() ut.Translator {
	return t.trans
}

// AddMessages merges messages into domain. Later additions win.
func (t *Translator) AddMessages(domain string, messages map[string]string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	catalog, ok := t.domains[domain]
	if !ok {
		catalog = make(map[string]string, len(messages))
		t.domains[domain] = catalog
	}
	for id, msg := range messages {
		catalog[id] = msg
	}
}

// AddResource loads a flat YAML map of id: message into domain.
func (t *Translator) AddResource(domain, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "read translation resource").WithDetail("path", path)
	}

	messages := map[string]string{}
	if err := yaml.Unmarshal(data, &messages); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "parse translation resource").WithDetail("path", path)
	}
	t.AddMessages(domain, messages)
	return nil
}

// Trans translates id within domain. Unknown ids are returned as-is, with
// placeholders still substituted.
func (t *Translator) Trans(id string, params map[string]any, domain string) string {
	if domain == "" {
		domain = DomainMessages
	}

	t.mu.RLock()
	msg, ok := t.domains[domain][id]
	t.mu.RUnlock()
	if !ok {
		msg = id
	}
	return replacePlaceholders(msg, params)
}

func replacePlaceholders(msg string, params map[string]any) string {
	if len(params) == 0 {
		return msg
	}
	pairs := make([]string, 0, len(params)*2)
	for k, v := range params {
		key := k
		if !strings.HasPrefix(key, "%") {
			key = "%" + key + "%"
		}
		pairs = append(pairs, key, fmt.Sprint(v))
	}
	return strings.NewReplacer(pairs...).Replace(msg)
}

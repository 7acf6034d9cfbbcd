package translation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/errors"
)

func TestNew(t *testing.T) {
	tests := []struct {
		language string
		locale   string
		wantErr  bool
	}{
		{"en", "en", false},
		{"fr_FR", "fr", false},
		{"es-ES", "es", false},
		{" ZH ", "zh", false},
		{"ja", "ja", false},
		{"xx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.language, func(t *testing.T) {
			tr, err := New(tt.language)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.locale, tr.Locale())
			assert.NotNil(t, tr.UT())
		})
	}
}

func TestTransPlaceholdersAndFallback(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	tr.AddMessages(DomainMessages, map[string]string{"greeting": "Hello %name%!"})

	assert.Equal(t, "Hello Ada!", tr.Trans("greeting", map[string]any{"name": "Ada"}, ""))
	assert.Equal(t, "Hello Ada!", tr.Trans("greeting", map[string]any{"%name%": "Ada"}, DomainMessages))
	assert.Equal(t, "unknown %x%", tr.Trans("unknown %x%", nil, DomainMessages))
	assert.Equal(t, CSRFInvalidMessage, tr.Trans(CSRFInvalidMessage, nil, DomainValidators))
}

func TestBuiltinMessagesAreLocalized(t *testing.T) {
	tr, err := New("fr")
	require.NoError(t, err)
	assert.Contains(t, tr.Trans(CSRFInvalidMessage, nil, DomainValidators), "jeton CSRF")
}

func TestAddResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "form.en.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\"This value is not valid.\": \"Nope.\"\n"), 0o644))

	tr, err := New("en")
	require.NoError(t, err)
	require.NoError(t, tr.AddResource(DomainValidators, path))
	assert.Equal(t, "Nope.", tr.Trans("This value is not valid.", nil, DomainValidators))

	err = tr.AddResource(DomainValidators, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("- a\n- b\n"), 0o644))
	require.Error(t, tr.AddResource(DomainValidators, bad))
}

func TestRegisterValidatorTranslations(t *testing.T) {
	tr, err := New("en")
	require.NoError(t, err)

	v := validator.New()
	require.NoError(t, tr.RegisterValidatorTranslations(v))

	type signup struct {
		Name string `validate:"required"`
	}
	err = v.Struct(signup{})
	require.Error(t, err)

	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "Name is a required field", tr.TranslateError(verrs[0]))
}

func TestSupportedLanguages(t *testing.T) {
	assert.Equal(t, []string{"en", "es", "fr", "ja", "zh"}, SupportedLanguages())
}

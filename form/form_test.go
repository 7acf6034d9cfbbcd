package form

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/request"
	"github.com/leeforge/orchestra/translation"
)

type entry struct {
	Name      string `form:"name" label:"Name" validate:"required,max=20"`
	Email     string `form:"email" validate:"omitempty,email"`
	Message   string `form:"message" widget:"textarea" validate:"required"`
	Age       int    `form:"age"`
	Subscribe bool   `form:"subscribe"`
	internal  string
}

func newFactory(t *testing.T, sessionID string) (*Factory, *CSRFProvider) {
	t.Helper()
	tr, err := translation.New("en")
	require.NoError(t, err)

	v := validator.New()
	require.NoError(t, tr.RegisterValidatorTranslations(v))

	provider := NewCSRFProvider("s3cr3t", sessionID)
	factory := NewFactoryBuilder().
		AddExtension(NewCSRFExtension(provider)).
		AddExtension(NewValidatorExtension(v, tr)).
		GetFormFactory()
	return factory, provider
}

func postRequest(t *testing.T, values url.Values) *request.Request {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/admin?page=x", strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return request.NewNormalizer(request.DefaultOptions()).Normalize(r)
}

func TestCSRFProvider(t *testing.T) {
	p := NewCSRFProvider("secret", "session-1")
	token := p.GenerateToken("guestbook")

	assert.Len(t, token, 64)
	assert.Equal(t, token, p.GenerateToken("guestbook"))
	assert.True(t, p.IsTokenValid("guestbook", token))
	assert.False(t, p.IsTokenValid("other", token))
	assert.False(t, p.IsTokenValid("guestbook", ""))
	assert.False(t, NewCSRFProvider("secret", "session-2").IsTokenValid("guestbook", token))
}

func TestHandleRequestValidSubmission(t *testing.T) {
	factory, provider := newFactory(t, "sid")
	data := &entry{}
	f := factory.Create("entry", data, WithIntention("guestbook"))

	req := postRequest(t, url.Values{
		"entry[name]":      {"Ada"},
		"entry[message]":   {"Hello"},
		"entry[age]":       {"36"},
		"entry[subscribe]": {"on"},
		"entry[_token]":    {provider.GenerateToken("guestbook")},
	})
	require.NoError(t, f.HandleRequest(req))

	assert.True(t, f.IsSubmitted())
	assert.True(t, f.IsValid(), "%v", f.Errors())
	assert.Equal(t, entry{Name: "Ada", Message: "Hello", Age: 36, Subscribe: true}, *data)
}

func TestHandleRequestNotSubmitted(t *testing.T) {
	factory, _ := newFactory(t, "sid")

	t.Run("other method", func(t *testing.T) {
		f := factory.Create("entry", &entry{})
		r := httptest.NewRequest(http.MethodGet, "/admin?entry[name]=Ada", nil)
		require.NoError(t, f.HandleRequest(request.NewNormalizer(request.DefaultOptions()).Normalize(r)))
		assert.False(t, f.IsSubmitted())
		assert.False(t, f.IsValid())
	})

	t.Run("other form", func(t *testing.T) {
		f := factory.Create("entry", &entry{})
		require.NoError(t, f.HandleRequest(postRequest(t, url.Values{"comment[name]": {"Ada"}})))
		assert.False(t, f.IsSubmitted())
	})
}

func TestHandleRequestErrors(t *testing.T) {
	factory, provider := newFactory(t, "sid")
	data := &entry{}
	f := factory.Create("entry", data)

	req := postRequest(t, url.Values{
		"entry[email]":  {"not-an-email"},
		"entry[extra]":  {"x"},
		"entry[_token]": {provider.GenerateToken("unknown")},
	})
	require.NoError(t, f.HandleRequest(req))

	assert.True(t, f.IsSubmitted())
	assert.False(t, f.IsValid())
	assert.Equal(t, []string{"This form should not contain extra fields."}, f.FieldErrors(""))
	assert.Equal(t, []string{"Name is a required field"}, f.FieldErrors("name"))
	assert.Equal(t, []string{"email must be a valid email address"}, f.FieldErrors("email"))
	assert.Len(t, f.FieldErrors("message"), 1)
}

func TestHandleRequestInvalidCSRF(t *testing.T) {
	factory, _ := newFactory(t, "sid")
	f := factory.Create("entry", &entry{})

	require.NoError(t, f.HandleRequest(postRequest(t, url.Values{
		"entry[name]":    {"Ada"},
		"entry[message]": {"Hi"},
		"entry[_token]":  {"forged"},
	})))

	assert.Equal(t, []string{translation.CSRFInvalidMessage}, f.FieldErrors(""))
}

func TestHandleRequestWithoutCSRF(t *testing.T) {
	factory, _ := newFactory(t, "sid")
	f := factory.Create("entry", &entry{}, WithoutCSRF())

	require.NoError(t, f.HandleRequest(postRequest(t, url.Values{
		"entry[name]":    {"Ada"},
		"entry[message]": {"Hi"},
	})))
	assert.True(t, f.IsValid())
	assert.Nil(t, f.CreateView().Field(CSRFFieldName))
}

func TestHandleRequestBindError(t *testing.T) {
	factory, provider := newFactory(t, "sid")
	f := factory.Create("entry", &entry{})

	require.NoError(t, f.HandleRequest(postRequest(t, url.Values{
		"entry[name]":    {"Ada"},
		"entry[message]": {"Hi"},
		"entry[age]":     {"old"},
		"entry[_token]":  {provider.GenerateToken("unknown")},
	})))
	assert.Equal(t, []string{"This value is not valid."}, f.FieldErrors("age"))
}

func TestHandleRequestUncheckedCheckbox(t *testing.T) {
	factory, provider := newFactory(t, "sid")
	data := &entry{Subscribe: true}
	f := factory.Create("entry", data)

	require.NoError(t, f.HandleRequest(postRequest(t, url.Values{
		"entry[name]":    {"Ada"},
		"entry[message]": {"Hi"},
		"entry[_token]":  {provider.GenerateToken("unknown")},
	})))
	assert.True(t, f.IsValid(), "%v", f.Errors())
	assert.False(t, data.Subscribe)
}

func TestCreateView(t *testing.T) {
	factory, provider := newFactory(t, "sid")
	f := factory.Create("entry", &entry{Name: "Ada", Age: 0}, WithAction("/admin?page=x"), WithIntention("guestbook"))

	view := f.CreateView()

	assert.Equal(t, "POST", view.Method)
	assert.Equal(t, "/admin?page=x", view.Action)
	require.Len(t, view.Fields, 6)

	name := view.Field("name")
	require.NotNil(t, name)
	assert.Equal(t, "entry[name]", name.FullName)
	assert.Equal(t, "entry_name", name.ID)
	assert.Equal(t, "Ada", name.Value)
	assert.True(t, name.Required)
	assert.Equal(t, "text", name.Type)

	assert.Equal(t, "textarea", view.Field("message").Type)
	assert.Equal(t, "number", view.Field("age").Type)
	assert.Equal(t, "", view.Field("age").Value)
	assert.Equal(t, "checkbox", view.Field("subscribe").Type)
	assert.Equal(t, "email", view.Field("email").Type)

	token := view.Field(CSRFFieldName)
	require.NotNil(t, token)
	assert.Equal(t, "hidden", token.Type)
	assert.Equal(t, provider.GenerateToken("guestbook"), token.Value)

	name.SetRendered()
	assert.Len(t, view.Rest(), 5)
}

func TestCreateViewShowsSubmittedValues(t *testing.T) {
	factory, _ := newFactory(t, "sid")
	f := factory.Create("entry", &entry{})

	require.NoError(t, f.Submit(url.Values{"name": {"<b>Ada</b>"}, "age": {"x"}}))
	view := f.CreateView()

	assert.True(t, view.Submitted)
	assert.False(t, view.Valid)
	assert.Equal(t, "x", view.Field("age").Value)
	assert.NotEmpty(t, view.Errors)
}

func TestCreateRejectsNonStruct(t *testing.T) {
	factory, _ := newFactory(t, "sid")
	f := factory.Create("entry", entry{})

	err := f.HandleRequest(postRequest(t, url.Values{"entry[name]": {"x"}}))
	require.Error(t, err)
	assert.Nil(t, f.CreateView().Field("name"))
}

func TestUnnamedForm(t *testing.T) {
	f := NewFactoryBuilder().GetFormFactory().Create("", &entry{})
	require.NoError(t, f.HandleRequest(postRequest(t, url.Values{"name": {"Ada"}})))

	assert.True(t, f.IsSubmitted())
	assert.True(t, f.IsValid())
	assert.Equal(t, "name", f.CreateView().Field("name").FullName)
}

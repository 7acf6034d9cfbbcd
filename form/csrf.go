package form

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"

	"github.com/leeforge/orchestra/translation"
)

// CSRFFieldName is the hidden field carrying the token.
const CSRFFieldName = "_token"

// CSRFProvider issues tokens bound to a secret and the session.
type CSRFProvider struct {
	secret    []byte
	sessionID string
}

func NewCSRFProvider(secret, sessionID string) *CSRFProvider {
	return &CSRFProvider{secret: []byte(secret), sessionID: sessionID}
}

// GenerateToken returns hex(HMAC-SHA256(secret, intention+sessionID)).
func (p *CSRFProvider) GenerateToken(intention string) string {
	h := hmac.New(sha256.New, p.secret)
	h.Write([]byte(intention + p.sessionID))
	return hex.EncodeToString(h.Sum(nil))
}

func (p *CSRFProvider) IsTokenValid(intention, token string) bool {
	if token == "" {
		return false
	}
	return hmac.Equal([]byte(p.GenerateToken(intention)), []byte(token))
}

type CSRFExtension struct {
	provider *CSRFProvider
}

func NewCSRFExtension(provider *CSRFProvider) *CSRFExtension {
	return &CSRFExtension{provider: provider}
}

func (e *CSRFExtension) Name() string { return "csrf" }

func (e *CSRFExtension) PreSubmit(f *Form, values url.Values) {
	if !f.CSRFProtected() {
		return
	}
	token := values.Get(CSRFFieldName)
	values.Del(CSRFFieldName)
	if !e.provider.IsTokenValid(f.Intention(), token) {
		f.AddError("", translation.CSRFInvalidMessage, nil)
	}
}

func (e *CSRFExtension) BuildView(f *Form, view *FormView) {
	if !f.CSRFProtected() {
		return
	}
	view.Fields = append(view.Fields, &FieldView{
		Name:     CSRFFieldName,
		FullName: fullName(f.Name(), CSRFFieldName),
		ID:       fieldID(f.Name(), CSRFFieldName),
		Type:     "hidden",
		Value:    e.provider.GenerateToken(f.Intention()),
	})
}

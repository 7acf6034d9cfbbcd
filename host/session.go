package host

import (
	"crypto/sha256"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

const sessionIDKey = "sid"

// SessionManager keeps an opaque id in a signed cookie. CSRF tokens of
// admin forms are bound to it.
type SessionManager struct {
	store *sessions.CookieStore
	name  string
}

// NewSessionManager signs cookies with a key derived from secret.
func NewSessionManager(name, secret string, secure bool) *SessionManager {
	key := sha256.Sum256([]byte("orchestra-session:" + secret))
	store := sessions.NewCookieStore(key[:])
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionManager{store: store, name: name}
}

// ID returns the session id of r, issuing a new session cookie on w when
// the request has none or it does not verify.
func (m *SessionManager) ID(w http.ResponseWriter, r *http.Request) (string, error) {
	// a cookie that fails verification still yields a fresh session
	session, _ := m.store.Get(r, m.name)
	if id, ok := session.Values[sessionIDKey].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.Must(uuid.NewV7()).String()
	session.Values[sessionIDKey] = id
	if err := session.Save(r, w); err != nil {
		return "", err
	}
	return id, nil
}

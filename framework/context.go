package framework

import (
	"net/http"
	"sync"

	"github.com/leeforge/orchestra/request"
)

// Context holds everything that exists once per admin request: the shared
// request, the namespace of the plugin that matched the page and its front
// controller. The host creates one per request and hands it to every
// SetupPlugin call.
type Context struct {
	raw        *http.Request
	normalizer *request.Normalizer
	sessionID  string

	requestOnce sync.Once
	request     *request.Request

	mu         sync.RWMutex
	claimed    bool
	namespace  string
	identifier string
	front      *FrontController
}

// NewContext wraps r. A nil normalizer uses request.DefaultOptions.
func NewContext(r *http.Request, normalizer *request.Normalizer) *Context {
	if normalizer == nil {
		normalizer = request.NewNormalizer(request.DefaultOptions())
	}
	return &Context{raw: r, normalizer: normalizer}
}

// WithSessionID sets the id that CSRF tokens of this request are bound to.
func (c *Context) WithSessionID(id string) *Context {
	c.sessionID = id
	return c
}

func (c *Context) SessionID() string { return c.sessionID }

// HTTPRequest returns the request the context was created for.
func (c *Context) HTTPRequest() *http.Request { return c.raw }

// EnsureRequest builds the shared request on first use. Every later call
// returns the same instance.
func (c *Context) EnsureRequest() *request.Request {
	c.requestOnce.Do(func() {
		c.request = c.normalizer.Normalize(c.raw)
	})
	return c.request
}

// SetActiveNamespace records the plugin that matched the page. It only
// succeeds once; later calls return false and leave the first value.
func (c *Context) SetActiveNamespace(namespace string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.claimed {
		return false
	}
	c.claimed = true
	c.namespace = namespace
	c.identifier = Identifier(namespace)
	return true
}

// ActiveNamespace is empty until a plugin matched.
func (c *Context) ActiveNamespace() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.namespace
}

func (c *Context) ActiveIdentifier() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.identifier
}

func (c *Context) setFrontController(fc *FrontController) {
	c.mu.Lock()
	c.front = fc
	c.mu.Unlock()
}

// FrontController is nil when no plugin matched.
func (c *Context) FrontController() *FrontController {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.front
}

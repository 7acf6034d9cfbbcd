package controller

import (
	"bytes"
	"context"
	"net/http"
	"net/url"

	"github.com/leeforge/orchestra/form"
	"github.com/leeforge/orchestra/json"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/orm"
	"github.com/leeforge/orchestra/request"
	"github.com/leeforge/orchestra/translation"
	"github.com/leeforge/orchestra/view"
)

// ActionFunc handles one action of a controller.
type ActionFunc func(c *Context) (*Response, error)

// Controller maps action names to handlers.
type Controller interface {
	Actions() map[string]ActionFunc
}

// Factory creates a controller for one dispatch.
type Factory func() Controller

// Context is what an action sees of the active plugin's environment.
type Context struct {
	context.Context

	Request    *request.Request
	Plugin     string // identifier of the active plugin
	Namespace  string
	Controller string
	Action     string

	Entities   *orm.EntityManager
	Templates  *view.Engine
	Forms      *form.Factory
	Translator *translation.Translator
	Logger     logging.Logger
	Host       *view.HostExtension
}

// Render renders a template into an HTML response.
func (c *Context) Render(name string, data map[string]any) (*Response, error) {
	var buf bytes.Buffer
	if err := c.Templates.Render(&buf, name, data); err != nil {
		return nil, err
	}
	return HTML(buf.String()), nil
}

// Redirect sends the browser to another action of the active plugin.
func (c *Context) Redirect(controller, action string, params url.Values) *Response {
	return RedirectTo(c.URL(controller, action, params))
}

// JSON returns v encoded as a JSON response.
func (c *Context) JSON(status int, v any) (*Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	r := NewResponse(status, body)
	r.Header.Set("Content-Type", "application/json; charset=utf-8")
	return r, nil
}

// Param returns a request parameter, query first.
func (c *Context) Param(key string) string {
	return c.Request.Get(key)
}

func (c *Context) URL(controller, action string, params url.Values) string {
	if c.Host == nil {
		return "?" + url.Values{"page": {c.Plugin}, "controller": {controller}, "action": {action}}.Encode()
	}
	return c.Host.URL(controller, action, params)
}

// NotFound is a convenience for actions that cannot find what was asked.
func (c *Context) NotFound(body string) *Response {
	r := HTML(body)
	r.Status = http.StatusNotFound
	return r
}

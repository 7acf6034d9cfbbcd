// Package controller defines what plugin controllers implement and what
// they produce.
package controller

import (
	"net/http"
	"strings"
)

// Response is the result of a controller action. The host writes HTML
// responses inside its admin layout and everything else verbatim.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func NewResponse(status int, body []byte) *Response {
	return &Response{Status: status, Header: make(http.Header), Body: body}
}

// HTML returns a 200 text/html response.
func HTML(body string) *Response {
	r := NewResponse(http.StatusOK, []byte(body))
	r.Header.Set("Content-Type", "text/html; charset=utf-8")
	return r
}

// RedirectTo returns a 302 to location.
func RedirectTo(location string) *Response {
	r := NewResponse(http.StatusFound, nil)
	r.Header.Set("Location", location)
	return r
}

func (r *Response) ContentType() string {
	if r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

func (r *Response) IsRedirect() bool {
	return r.Status >= 300 && r.Status < 400 && r.Header.Get("Location") != ""
}

// IsHTML reports whether the body is an HTML fragment. A response without
// a content type is treated as HTML.
func (r *Response) IsHTML() bool {
	ct := r.ContentType()
	return ct == "" || strings.HasPrefix(ct, "text/html")
}

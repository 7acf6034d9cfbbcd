// Package request builds the single normalized view of an admin request
// that every plugin bootstrap in the same request shares.
package request

import (
	"mime/multipart"
	"net/http"
	"net/url"
)

// Request is the normalized HTTP call. Server holds CGI-style variables
// (REQUEST_METHOD, CONTENT_TYPE, QUERY_STRING, HTTP_*, ...).
type Request struct {
	Method  string
	Query   url.Values
	Body    url.Values
	Cookies map[string]string
	Files   map[string][]*multipart.FileHeader
	Server  map[string]string
	Header  http.Header
	Content []byte
}

// Get returns the first value for key, looking at the query then the body.
func (r *Request) Get(key string) string {
	if v, ok := r.Query[key]; ok && len(v) > 0 {
		return v[0]
	}
	return r.Body.Get(key)
}

func (r *Request) Cookie(name string) string {
	return r.Cookies[name]
}

func (r *Request) ContentType() string {
	return r.Server["CONTENT_TYPE"]
}

func (r *Request) IsMethod(method string) bool {
	return r.Method == method
}

// Page is the routing key compared against plugin identifiers.
func (r *Request) Page() string {
	return r.Query.Get("page")
}

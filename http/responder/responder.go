// Package responder writes controller responses and JSON envelopes.
package responder

import (
	"net/http"

	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/json"
	"github.com/leeforge/orchestra/logging"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		fallback := []byte("{\"error\":{\"code\":5000,\"message\":\"encode failed\"}}")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(fallback)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// meta fills the trace id from the request unless an option sets it.
func meta(r *http.Request, opts []Option) Meta {
	m := NewMeta(opts...)
	if m.TraceId == "" && r != nil {
		m.TraceId = logging.GetTraceID(r.Context())
	}
	return *m
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	writeJSON(w, status, &Response{Data: data, Meta: meta(r, opts)})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	writeJSON(w, status, &Response{Error: &err, Meta: meta(r, opts)})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// NotFound responds with 404 Not Found
func NotFound(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	err := ErrNotFound
	if message != "" {
		err.Message = message
	}
	WriteError(w, r, http.StatusNotFound, err, opts...)
}

// Forbidden responds with 403 Forbidden
func Forbidden(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	err := ErrForbidden
	if message != "" {
		err.Message = message
	}
	WriteError(w, r, http.StatusForbidden, err, opts...)
}

// Fail writes err as an error envelope with the status its type maps to.
func Fail(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	status, payload := FromError(err)
	WriteError(w, r, status, payload, opts...)
}

// WriteResponse copies a controller response to w verbatim.
func WriteResponse(w http.ResponseWriter, resp *controller.Response) {
	for key, values := range resp.Header {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	if len(resp.Body) > 0 {
		_, _ = w.Write(resp.Body)
	}
}

package framework

import (
	"fmt"
	"html"
	"net/http"

	"go.uber.org/zap"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/metrics"
)

// Terminator ends the request with status and an error fragment. The host
// installs one that wraps the fragment in its admin page.
type Terminator func(w http.ResponseWriter, status int, fragment string)

// DefaultTerminator writes the fragment as a bare page.
func DefaultTerminator(w http.ResponseWriter, status int, fragment string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(fragment))
}

// DisplayError renders the diagnostic fragment for err and hands it to the
// terminator with the status err maps to, which it returns. The caller must
// not write to w afterwards.
func (f *Framework) DisplayError(w http.ResponseWriter, err error) int {
	stack := errors.StackOf(err)
	if len(stack) == 0 {
		stack = errors.CaptureStack(1)
	}

	var location errors.Frame
	if len(stack) > 0 {
		location = stack[0]
	}

	status := errors.HTTPStatus(err)
	f.logger.Error("request failed",
		zap.Error(err),
		zap.Int("status", status),
		zap.String("location", fmt.Sprintf("%s:%d", location.File, location.Line)))
	metrics.ErrorsDisplayedTotal.Inc()

	f.terminator(w, status, ErrorFragment(err, location, stack))
	return status
}

// ErrorFragment is the markup DisplayError hands to the terminator.
func ErrorFragment(err error, location errors.Frame, stack []errors.Frame) string {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return fmt.Sprintf(`<div style="overflow: scroll;"><p><strong>Error!</strong></p><p>%s:%d</p><p>%s</p><pre>%s</pre></div>`,
		html.EscapeString(location.File),
		location.Line,
		html.EscapeString(message),
		html.EscapeString(errors.FormatStack(stack)),
	)
}

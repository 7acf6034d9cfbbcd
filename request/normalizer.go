package request

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultMaxBodyBytes = 32 << 20
	maxMultipartMemory  = 8 << 20

	formURLEncoded = "application/x-www-form-urlencoded"
)

type Options struct {
	// StripSlashes removes backslash escaping from query, body, cookie
	// and server values. Only enable it behind a front end that escapes
	// input; otherwise real backslashes are lost.
	StripSlashes bool
	MaxBodyBytes int64
}

func DefaultOptions() Options {
	return Options{MaxBodyBytes: DefaultMaxBodyBytes}
}

// Normalizer turns an *http.Request into a Request. Malformed input yields
// empty or partial collections, never an error.
type Normalizer struct {
	opts Options
}

func NewNormalizer(opts Options) *Normalizer {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return &Normalizer{opts: opts}
}

func (n *Normalizer) Normalize(r *http.Request) *Request {
	content := readBody(r, n.opts.MaxBodyBytes)

	req := &Request{
		Method:  strings.ToUpper(r.Method),
		Query:   parseQuery(r.URL.RawQuery),
		Body:    url.Values{},
		Cookies: make(map[string]string),
		Files:   make(map[string][]*multipart.FileHeader),
		Server:  serverVars(r),
		Header:  r.Header.Clone(),
		Content: content,
	}
	for _, c := range r.Cookies() {
		req.Cookies[c.Name] = c.Value
	}

	// only POST bodies are decoded by the HTTP layer
	if req.Method == http.MethodPost {
		req.Body, req.Files = parsePostBody(r.Header.Get("Content-Type"), content)
	}

	if n.opts.StripSlashes {
		req.Query = stripValues(req.Query)
		req.Body = stripValues(req.Body)
		req.Cookies = stripMap(req.Cookies)
		req.Server = stripMap(req.Server)
		req.Files = stripFiles(req.Files)
	}

	if needsFormReparse(req) {
		req.Body = parseQuery(string(content))
	}

	return req
}

// needsFormReparse reports whether the raw content must be decoded as form
// data because the method is PUT, DELETE or PATCH.
func needsFormReparse(req *Request) bool {
	if !strings.HasPrefix(req.ContentType(), formURLEncoded) {
		return false
	}
	switch req.Method {
	case http.MethodPut, http.MethodDelete, http.MethodPatch:
		return true
	}
	return false
}

// readBody reads at most limit bytes and puts them back so later readers
// see the same body.
func readBody(r *http.Request, limit int64) []byte {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	content, _ := io.ReadAll(io.LimitReader(r.Body, limit))
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(content))
	return content
}

// parseQuery keeps every pair that decoded; malformed pairs are dropped.
func parseQuery(raw string) url.Values {
	values, _ := url.ParseQuery(raw)
	if values == nil {
		values = url.Values{}
	}
	return values
}

func parsePostBody(contentType string, content []byte) (url.Values, map[string][]*multipart.FileHeader) {
	files := make(map[string][]*multipart.FileHeader)

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return url.Values{}, files
	}

	switch mediaType {
	case formURLEncoded:
		return parseQuery(string(content)), files
	case "multipart/form-data":
		boundary := params["boundary"]
		if boundary == "" {
			return url.Values{}, files
		}
		form, err := multipart.NewReader(bytes.NewReader(content), boundary).ReadForm(maxMultipartMemory)
		if err != nil {
			return url.Values{}, files
		}
		for name, headers := range form.File {
			files[name] = headers
		}
		return url.Values(form.Value), files
	}
	return url.Values{}, files
}

func serverVars(r *http.Request) map[string]string {
	server := map[string]string{
		"REQUEST_METHOD":  strings.ToUpper(r.Method),
		"REQUEST_URI":     r.URL.RequestURI(),
		"QUERY_STRING":    r.URL.RawQuery,
		"SCRIPT_NAME":     r.URL.Path,
		"SERVER_PROTOCOL": r.Proto,
	}

	if ct := r.Header.Get("Content-Type"); ct != "" {
		server["CONTENT_TYPE"] = ct
	}
	if r.ContentLength > 0 {
		server["CONTENT_LENGTH"] = strconv.FormatInt(r.ContentLength, 10)
	}

	if host, port, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		server["REMOTE_ADDR"] = host
		server["REMOTE_PORT"] = port
	} else if r.RemoteAddr != "" {
		server["REMOTE_ADDR"] = r.RemoteAddr
	}

	if host, port, err := net.SplitHostPort(r.Host); err == nil {
		server["SERVER_NAME"] = host
		server["SERVER_PORT"] = port
	} else {
		server["SERVER_NAME"] = r.Host
	}
	if r.TLS != nil {
		server["HTTPS"] = "on"
	}

	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		key := "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		server[key] = strings.Join(values, ", ")
	}
	return server
}

package request

import (
	"mime/multipart"
	"net/url"
	"strings"
)

// StripSlashes undoes backslash escaping applied to every input value:
// \' \" \\ and \0 are unescaped and any other backslash is dropped.
func StripSlashes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		if i+1 == len(s) {
			break
		}
		i++
		switch s[i] {
		case '0':
			b.WriteByte(0)
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}

func stripValues(values url.Values) url.Values {
	out := make(url.Values, len(values))
	for key, vals := range values {
		stripped := make([]string, len(vals))
		for i, v := range vals {
			stripped[i] = StripSlashes(v)
		}
		out[StripSlashes(key)] = stripped
	}
	return out
}

func stripMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[StripSlashes(k)] = StripSlashes(v)
	}
	return out
}

func stripFiles(files map[string][]*multipart.FileHeader) map[string][]*multipart.FileHeader {
	for _, headers := range files {
		for _, fh := range headers {
			fh.Filename = StripSlashes(fh.Filename)
		}
	}
	return files
}

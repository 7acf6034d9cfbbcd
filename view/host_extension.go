package view

import (
	"fmt"
	"html/template"
	"net/url"

	"github.com/leeforge/orchestra/request"
)

// HostExtension gives templates access to the current request and builds
// admin URLs that stay on the active plugin's page.
type HostExtension struct {
	req        *request.Request
	namespace  string
	identifier string
	adminPath  string
}

func NewHostExtension(req *request.Request, namespace, identifier, adminPath string) *HostExtension {
	return &HostExtension{
		req:        req,
		namespace:  namespace,
		identifier: identifier,
		adminPath:  adminPath,
	}
}

func (e *HostExtension) Name() string { return "host" }

func (e *HostExtension) Globals() map[string]any {
	return map[string]any{
		"app": map[string]any{
			"request":    e.req,
			"namespace":  e.namespace,
			"page":       e.identifier,
			"admin_path": e.adminPath,
		},
	}
}

func (e *HostExtension) Funcs() template.FuncMap {
	return template.FuncMap{
		"path": func(controller, action string, pairs ...any) (string, error) {
			params, err := pairsToValues(pairs)
			if err != nil {
				return "", err
			}
			return e.URL(controller, action, params), nil
		},
		"is_current": func(controller string) bool {
			current := e.req.Query.Get("controller")
			if current == "" {
				current = "index"
			}
			return current == controller
		},
	}
}

// URL addresses controller/action of the active plugin. Empty controller
// and action are left out, which dispatches to index.
func (e *HostExtension) URL(controller, action string, params url.Values) string {
	q := url.Values{}
	for k, v := range params {
		q[k] = append([]string(nil), v...)
	}
	q.Set("page", e.identifier)
	if controller != "" {
		q.Set("controller", controller)
	}
	if action != "" {
		q.Set("action", action)
	}
	return e.adminPath + "?" + q.Encode()
}

func pairsToValues(pairs []any) (url.Values, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("odd number of url parameters: %d", len(pairs))
	}
	values := url.Values{}
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, fmt.Errorf("url parameter name must be a string, got %T", pairs[i])
		}
		values.Add(key, fmt.Sprint(pairs[i+1]))
	}
	return values, nil
}

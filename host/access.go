package host

import (
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/errors"
)

// accessModel grants a capability when a policy for the user, or one of its
// roles, matches it. Objects and actions accept keyMatch wildcards.
const accessModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && keyMatch(r.obj, p.obj) && (r.act == p.act || p.act == "*")
`

// AccessControl decides whether the current user holds the capability of
// an admin page.
type AccessControl struct {
	enforcer    *casbin.Enforcer
	userHeader  string
	defaultUser string
}

// NewAccessControl allows everything when access control is disabled.
// Without a policy file nothing is allowed until policies are added.
func NewAccessControl(cfg config.AccessConfig) (*AccessControl, error) {
	a := &AccessControl{userHeader: cfg.UserHeader, defaultUser: cfg.DefaultUser}
	if !cfg.Enabled {
		return a, nil
	}

	m, err := model.NewModelFromString(accessModel)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "load access model")
	}

	var enforcer *casbin.Enforcer
	if cfg.PolicyFile != "" {
		enforcer, err = casbin.NewEnforcer(m, fileadapter.NewAdapter(cfg.PolicyFile))
	} else {
		enforcer, err = casbin.NewEnforcer(m)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "create access enforcer").WithDetail("policy", cfg.PolicyFile)
	}
	a.enforcer = enforcer
	return a, nil
}

func (a *AccessControl) Enabled() bool { return a.enforcer != nil }

// Enforcer is nil when access control is disabled.
func (a *AccessControl) Enforcer() *casbin.Enforcer { return a.enforcer }

// User returns the user named by the configured header, or the default user.
func (a *AccessControl) User(r *http.Request) string {
	if a.userHeader != "" {
		if u := r.Header.Get(a.userHeader); u != "" {
			return u
		}
	}
	return a.defaultUser
}

// Can reports whether user may use capability with the given HTTP method.
// An empty capability is always granted.
func (a *AccessControl) Can(user, capability, method string) (bool, error) {
	if a.enforcer == nil || capability == "" {
		return true, nil
	}
	return a.enforcer.Enforce(user, capability, method)
}

package framework

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/loader"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/orm"
	"github.com/leeforge/orchestra/plugin"
	"github.com/leeforge/orchestra/runtime"
	"github.com/leeforge/orchestra/runtime/migration"
	"github.com/leeforge/orchestra/translation"
)

const testNamespace = `Acme\Blog`

type nopDriver struct{}

func (nopDriver) Exec(context.Context, string, any, any) error  { return nil }
func (nopDriver) Query(context.Context, string, any, any) error { return nil }
func (d nopDriver) Tx(context.Context) (dialect.Tx, error)      { return dialect.NopTx(d), nil }
func (nopDriver) Dialect() string                               { return dialect.Postgres }
func (nopDriver) Close() error                                  { return nil }

type countingStrategy struct{ runs *atomic.Int32 }

func (s countingStrategy) Name() string { return "counting" }
func (s countingStrategy) Migrate(context.Context) error {
	s.runs.Add(1)
	return nil
}

type fixture struct {
	fw       *Framework
	dir      string
	catalog  *loader.Catalog
	opens    *atomic.Int32
	migrates *atomic.Int32
	actions  *atomic.Int32
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T, env string, opts ...Option) *fixture {
	t.Helper()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, orm.ConfigFileName+".yaml"), "dsn: postgres://localhost/blog\nauto-migrate: true\n")
	writeFile(t, filepath.Join(dir, "resources", "views", "index.html"),
		`<h1>{{ trans "title" }}</h1><p>{{ .app.page }}</p><p>{{ .message }}</p>`)
	writeFile(t, filepath.Join(dir, "resources", "translations", "messages.en.yaml"), "title: Blog posts\n")

	shared := t.TempDir()
	writeFile(t, filepath.Join(shared, "translations", "form.en.yaml"),
		"\"This form should not contain extra fields.\": No extra fields please.\n")

	f := &fixture{
		dir:      dir,
		catalog:  loader.NewCatalog(),
		opens:    &atomic.Int32{},
		migrates: &atomic.Int32{},
		actions:  &atomic.Int32{},
	}

	require.NoError(t, f.catalog.Register(testNamespace+`\Controller\IndexController`, func() controller.Controller {
		return actions{
			"index": func(c *controller.Context) (*controller.Response, error) {
				f.actions.Add(1)
				return c.Render("index.html", map[string]any{
					"message": c.Translator.Trans("This form should not contain extra fields.", nil, translation.DomainValidators),
				})
			},
			"fail": func(*controller.Context) (*controller.Response, error) {
				return nil, errors.NewInternal("action blew up")
			},
		}
	}))

	bootstrapper := orm.NewBootstrapper(
		orm.WithLogger(logging.NewNop()),
		orm.WithOpener(func(context.Context, *orm.Config) (dialect.Driver, error) {
			f.opens.Add(1)
			return nopDriver{}, nil
		}),
		orm.WithMigrationFactory(func(dialect.Driver, []*schema.Table) migration.Strategy {
			return countingStrategy{runs: f.migrates}
		}),
	)

	settings := config.Settings{
		Language:   "en",
		Env:        env,
		SharedDir:  shared,
		CSRFSecret: "secret",
		AdminPath:  "/admin",
	}
	base := []Option{
		WithLogger(logging.NewNop()),
		WithClassLoader(loader.NewClassLoader(f.catalog)),
		WithORM(bootstrapper),
	}
	f.fw = New(settings, append(base, opts...)...)
	return f
}

type actions map[string]controller.ActionFunc

func (a actions) Actions() map[string]controller.ActionFunc { return a }

func (f *fixture) definition() plugin.Definition {
	return plugin.Definition{
		Namespace: testNamespace,
		Directory: f.dir,
		Models:    []*schema.Table{orm.NewTable("posts")},
	}
}

func (f *fixture) context(target string) *Context {
	return f.fw.NewContext(httptest.NewRequest(http.MethodGet, target, nil))
}

func TestIdentifier(t *testing.T) {
	tests := []struct {
		namespace string
		want      string
	}{
		{`Acme\Blog`, "AcmeBlog"},
		{`\Acme\Blog\Admin`, "AcmeBlogAdmin"},
		{"acme/blog", "acmeblog"},
		{"Guestbook", "Guestbook"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			got := Identifier(tt.namespace)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Identifier(got))
		})
	}
}

func TestContextEnsureRequest(t *testing.T) {
	c := NewContext(httptest.NewRequest(http.MethodGet, "/admin?page=AcmeBlog", nil), nil)

	var wg sync.WaitGroup
	seen := make(chan any, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- c.EnsureRequest()
		}()
	}
	wg.Wait()
	close(seen)

	first := c.EnsureRequest()
	for r := range seen {
		assert.Same(t, first, r)
	}
	assert.Equal(t, "AcmeBlog", first.Page())
}

func TestContextReparsesPutForms(t *testing.T) {
	r := httptest.NewRequest(http.MethodPut, "/admin?page=AcmeBlog", strings.NewReader("a=1&b=2"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req := NewContext(r, nil).EnsureRequest()
	assert.Equal(t, "1", req.Body.Get("a"))
	assert.Equal(t, "2", req.Body.Get("b"))
}

func TestContextKeepsBackslashesByDefault(t *testing.T) {
	fw := New(config.Settings{Language: "en", MaxBodyBytes: 1 << 20}, WithLogger(logging.NewNop()))
	r := httptest.NewRequest(http.MethodPost, `/admin?page=AcmeBlog&path=C:\Users\me`, strings.NewReader("msg=C%3A%5Ctmp%5Cnew"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	req := fw.NewContext(r).EnsureRequest()
	assert.Equal(t, `C:\Users\me`, req.Query.Get("path"))
	assert.Equal(t, `C:\tmp\new`, req.Body.Get("msg"))
}

func TestContextActiveNamespaceOnce(t *testing.T) {
	c := NewContext(httptest.NewRequest(http.MethodGet, "/", nil), nil)
	assert.Empty(t, c.ActiveNamespace())

	assert.True(t, c.SetActiveNamespace(`Acme\Blog`))
	assert.False(t, c.SetActiveNamespace(`Other\Plugin`))
	assert.Equal(t, `Acme\Blog`, c.ActiveNamespace())
	assert.Equal(t, "AcmeBlog", c.ActiveIdentifier())
}

func TestSetupPluginSkipsOtherPages(t *testing.T) {
	f := newFixture(t, "dev")
	c := f.context("/admin?page=Guestbook")

	id, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
	require.NoError(t, err)

	assert.Equal(t, "AcmeBlog", id)
	assert.Empty(t, f.fw.ClassLoader().Namespaces())
	assert.Equal(t, int32(0), f.opens.Load())
	assert.Equal(t, orm.StateUninitialized, f.fw.ORM().State())
	assert.Nil(t, c.FrontController())
	assert.Empty(t, c.ActiveNamespace())
}

func TestSetupPluginWithoutPage(t *testing.T) {
	f := newFixture(t, "dev")
	c := f.context("/admin")

	def := f.definition()
	def.Namespace = ""
	id, err := f.fw.SetupPlugin(context.Background(), c, def)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Nil(t, c.FrontController())
}

func TestSetupPluginMatch(t *testing.T) {
	f := newFixture(t, "dev")
	c := f.context("/admin?page=AcmeBlog")

	def := f.definition()
	def.AdditionalNamespaces = map[string]string{`Acme\Shared`: "/opt/shared/src/"}
	def.AdditionalPrefixes = map[string]string{"Acme_": "/opt/legacy/"}

	id, err := f.fw.SetupPlugin(context.Background(), c, def)
	require.NoError(t, err)
	assert.Equal(t, "AcmeBlog", id)

	namespaces := f.fw.ClassLoader().Namespaces()
	assert.Equal(t, f.dir+"/src/", namespaces[testNamespace])
	assert.Equal(t, "/opt/shared/src/", namespaces[`Acme\Shared`])
	assert.Equal(t, "/opt/legacy/", f.fw.ClassLoader().Prefixes()["Acme_"])

	assert.Equal(t, testNamespace, c.ActiveNamespace())
	require.NotNil(t, c.FrontController())
	assert.Equal(t, orm.StateReady, f.fw.ORM().State())
	assert.Equal(t, int32(1), f.migrates.Load())

	resp, err := f.fw.GetResponse(context.Background(), c)
	require.NoError(t, err)
	body := string(resp.Body)
	assert.Contains(t, body, "<h1>Blog posts</h1>")
	assert.Contains(t, body, "<p>AcmeBlog</p>")
	assert.Contains(t, body, "No extra fields please.")
}

func TestSetupPluginBootstrapsORMOnce(t *testing.T) {
	f := newFixture(t, "dev")
	ctx := context.Background()

	c := f.context("/admin?page=AcmeBlog")
	_, err := f.fw.SetupPlugin(ctx, c, f.definition())
	require.NoError(t, err)

	other := plugin.Definition{Namespace: `Other\Plugin`, Directory: t.TempDir()}
	id, err := f.fw.SetupPlugin(ctx, c, other)
	require.NoError(t, err)
	assert.Equal(t, "OtherPlugin", id)

	// a later request for the same page reuses the entity manager
	next := f.context("/admin?page=AcmeBlog")
	_, err = f.fw.SetupPlugin(ctx, next, f.definition())
	require.NoError(t, err)

	assert.Equal(t, int32(1), f.opens.Load())
	assert.Same(t, c.FrontController().Entities(), next.FrontController().Entities())
}

func TestSetupPluginTemplateCache(t *testing.T) {
	tests := []struct {
		env   string
		cache bool
	}{
		{"prod", true},
		{"production", false},
		{"pro", false},
		{"PROD", false},
		{"dev", false},
		{"test", false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			f := newFixture(t, tt.env)
			c := f.context("/admin?page=AcmeBlog")

			_, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
			require.NoError(t, err)

			engine := c.FrontController().Templates()
			assert.Equal(t, tt.cache, engine.CacheEnabled())
			if tt.cache {
				want, err := filepath.EvalSymlinks(filepath.Join(f.dir, "data", "cache"))
				require.NoError(t, err)
				assert.Equal(t, want, engine.CacheDir())
			} else {
				assert.Empty(t, engine.CacheDir())
			}
		})
	}
}

func TestSetupPluginTemplateCacheAcrossRequests(t *testing.T) {
	f := newFixture(t, "prod")
	ctx := context.Background()
	hits := metrics.TemplateRenderTotal.WithLabelValues("hit")
	misses := metrics.TemplateRenderTotal.WithLabelValues("miss")

	serve := func() (*Context, string) {
		c := f.context("/admin?page=AcmeBlog")
		_, err := f.fw.SetupPlugin(ctx, c, f.definition())
		require.NoError(t, err)
		resp, err := f.fw.GetResponse(ctx, c)
		require.NoError(t, err)
		return c, string(resp.Body)
	}

	first, body := serve()
	assert.Contains(t, body, "<h1>Blog posts</h1>")
	hitsBefore, missesBefore := testutil.ToFloat64(hits), testutil.ToFloat64(misses)

	// the next request renders the template parsed by the first one
	writeFile(t, filepath.Join(f.dir, "resources", "views", "index.html"), "edited")
	second, body := serve()
	assert.Contains(t, body, "<h1>Blog posts</h1>")
	assert.Equal(t, hitsBefore+1, testutil.ToFloat64(hits))
	assert.Equal(t, missesBefore, testutil.ToFloat64(misses))

	assert.NotSame(t, first.FrontController().Templates(), second.FrontController().Templates())
	assert.Same(t, first.FrontController().Templates().Cache(), second.FrontController().Templates().Cache())
}

func TestSetupPluginClaimedPageSkipsRegistration(t *testing.T) {
	f := newFixture(t, "dev")
	c := f.context("/admin?page=AcmeBlog")
	require.True(t, c.SetActiveNamespace(`Acme\Blog\Legacy`))

	id, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
	require.NoError(t, err)
	assert.Equal(t, "AcmeBlog", id)
	assert.Empty(t, f.fw.ClassLoader().Namespaces())
	assert.Nil(t, c.FrontController())
	assert.Equal(t, int32(0), f.opens.Load())
}

func TestSetupPluginPropagatesErrors(t *testing.T) {
	t.Run("missing views dir", func(t *testing.T) {
		f := newFixture(t, "dev")
		require.NoError(t, os.RemoveAll(filepath.Join(f.dir, "resources", "views")))

		id, err := f.fw.SetupPlugin(context.Background(), f.context("/admin?page=AcmeBlog"), f.definition())
		assert.Equal(t, "AcmeBlog", id)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrorTypeTemplate))
	})

	t.Run("missing orm config", func(t *testing.T) {
		f := newFixture(t, "dev")
		require.NoError(t, os.Remove(filepath.Join(f.dir, orm.ConfigFileName+".yaml")))

		_, err := f.fw.SetupPlugin(context.Background(), f.context("/admin?page=AcmeBlog"), f.definition())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bootstrap orm")
	})
}

func TestSetupPluginPublishesActivation(t *testing.T) {
	bus := runtime.NewEventBus(8, logging.NewNop())
	var got atomic.Value
	bus.Subscribe(plugin.EventPluginActivated, func(_ context.Context, e plugin.Event) error {
		got.Store(e.Data)
		return nil
	})

	f := newFixture(t, "dev", WithEventBus(bus))
	_, err := f.fw.SetupPlugin(context.Background(), f.context("/admin?page=AcmeBlog"), f.definition())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	activation, ok := got.Load().(plugin.Activation)
	require.True(t, ok)
	assert.Equal(t, testNamespace, activation.Namespace)
	assert.Equal(t, "AcmeBlog", activation.Identifier)
}

func TestGetResponse(t *testing.T) {
	t.Run("no active plugin", func(t *testing.T) {
		f := newFixture(t, "dev")
		_, err := f.fw.GetResponse(context.Background(), f.context("/admin?page=Nobody"))
		assert.ErrorIs(t, err, ErrNoActivePlugin)
		assert.Equal(t, http.StatusNotFound, errors.HTTPStatus(err))
	})

	t.Run("dispatches once", func(t *testing.T) {
		f := newFixture(t, "dev")
		c := f.context("/admin?page=AcmeBlog")
		_, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
		require.NoError(t, err)

		first, err := f.fw.GetResponse(context.Background(), c)
		require.NoError(t, err)
		second, err := f.fw.GetResponse(context.Background(), c)
		require.NoError(t, err)

		assert.Same(t, first, second)
		assert.Equal(t, int32(1), f.actions.Load())
	})

	t.Run("unknown controller and action", func(t *testing.T) {
		for _, target := range []string{
			"/admin?page=AcmeBlog&controller=missing",
			"/admin?page=AcmeBlog&action=missing",
		} {
			f := newFixture(t, "dev")
			c := f.context(target)
			_, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
			require.NoError(t, err)

			_, err = f.fw.GetResponse(context.Background(), c)
			assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound), target)
		}
	})

	t.Run("action error", func(t *testing.T) {
		f := newFixture(t, "dev")
		c := f.context("/admin?page=AcmeBlog&action=fail")
		_, err := f.fw.SetupPlugin(context.Background(), c, f.definition())
		require.NoError(t, err)

		_, err = f.fw.GetResponse(context.Background(), c)
		assert.EqualError(t, err, "action blew up")
	})
}

func TestFrontControllerRoute(t *testing.T) {
	fc := NewFrontController(FrontControllerConfig{
		Request:   NewContext(httptest.NewRequest(http.MethodGet, "/admin?page=AcmeBlog&controller=blog_post&action=edit", nil), nil).EnsureRequest(),
		Namespace: testNamespace,
		Logger:    logging.NewNop(),
	})

	name, action := fc.Route()
	assert.Equal(t, "blog_post", name)
	assert.Equal(t, "edit", action)
	assert.Equal(t, `Acme\Blog\Controller\BlogPostController`, fc.ControllerClass(name))
	assert.Equal(t, "AcmeBlog", fc.Identifier())
}

func TestDisplayError(t *testing.T) {
	var (
		fragment string
		sent     int
	)
	fw := New(config.Settings{Language: "en"},
		WithLogger(logging.NewNop()),
		WithTerminator(func(w http.ResponseWriter, status int, s string) {
			sent, fragment = status, s
			w.WriteHeader(http.StatusTeapot)
		}),
	)

	err := errors.NewInternal(`template "<index>" failed`)
	rec := httptest.NewRecorder()
	status := fw.DisplayError(rec, err)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, http.StatusInternalServerError, sent)
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.True(t, strings.HasPrefix(fragment, `<div style="overflow: scroll;"><p><strong>Error!</strong></p>`))
	assert.Contains(t, fragment, "framework_test.go:")
	assert.Contains(t, fragment, `template &#34;&lt;index&gt;&#34; failed`)
	assert.Contains(t, fragment, "<pre>#0 ")
}

func TestDisplayErrorPlainError(t *testing.T) {
	fw := New(config.Settings{Language: "en"}, WithLogger(logging.NewNop()))

	rec := httptest.NewRecorder()
	status := fw.DisplayError(rec, assert.AnError)

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), assert.AnError.Error())
	assert.Contains(t, rec.Body.String(), "framework_test.go:")
}

func TestDisplayErrorUsesErrorStatus(t *testing.T) {
	fw := New(config.Settings{Language: "en"}, WithLogger(logging.NewNop()))

	tests := []struct {
		err  error
		want int
	}{
		{errors.NewNotFound("class", `Acme\Blog\Controller\NopeController`), http.StatusNotFound},
		{ErrNoActivePlugin, http.StatusNotFound},
		{errors.NewForbidden("denied"), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			assert.Equal(t, tt.want, fw.DisplayError(rec, tt.err))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

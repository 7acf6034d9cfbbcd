package controller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/request"
	"github.com/leeforge/orchestra/view"
)

func TestResponseKinds(t *testing.T) {
	html := HTML("<p>hi</p>")
	assert.Equal(t, http.StatusOK, html.Status)
	assert.True(t, html.IsHTML())
	assert.False(t, html.IsRedirect())

	redirect := RedirectTo("/admin?page=x")
	assert.True(t, redirect.IsRedirect())
	assert.Equal(t, "/admin?page=x", redirect.Header.Get("Location"))

	raw := NewResponse(http.StatusOK, []byte("x"))
	assert.True(t, raw.IsHTML())
	raw.Header.Set("Content-Type", "text/csv")
	assert.False(t, raw.IsHTML())

	assert.Equal(t, "", (&Response{}).ContentType())
}

func newContext(t *testing.T) *Context {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.html"), []byte(`Hello {{.name}}`), 0o644))

	engine, err := view.NewEngine(view.NewFilesystemLoader(dir), view.Options{})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/admin?page=AcmeBlog&id=3", nil)
	req := request.NewNormalizer(request.DefaultOptions()).Normalize(r)
	return &Context{
		Context:   context.Background(),
		Request:   req,
		Plugin:    "AcmeBlog",
		Templates: engine,
		Host:      view.NewHostExtension(req, `Acme\Blog`, "AcmeBlog", "/admin"),
	}
}

func TestContextHelpers(t *testing.T) {
	c := newContext(t)

	resp, err := c.Render("hello.html", map[string]any{"name": "<Ada>"})
	require.NoError(t, err)
	assert.Equal(t, "Hello &lt;Ada&gt;", string(resp.Body))

	_, err = c.Render("missing.html", nil)
	assert.Error(t, err)

	redirect := c.Redirect("post", "show", url.Values{"id": {"3"}})
	assert.Equal(t, "/admin?action=show&controller=post&id=3&page=AcmeBlog", redirect.Header.Get("Location"))

	js, err := c.JSON(http.StatusCreated, map[string]any{"ok": true})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, js.Status)
	assert.JSONEq(t, `{"ok":true}`, string(js.Body))
	assert.False(t, js.IsHTML())

	assert.Equal(t, "3", c.Param("id"))
	assert.Equal(t, http.StatusNotFound, c.NotFound("gone").Status)
}

func TestContextURLWithoutHost(t *testing.T) {
	c := &Context{Plugin: "AcmeBlog"}
	assert.Equal(t, "?action=list&controller=post&page=AcmeBlog", c.URL("post", "list", nil))
}

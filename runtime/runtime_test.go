package runtime

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/plugin"
)

type testPlugin struct {
	name     string
	deps     []string
	enableFn func(context.Context, *plugin.AppContext) error
}

func (p *testPlugin) Name() string           { return p.name }
func (p *testPlugin) Version() string        { return "1.0.0" }
func (p *testPlugin) Dependencies() []string { return p.deps }
func (p *testPlugin) Enable(ctx context.Context, app *plugin.AppContext) error {
	if p.enableFn != nil {
		return p.enableFn(ctx, app)
	}
	return nil
}

type lifecyclePlugin struct {
	testPlugin
	log      *[]string
	optional bool
}

func (p *lifecyclePlugin) Install(context.Context, *plugin.AppContext) error {
	*p.log = append(*p.log, "install "+p.name)
	return nil
}

func (p *lifecyclePlugin) Disable(context.Context, *plugin.AppContext) error {
	*p.log = append(*p.log, "disable "+p.name)
	return nil
}

func (p *lifecyclePlugin) PluginOptions() plugin.PluginOptions {
	return plugin.PluginOptions{Optional: p.optional, Description: p.name + " plugin"}
}

func (p *lifecyclePlugin) HealthCheck(context.Context) error {
	if p.name == "sick" {
		return errors.New("unwell")
	}
	return nil
}

type menuPlugin struct{ testPlugin }

func (p *menuPlugin) AdminMenu(context.Context, *plugin.AdminMenuContext) error { return nil }

func newTestRuntime(entries map[string]config.PluginEntry) *Runtime {
	return NewRuntime(Config{
		Router:   chi.NewRouter(),
		Logger:   logging.NewNop(),
		Plugins:  entries,
		Settings: config.Settings{Language: "en"},
	})
}

func TestRuntime_RegisterAndBootstrap(t *testing.T) {
	rt := newTestRuntime(map[string]config.PluginEntry{
		"guestbook": {Settings: map[string]any{"title": "Visitors"}},
	})

	var seen *plugin.AppContext
	require.NoError(t, rt.Register(&testPlugin{name: "guestbook", enableFn: func(_ context.Context, app *plugin.AppContext) error {
		seen = app
		return nil
	}}))
	assert.Error(t, rt.Register(&testPlugin{name: "guestbook"}))

	require.NoError(t, rt.Bootstrap(context.Background()))
	t.Cleanup(func() { _ = rt.Shutdown(context.Background()) })

	state, ok := rt.GetPluginState("guestbook")
	require.True(t, ok)
	assert.Equal(t, plugin.StateEnabled, state)

	require.NotNil(t, seen)
	assert.Equal(t, "Visitors", seen.Config.GetString("title", ""))
	assert.Equal(t, "en", seen.Settings.Language)
	assert.Same(t, rt.Services(), seen.Services)
}

func TestRuntime_DependencyOrder(t *testing.T) {
	rt := newTestRuntime(nil)
	require.NoError(t, rt.Register(&testPlugin{name: "c", deps: []string{"b"}}))
	require.NoError(t, rt.Register(&testPlugin{name: "a"}))
	require.NoError(t, rt.Register(&testPlugin{name: "b", deps: []string{"a"}}))

	require.NoError(t, rt.Bootstrap(context.Background()))
	assert.Equal(t, []string{"a", "b", "c"}, rt.BootOrder())

	names := make([]string, 0, 3)
	for _, p := range rt.EnabledPlugins() {
		names = append(names, p.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestRuntime_DependencyErrors(t *testing.T) {
	t.Run("circular", func(t *testing.T) {
		rt := newTestRuntime(nil)
		require.NoError(t, rt.Register(&testPlugin{name: "a", deps: []string{"b"}}))
		require.NoError(t, rt.Register(&testPlugin{name: "b", deps: []string{"a"}}))
		assert.ErrorIs(t, rt.Bootstrap(context.Background()), ErrCircularDependency)
	})

	t.Run("missing", func(t *testing.T) {
		rt := newTestRuntime(nil)
		require.NoError(t, rt.Register(&testPlugin{name: "a", deps: []string{"ghost"}}))
		err := rt.Bootstrap(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ghost")
	})
}

func TestRuntime_LifecycleOrder(t *testing.T) {
	var log []string
	rt := newTestRuntime(nil)
	require.NoError(t, rt.Register(&lifecyclePlugin{testPlugin: testPlugin{name: "a"}, log: &log}))
	require.NoError(t, rt.Register(&lifecyclePlugin{testPlugin: testPlugin{name: "b", deps: []string{"a"}}, log: &log}))

	require.NoError(t, rt.Bootstrap(context.Background()))
	require.NoError(t, rt.Shutdown(context.Background()))

	assert.Equal(t, []string{"install a", "install b", "disable b", "disable a"}, log)
	state, _ := rt.GetPluginState("a")
	assert.Equal(t, plugin.StateDisabled, state)
}

func TestRuntime_DisabledInConfig(t *testing.T) {
	off := false
	rt := newTestRuntime(map[string]config.PluginEntry{"legacy": {Enabled: &off}})

	var enabled atomic.Bool
	require.NoError(t, rt.Register(&testPlugin{name: "legacy", enableFn: func(context.Context, *plugin.AppContext) error {
		enabled.Store(true)
		return nil
	}}))
	require.NoError(t, rt.Register(&testPlugin{name: "guestbook"}))

	require.NoError(t, rt.Bootstrap(context.Background()))

	assert.False(t, enabled.Load())
	state, _ := rt.GetPluginState("legacy")
	assert.Equal(t, plugin.StateSkipped, state)
	assert.Len(t, rt.EnabledPlugins(), 1)
}

func TestRuntime_Failures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("optional plugin failure is tolerated", func(t *testing.T) {
		var log []string
		rt := newTestRuntime(nil)
		p := &lifecyclePlugin{testPlugin: testPlugin{name: "flaky", enableFn: func(context.Context, *plugin.AppContext) error { return boom }}, log: &log, optional: true}
		require.NoError(t, rt.Register(p))
		require.NoError(t, rt.Register(&testPlugin{name: "ok"}))

		require.NoError(t, rt.Bootstrap(context.Background()))

		state, _ := rt.GetPluginState("flaky")
		assert.Equal(t, plugin.StateFailed, state)
		assert.ErrorIs(t, rt.PluginError("flaky"), boom)
		state, _ = rt.GetPluginState("ok")
		assert.Equal(t, plugin.StateEnabled, state)
	})

	t.Run("required plugin failure aborts", func(t *testing.T) {
		rt := newTestRuntime(nil)
		require.NoError(t, rt.Register(&testPlugin{name: "core", enableFn: func(context.Context, *plugin.AppContext) error { return boom }}))
		err := rt.Bootstrap(context.Background())
		assert.ErrorIs(t, err, boom)
	})

	t.Run("dependents of a failed plugin fail", func(t *testing.T) {
		var log []string
		rt := newTestRuntime(nil)
		require.NoError(t, rt.Register(&lifecyclePlugin{testPlugin: testPlugin{name: "base", enableFn: func(context.Context, *plugin.AppContext) error { return boom }}, log: &log, optional: true}))
		require.NoError(t, rt.Register(&lifecyclePlugin{testPlugin: testPlugin{name: "child", deps: []string{"base"}}, log: &log, optional: true}))

		require.NoError(t, rt.Bootstrap(context.Background()))
		state, _ := rt.GetPluginState("child")
		assert.Equal(t, plugin.StateFailed, state)
		assert.NotContains(t, log, "install child")
	})
}

func TestRuntime_PluginsAndHealth(t *testing.T) {
	var log []string
	rt := newTestRuntime(nil)
	require.NoError(t, rt.Register(&lifecyclePlugin{testPlugin: testPlugin{name: "sick"}, log: &log}))
	require.NoError(t, rt.Register(&menuPlugin{testPlugin{name: "guestbook"}}))
	require.NoError(t, rt.Bootstrap(context.Background()))

	infos := rt.Plugins()
	require.Len(t, infos, 2)
	assert.Equal(t, "guestbook", infos[0].Name)
	assert.True(t, infos[0].AdminPage)
	assert.Equal(t, "sick plugin", infos[1].Description)
	assert.Equal(t, plugin.StateEnabled, infos[1].State)

	require.Len(t, rt.AdminMenuProviders(), 1)

	health := rt.Health(context.Background())
	assert.EqualError(t, health["sick"], "unwell")
}

func TestRuntime_EventsIntegration(t *testing.T) {
	rt := newTestRuntime(nil)

	var received, enabledEvents atomic.Int32
	require.NoError(t, rt.Register(&testPlugin{name: "eventer", enableFn: func(_ context.Context, app *plugin.AppContext) error {
		app.Events.Subscribe("test.ping", func(context.Context, plugin.Event) error {
			received.Add(1)
			return nil
		})
		return nil
	}}))
	rt.Events().Subscribe(plugin.EventPluginEnabled, func(context.Context, plugin.Event) error {
		enabledEvents.Add(1)
		return nil
	})

	require.NoError(t, rt.Bootstrap(context.Background()))
	require.NoError(t, rt.Publish(context.Background(), plugin.Event{Name: "test.ping"}))
	require.NoError(t, rt.Shutdown(context.Background()))

	assert.Equal(t, int32(1), received.Load())
	assert.Equal(t, int32(1), enabledEvents.Load())
}

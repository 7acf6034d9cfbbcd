package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeforge/orchestra/errors"
)

type entryStore struct{ table string }

func TestServiceRegistry(t *testing.T) {
	sr := NewServiceRegistry()
	store := &entryStore{table: "guestbook_entries"}

	require.NoError(t, sr.Register("guestbook.store", store))
	assert.Error(t, sr.Register("guestbook.store", store))
	assert.Panics(t, func() { sr.MustRegister("guestbook.store", store) })
	sr.MustRegister("audit.sink", "stdout")

	assert.True(t, sr.Has("guestbook.store"))
	assert.Equal(t, []string{"audit.sink", "guestbook.store"}, sr.Keys())

	got, err := Resolve[*entryStore](sr, "guestbook.store")
	require.NoError(t, err)
	assert.Same(t, store, got)

	_, err = Resolve[*entryStore](sr, "missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = Resolve[int](sr, "audit.sink")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
	assert.Panics(t, func() { MustResolve[int](sr, "audit.sink") })

	sr.Unregister("audit.sink")
	assert.False(t, sr.Has("audit.sink"))
}

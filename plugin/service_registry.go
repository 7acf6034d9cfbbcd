package plugin

import (
	"fmt"
	"sort"
	"sync"

	"github.com/leeforge/orchestra/errors"
)

// ServiceRegistry lets plugins share services. Keys are
// "<plugin>.<service>", e.g. "guestbook.store".
type ServiceRegistry struct {
	mu       sync.RWMutex
	services map[string]any
}

func NewServiceRegistry() *ServiceRegistry {
	return &ServiceRegistry{services: make(map[string]any)}
}

// Register fails when key is taken.
func (sr *ServiceRegistry) Register(key string, svc any) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	if _, taken := sr.services[key]; taken {
		return fmt.Errorf("service %q already registered", key)
	}
	sr.services[key] = svc
	return nil
}

func (sr *ServiceRegistry) MustRegister(key string, svc any) {
	if err := sr.Register(key, svc); err != nil {
		panic(err)
	}
}

// Unregister removes key; plugins call it from Disable.
func (sr *ServiceRegistry) Unregister(key string) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	delete(sr.services, key)
}

func (sr *ServiceRegistry) Has(key string) bool {
	sr.mu.RLock()
	defer sr.mu.RUnlock()
	_, ok := sr.services[key]
	return ok
}

// Keys returns the registered keys in order.
func (sr *ServiceRegistry) Keys() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	keys := make([]string, 0, len(sr.services))
	for k := range sr.services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolve looks key up and asserts its type.
func Resolve[T any](sr *ServiceRegistry, key string) (T, error) {
	var zero T

	sr.mu.RLock()
	svc, ok := sr.services[key]
	sr.mu.RUnlock()
	if !ok {
		return zero, errors.NewNotFound("service", key)
	}

	typed, ok := svc.(T)
	if !ok {
		return zero, errors.NewInternal(fmt.Sprintf("service %q is %T, want %T", key, svc, zero))
	}
	return typed, nil
}

func MustResolve[T any](sr *ServiceRegistry, key string) T {
	svc, err := Resolve[T](sr, key)
	if err != nil {
		panic(err)
	}
	return svc
}

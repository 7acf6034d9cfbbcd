// Package loader resolves fully-qualified controller class names. Plugins
// register their controllers in a Catalog from init; the ClassLoader only
// hands out classes that live under a namespace or prefix registered for
// the active plugin.
package loader

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leeforge/orchestra/controller"
)

// Catalog maps class names such as `Acme\Blog\Controller\PostController`
// to controller factories.
type Catalog struct {
	mu      sync.RWMutex
	classes map[string]controller.Factory
}

func NewCatalog() *Catalog {
	return &Catalog{classes: make(map[string]controller.Factory)}
}

// DefaultCatalog receives the registrations made through Register.
var DefaultCatalog = NewCatalog()

// Register adds class to the default catalog. It panics on duplicates,
// like registering the same route twice.
func Register(class string, factory controller.Factory) {
	if err := DefaultCatalog.Register(class, factory); err != nil {
		panic(err)
	}
}

func (c *Catalog) Register(class string, factory controller.Factory) error {
	class = NormalizeClass(class)
	if class == "" || factory == nil {
		return fmt.Errorf("loader: invalid registration for %q", class)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.classes[class]; exists {
		return fmt.Errorf("loader: class %s already registered", class)
	}
	c.classes[class] = factory
	return nil
}

func (c *Catalog) Lookup(class string) (controller.Factory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.classes[NormalizeClass(class)]
	return f, ok
}

// Classes returns the registered class names in order.
func (c *Catalog) Classes() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizeClass turns Go style separators into `\` and drops the leading one.
func NormalizeClass(class string) string {
	class = strings.ReplaceAll(class, "/", `\`)
	return strings.TrimPrefix(class, `\`)
}

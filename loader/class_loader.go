package loader

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/utils"
)

// ClassLoader tracks which namespaces and prefixes are loadable and where
// their sources live.
type ClassLoader struct {
	catalog *Catalog

	mu         sync.RWMutex
	namespaces map[string]string
	prefixes   map[string]string
}

func NewClassLoader(catalog *Catalog) *ClassLoader {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &ClassLoader{
		catalog:    catalog,
		namespaces: make(map[string]string),
		prefixes:   make(map[string]string),
	}
}

// RegisterNamespaces maps namespaces to source directories. Re-registering
// a namespace replaces its directory.
func (l *ClassLoader) RegisterNamespaces(namespaces map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ns, dir := range namespaces {
		l.namespaces[NormalizeClass(ns)] = dir
	}
}

// RegisterPrefixes maps PEAR style class prefixes (Twig_, Acme_) to directories.
func (l *ClassLoader) RegisterPrefixes(prefixes map[string]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for prefix, dir := range prefixes {
		l.prefixes[prefix] = dir
	}
}

func (l *ClassLoader) Namespaces() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.namespaces))
	for k, v := range l.namespaces {
		out[k] = v
	}
	return out
}

func (l *ClassLoader) Prefixes() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.prefixes))
	for k, v := range l.prefixes {
		out[k] = v
	}
	return out
}

// resolve returns the directory and the relative path of class, using the
// longest matching namespace, then the longest matching prefix.
func (l *ClassLoader) resolve(class string) (string, string, bool) {
	class = NormalizeClass(class)

	l.mu.RLock()
	defer l.mu.RUnlock()

	if dir, ok := longestMatch(l.namespaces, class, func(ns string) bool {
		return strings.HasPrefix(class, ns+`\`)
	}); ok {
		return dir, psr0Path(class), true
	}
	if !strings.Contains(class, `\`) {
		if dir, ok := longestMatch(l.prefixes, class, func(prefix string) bool {
			return strings.HasPrefix(class, prefix)
		}); ok {
			return dir, strings.ReplaceAll(class, "_", "/") + ".go", true
		}
	}
	return "", "", false
}

func longestMatch(m map[string]string, class string, matches func(string) bool) (string, bool) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) > len(keys[j]) })
	for _, k := range keys {
		if matches(k) {
			return m[k], true
		}
	}
	return "", false
}

// psr0Path maps `Acme\Blog\Controller\Post_Controller` to
// Acme/Blog/Controller/Post/Controller.go.
func psr0Path(class string) string {
	i := strings.LastIndex(class, `\`)
	ns, name := class[:i], class[i+1:]
	return strings.ReplaceAll(ns, `\`, "/") + "/" + strings.ReplaceAll(name, "_", "/") + ".go"
}

// FindFile returns the source file of class when it exists on disk.
func (l *ClassLoader) FindFile(class string) (string, bool) {
	dir, rel, ok := l.resolve(class)
	if !ok {
		return "", false
	}
	file := filepath.Join(dir, filepath.FromSlash(rel))
	if !utils.IsFile(file) {
		return "", false
	}
	return file, true
}

// LoadClass returns the factory of class. Classes outside the registered
// namespaces and prefixes are not loadable even when they are in the catalog.
func (l *ClassLoader) LoadClass(class string) (controller.Factory, error) {
	if _, _, ok := l.resolve(class); !ok {
		return nil, errors.NewNotFound("class", NormalizeClass(class)).
			WithDetail("reason", "no registered namespace or prefix")
	}
	factory, ok := l.catalog.Lookup(class)
	if !ok {
		return nil, errors.NewNotFound("class", NormalizeClass(class))
	}
	return factory, nil
}

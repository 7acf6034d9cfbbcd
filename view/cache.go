package view

import (
	"html/template"
	"sync"
)

// TemplateCache holds the parsed templates of one cache dir across
// requests. Cached templates are never executed: engines execute clones
// bound to their own request funcs.
type TemplateCache struct {
	mu     sync.RWMutex
	parsed map[string]*template.Template
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{parsed: make(map[string]*template.Template)}
}

func (c *TemplateCache) get(name string) (*template.Template, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.parsed[name]
	return t, ok
}

// put stores t unless another engine stored name first, and returns the
// template that won.
func (c *TemplateCache) put(name string, t *template.Template) *template.Template {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.parsed[name]; ok {
		return cached
	}
	c.parsed[name] = t
	return t
}

// Len is the number of parsed templates held.
func (c *TemplateCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.parsed)
}

// TemplateCaches hands out one TemplateCache per resolved cache dir.
type TemplateCaches struct {
	mu    sync.Mutex
	byDir map[string]*TemplateCache
}

func NewTemplateCaches() *TemplateCaches {
	return &TemplateCaches{byDir: make(map[string]*TemplateCache)}
}

func (c *TemplateCaches) For(dir string) *TemplateCache {
	c.mu.Lock()
	defer c.mu.Unlock()
	cache, ok := c.byDir[dir]
	if !ok {
		cache = NewTemplateCache()
		c.byDir[dir] = cache
	}
	return cache
}

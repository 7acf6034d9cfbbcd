package view

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/utils"
)

//go:embed resources/*.html
var builtin embed.FS

// FilesystemLoader finds templates in an ordered list of directories. The
// first root holding a name wins; the built-in form layout is the last
// resort.
type FilesystemLoader struct {
	roots []string
}

func NewFilesystemLoader(roots ...string) *FilesystemLoader {
	kept := make([]string, 0, len(roots))
	for _, r := range roots {
		if r != "" {
			kept = append(kept, r)
		}
	}
	return &FilesystemLoader{roots: kept}
}

func (l *FilesystemLoader) Roots() []string {
	out := make([]string, len(l.roots))
	copy(out, l.roots)
	return out
}

// Find returns the source of the named template.
func (l *FilesystemLoader) Find(name string) (string, error) {
	clean := path.Clean("/" + filepath.ToSlash(name))[1:]
	if clean == "" || clean != filepath.ToSlash(name) || strings.HasPrefix(clean, "../") {
		return "", errors.New(errors.ErrorTypeTemplate, "invalid template name").WithDetail("name", name)
	}

	for _, root := range l.roots {
		file := filepath.Join(root, filepath.FromSlash(clean))
		if !utils.IsFile(file) {
			continue
		}
		src, err := os.ReadFile(file)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeTemplate, "read template").WithDetail("path", file)
		}
		return string(src), nil
	}

	if src, err := fs.ReadFile(builtin, "resources/"+clean); err == nil {
		return string(src), nil
	}
	return "", errors.Wrap(fs.ErrNotExist, errors.ErrorTypeTemplate, "template not found").
		WithDetail("name", name).
		WithDetail("roots", l.roots)
}

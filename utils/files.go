package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

func Exists(path string) (isDir bool, exists bool, err error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return info.IsDir(), true, nil
}

func CreateDir(path string) error {
	return os.MkdirAll(path, os.ModePerm)
}

// RealPath resolves path to an absolute, symlink-free path.
// It fails when the path does not exist.
func RealPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolved, nil
}

// IsFile reports whether path exists and is a regular file.
func IsFile(path string) bool {
	isDir, exists, _ := Exists(path)
	return exists && !isDir
}

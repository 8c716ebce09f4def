package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

// Namespace is a flat string key-value store that lives outside the
// database, so settings survive a database destroy.
type Namespace interface {
	// Get returns the value under key; ok is false when the key is absent.
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	// Remove deletes key. A missing key is not an error.
	Remove(key string) error
}

var keyRe = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// FileNamespace keeps one file per key under Dir.
type FileNamespace struct {
	Dir string
}

func (n FileNamespace) path(key string) (string, error) {
	if !keyRe.MatchString(key) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(n.Dir, key+".json"), nil
}

func (n FileNamespace) Get(key string) (string, bool, error) {
	p, err := n.path(key)
	if err != nil {
		return "", false, err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return string(b), true, nil
}

func (n FileNamespace) Set(key, value string) error {
	p, err := n.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(n.Dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	if err := atomicWriteFile(n.Dir, "."+key+"-*.tmp", p, []byte(value), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}

func (n FileNamespace) Remove(key string) error {
	p, err := n.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", key, err)
	}
	return nil
}

func atomicWriteFile(dir, tmpPattern, path string, b []byte, perm os.FileMode) error {
	f, err := os.CreateTemp(dir, tmpPattern)
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	_ = os.Chmod(tmp, perm)
	return os.Rename(tmp, path)
}

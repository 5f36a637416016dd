package storage

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidPath is returned for object keys that escape the bucket root.
var ErrInvalidPath = errors.New("invalid object path")

// Bucket stores uploaded objects on disk and issues public URLs for them.
// Object keys are slash separated, e.g. "papers/1700000000000_dbms.pdf".
type Bucket struct {
	baseDir    string
	publicBase string
}

// NewBucket ensures the base directory exists. publicBase is the absolute URL
// prefix under which the bucket is served, e.g. "https://api.example/storage".
func NewBucket(baseDir, publicBase string) (*Bucket, error) {
	if baseDir == "" {
		baseDir = "./storage"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &Bucket{baseDir: baseDir, publicBase: strings.TrimRight(publicBase, "/")}, nil
}

// Dir returns the bucket root on disk.
func (b *Bucket) Dir() string {
	return b.baseDir
}

// Put copies r into the object key and returns the key.
func (b *Bucket) Put(key string, r io.Reader) (string, error) {
	target, err := b.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", fmt.Errorf("prepare object directory: %w", err)
	}
	file, err := os.Create(target)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer file.Close() //nolint:errcheck
	if _, err := io.Copy(file, r); err != nil {
		_ = os.Remove(target)
		return "", fmt.Errorf("write object: %w", err)
	}
	return key, nil
}

// Open returns a read-only handle for the stored object.
func (b *Bucket) Open(key string) (*os.File, error) {
	target, err := b.resolve(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(target)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return file, nil
}

// Exists reports whether an object is present.
func (b *Bucket) Exists(key string) (bool, error) {
	target, err := b.resolve(key)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete removes a stored object if present.
func (b *Bucket) Delete(key string) error {
	target, err := b.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PublicURL returns the publicly resolvable URL of an object.
func (b *Bucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return b.publicBase + "/" + strings.Join(segments, "/")
}

// KeyFromURL recovers the object key from a URL issued by PublicURL.
func (b *Bucket) KeyFromURL(raw string) (string, error) {
	if !strings.HasPrefix(raw, b.publicBase+"/") {
		return "", fmt.Errorf("%w: url outside bucket", ErrInvalidPath)
	}
	escaped := strings.TrimPrefix(raw, b.publicBase+"/")
	if i := strings.IndexAny(escaped, "?#"); i >= 0 {
		escaped = escaped[:i]
	}
	key, err := url.PathUnescape(escaped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPath, err)
	}
	if _, err := b.resolve(key); err != nil {
		return "", err
	}
	return key, nil
}

func (b *Bucket) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean("/" + key)
	if clean == "/" || clean != "/"+key {
		return "", ErrInvalidPath
	}
	return filepath.Join(b.baseDir, filepath.FromSlash(clean[1:])), nil
}

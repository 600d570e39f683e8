package media

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// Store resolves a media reference to a local file path that stays readable
// for the rest of the run.
type Store interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

// Compile-time interface implementation check.
var _ Store = (*LocalStore)(nil)

// LocalStore resolves plain paths and file:// URLs on the local filesystem.
// Relative references are taken from the base directory. Resolved paths are
// absolute, so a persisted run still finds its media from another working
// directory.
type LocalStore struct {
	base    string
	statter fileStatter
}

// LocalStoreOption configures a LocalStore.
type LocalStoreOption func(*LocalStore)

// WithStoreFileStatter sets the file statter for LocalStore.
func WithStoreFileStatter(s fileStatter) LocalStoreOption {
	return func(ls *LocalStore) { ls.statter = s }
}

// NewLocalStore creates a LocalStore rooted at base ("" means the working directory).
func NewLocalStore(base string, opts ...LocalStoreOption) *LocalStore {
	ls := &LocalStore{base: base, statter: osFileStatter{}}
	for _, opt := range opts {
		opt(ls)
	}
	return ls
}

// Resolve implements Store.
func (ls *LocalStore) Resolve(_ context.Context, ref string) (string, error) {
	path, err := refToPath(ref)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(path) && ls.base != "" {
		path = filepath.Join(ls.base, path)
	}
	path, err = filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMediaNotFound, ref, err)
	}

	info, err := ls.statter.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrMediaNotFound, path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrMediaNotFound, path)
	}
	return path, nil
}

func refToPath(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", ErrMediaNotFound)
	}
	if !strings.Contains(ref, "://") {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrMediaNotFound, ref, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("%w: scheme %q not supported by the local store", ErrMediaNotFound, u.Scheme)
	}
	return u.Path, nil
}

package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider reads secrets from files in a directory, one file per secret,
// the layout used by mounted Kubernetes and Docker secrets. Surrounding
// whitespace is trimmed from the value.
type FileProvider struct {
	dir string
}

// NewFileProvider creates a provider for dir, which must exist.
func NewFileProvider(dir string) (*FileProvider, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat secrets directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", dir)
	}
	return &FileProvider{dir: dir}, nil
}

// GetSecret reads <dir>/<name>. Names containing path separators are
// refused, as are files readable or writable by other users.
func (p *FileProvider) GetSecret(_ context.Context, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid secret name %q", name)
	}

	path := filepath.Join(p.dir, name)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s (file %s)", ErrNotFound, name, path)
		}
		return "", fmt.Errorf("failed to stat secret file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("secret path is not a regular file: %s", path)
	}
	if perm := info.Mode().Perm(); perm&0o007 != 0 {
		return "", fmt.Errorf("insecure permissions on %s: %o (no access for others allowed)", path, perm)
	}

	// #nosec G304 - name is a single path element inside dir
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// Name returns "file".
func (p *FileProvider) Name() string {
	return "file"
}

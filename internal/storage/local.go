package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// LocalDriver stores objects on the local filesystem. Configured with a
// base URL it acts as the public disk (files served by a web server or
// the app's own file handler); without one the disk is private.
type LocalDriver struct {
	name     string
	basePath string
	baseURL  string
}

// NewLocalDriver creates a local filesystem driver rooted at BasePath.
func NewLocalDriver(cfg Config) (*LocalDriver, error) {
	if cfg.BasePath == "" {
		cfg.BasePath = "./uploads"
	}

	if err := os.MkdirAll(cfg.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalDriver{
		name:     cfg.Name,
		basePath: cfg.BasePath,
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (d *LocalDriver) Name() string { return d.name }

// Store writes the object under folder/name below the disk root.
func (d *LocalDriver) Store(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error) {
	relPath := path.Join(folder, name)
	fullPath, err := d.fullPath(relPath)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := io.Copy(file, reader); err != nil {
		os.Remove(fullPath) // do not leave a truncated object behind
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	return relPath, nil
}

// SetVisibility adjusts the file mode: world-readable for public,
// owner-only for private.
func (d *LocalDriver) SetVisibility(ctx context.Context, relPath string, visibility Visibility) error {
	fullPath, err := d.fullPath(relPath)
	if err != nil {
		return err
	}

	mode := os.FileMode(0o600)
	if visibility == VisibilityPublic {
		mode = 0o644
	}

	if err := os.Chmod(fullPath, mode); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to change file mode: %w", err)
	}
	return nil
}

// Delete removes the file. A missing path is not an error.
func (d *LocalDriver) Delete(ctx context.Context, relPath string) (bool, error) {
	fullPath, err := d.fullPath(relPath)
	if err != nil {
		return false, err
	}

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete file: %w", err)
	}
	return true, nil
}

// Open returns a read stream for the file.
func (d *LocalDriver) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	fullPath, err := d.fullPath(relPath)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return file, nil
}

// PublicURL is present only when the disk is configured with a base URL.
func (d *LocalDriver) PublicURL(relPath string) (string, bool) {
	if d.baseURL == "" {
		return "", false
	}
	return d.baseURL + "/" + relPath, true
}

// TemporaryURL: the local filesystem has no URL signing.
func (d *LocalDriver) TemporaryURL(ctx context.Context, relPath string, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

// SupportsLocalProcessing: objects are on the local disk and can be
// re-read and rewritten in place.
func (d *LocalDriver) SupportsLocalProcessing() bool { return true }

// fullPath resolves relPath below the disk root, rejecting traversal.
func (d *LocalDriver) fullPath(relPath string) (string, error) {
	clean := path.Clean("/" + relPath)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage path %q", relPath)
	}
	return filepath.Join(d.basePath, filepath.FromSlash(clean)), nil
}

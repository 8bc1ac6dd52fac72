// Package storage abstracts the physical media files are stored on.
// Each backend (local filesystem, S3-compatible object store, FTP, SFTP)
// implements the Driver interface once; a Registry holds the configured
// disks by name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Visibility of a stored object.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Sentinel errors shared by all drivers.
var (
	// ErrNotFound: the path does not exist on the backend.
	ErrNotFound = errors.New("storage: object not found")

	// ErrUnsupported: the driver lacks the requested capability
	// (per-object visibility, signed URLs). Callers treat it as a
	// degraded result, never as a failure.
	ErrUnsupported = errors.New("storage: capability not supported")
)

// Driver is the uniform capability interface over one storage medium.
type Driver interface {
	// Name returns the disk identifier this driver was registered under.
	Name() string

	// Store writes content under folder/name and returns the relative
	// path of the stored object.
	Store(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error)

	// SetVisibility marks the object public or private. Drivers that
	// cannot express per-object visibility return ErrUnsupported.
	SetVisibility(ctx context.Context, path string, visibility Visibility) error

	// Delete removes the object. Deleting a missing path is not an
	// error; the bool reports whether the object existed.
	Delete(ctx context.Context, path string) (bool, error)

	// Open returns a lazily-read byte stream for the object, or
	// ErrNotFound. The caller owns the stream and must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// PublicURL returns the browser-reachable URL for the object. The
	// bool is false when the disk is not publicly served.
	PublicURL(path string) (string, bool)

	// TemporaryURL returns a time-limited signed URL, or ErrUnsupported
	// for backends without signing.
	TemporaryURL(ctx context.Context, path string, expiry time.Duration) (string, error)

	// SupportsLocalProcessing reports whether objects on this disk can
	// be cheaply re-read and rewritten for image processing. Remote
	// backends return false so uploads skip the download/re-upload
	// round trip.
	SupportsLocalProcessing() bool
}

// Config holds the settings for one disk.
type Config struct {
	Name string `yaml:"name"` // disk identifier
	Type string `yaml:"type"` // local, s3, ftp, sftp

	// Local
	BasePath string `yaml:"base_path"`
	BaseURL  string `yaml:"base_url"` // public URL base; empty means the disk is private

	// S3-compatible object store
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"`
	UseSSL    bool   `yaml:"use_ssl"`

	// FTP / SFTP
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// SFTP host key verification. Exactly one must be set: a
	// known_hosts file to check the server key against, or an explicit
	// opt-out of verification.
	KnownHostsFile     string `yaml:"known_hosts_file"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// NewDriver creates a driver for one disk based on its configured type.
func NewDriver(cfg Config) (Driver, error) {
	switch cfg.Type {
	case "local":
		return NewLocalDriver(cfg)
	case "s3":
		return NewS3Driver(cfg)
	case "ftp":
		return NewFTPDriver(cfg)
	case "sftp":
		return NewSFTPDriver(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// Registry holds the configured disks by name.
type Registry struct {
	disks map[string]Driver
}

// NewRegistry builds drivers for every configured disk.
func NewRegistry(configs []Config) (*Registry, error) {
	r := &Registry{disks: make(map[string]Driver, len(configs))}
	for _, cfg := range configs {
		if cfg.Name == "" {
			return nil, fmt.Errorf("storage: disk with type %s has no name", cfg.Type)
		}
		if _, dup := r.disks[cfg.Name]; dup {
			return nil, fmt.Errorf("storage: duplicate disk name %q", cfg.Name)
		}
		d, err := NewDriver(cfg)
		if err != nil {
			return nil, fmt.Errorf("storage: disk %q: %w", cfg.Name, err)
		}
		r.disks[cfg.Name] = d
	}
	return r, nil
}

// Register adds a pre-built driver. Used by tests and custom wiring.
func (r *Registry) Register(d Driver) {
	if r.disks == nil {
		r.disks = make(map[string]Driver)
	}
	r.disks[d.Name()] = d
}

// Disk returns the driver registered under name.
func (r *Registry) Disk(name string) (Driver, bool) {
	d, ok := r.disks[name]
	return d, ok
}

// Names returns the registered disk names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.disks))
	for name := range r.disks {
		names = append(names, name)
	}
	return names
}

package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDriver stores objects over SFTP. One SSH session is held for the
// driver's lifetime; the sftp client is safe for concurrent use.
type SFTPDriver struct {
	name     string
	client   *sftp.Client
	sshConn  *ssh.Client
	basePath string
	baseURL  string
}

// NewSFTPDriver dials the server and opens the sftp subsystem.
func NewSFTPDriver(cfg Config) (*SFTPDriver, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required for sftp storage")
	}
	port := cfg.Port
	if port == 0 {
		port = 22
	}

	hostKeyCallback, err := sftpHostKeyCallback(cfg)
	if err != nil {
		return nil, err
	}

	sshCfg := &ssh.ClientConfig{
		User: cfg.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(cfg.Password),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         15 * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, port)
	sshConn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return nil, fmt.Errorf("sftp: dial %s: %w", addr, err)
	}

	client, err := sftp.NewClient(sshConn)
	if err != nil {
		sshConn.Close()
		return nil, fmt.Errorf("sftp: open subsystem: %w", err)
	}

	return &SFTPDriver{
		name:     cfg.Name,
		client:   client,
		sshConn:  sshConn,
		basePath: strings.Trim(cfg.BasePath, "/"),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

func (d *SFTPDriver) Name() string { return d.name }

// Store writes the object, creating intermediate directories.
func (d *SFTPDriver) Store(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error) {
	relPath := path.Join(folder, name)
	remote := d.remotePath(relPath)

	if err := d.client.MkdirAll(path.Dir(remote)); err != nil {
		return "", fmt.Errorf("mkdir %q: %w", path.Dir(remote), err)
	}

	f, err := d.client.Create(remote)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", remote, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, reader); err != nil {
		d.client.Remove(remote)
		return "", fmt.Errorf("write %q: %w", remote, err)
	}
	return relPath, nil
}

// SetVisibility: remote POSIX modes do not express URL reachability.
func (d *SFTPDriver) SetVisibility(ctx context.Context, relPath string, visibility Visibility) error {
	return ErrUnsupported
}

// Delete removes the object; missing paths report false without error.
func (d *SFTPDriver) Delete(ctx context.Context, relPath string) (bool, error) {
	if err := d.client.Remove(d.remotePath(relPath)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("remove %q: %w", relPath, err)
	}
	return true, nil
}

// Open returns a read stream for the object.
func (d *SFTPDriver) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	f, err := d.client.Open(d.remotePath(relPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open %q: %w", relPath, err)
	}
	return f, nil
}

// PublicURL is present only when a serving base URL is configured.
func (d *SFTPDriver) PublicURL(relPath string) (string, bool) {
	if d.baseURL == "" {
		return "", false
	}
	return d.baseURL + "/" + relPath, true
}

// TemporaryURL: SFTP has no URL signing.
func (d *SFTPDriver) TemporaryURL(ctx context.Context, relPath string, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

// SupportsLocalProcessing: remote backend, processing skipped.
func (d *SFTPDriver) SupportsLocalProcessing() bool { return false }

// Close releases the SSH session.
func (d *SFTPDriver) Close() error {
	d.client.Close()
	return d.sshConn.Close()
}

// sftpHostKeyCallback resolves host key verification from config. The
// server key is checked against the configured known_hosts file;
// skipping verification must be opted into explicitly.
func sftpHostKeyCallback(cfg Config) (ssh.HostKeyCallback, error) {
	if cfg.KnownHostsFile != "" {
		cb, err := knownhosts.New(cfg.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("sftp: load known_hosts %q: %w", cfg.KnownHostsFile, err)
		}
		return cb, nil
	}
	if cfg.InsecureSkipVerify {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	return nil, fmt.Errorf("sftp: known_hosts_file is required unless insecure_skip_verify is set")
}

func (d *SFTPDriver) remotePath(relPath string) string {
	if d.basePath == "" {
		return relPath
	}
	return d.basePath + "/" + relPath
}

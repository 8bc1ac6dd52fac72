package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/textproto"
	"path"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"
)

// FTPDriver stores objects on a plain FTP server. FTP connections are
// stateful and not safe for concurrent use, so the driver dials per
// operation instead of holding one connection.
type FTPDriver struct {
	name     string
	addr     string
	username string
	password string
	basePath string
	baseURL  string
}

// NewFTPDriver validates the configuration and probes the server once.
func NewFTPDriver(cfg Config) (*FTPDriver, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("host is required for ftp storage")
	}
	port := cfg.Port
	if port == 0 {
		port = 21
	}

	d := &FTPDriver{
		name:     cfg.Name,
		addr:     fmt.Sprintf("%s:%d", cfg.Host, port),
		username: cfg.Username,
		password: cfg.Password,
		basePath: strings.Trim(cfg.BasePath, "/"),
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
	}

	conn, err := d.connect()
	if err != nil {
		return nil, fmt.Errorf("ftp: initial connection failed: %w", err)
	}
	conn.Quit()

	return d, nil
}

func (d *FTPDriver) Name() string { return d.name }

func (d *FTPDriver) connect() (*ftp.ServerConn, error) {
	conn, err := ftp.Dial(d.addr, ftp.DialWithTimeout(15*time.Second))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", d.addr, err)
	}
	if err := conn.Login(d.username, d.password); err != nil {
		conn.Quit()
		return nil, fmt.Errorf("login: %w", err)
	}
	return conn, nil
}

// Store uploads the object, creating intermediate directories as needed.
func (d *FTPDriver) Store(ctx context.Context, folder, name string, reader io.Reader, size int64, contentType string) (string, error) {
	conn, err := d.connect()
	if err != nil {
		return "", err
	}
	defer conn.Quit()

	relPath := path.Join(folder, name)
	remote := d.remotePath(relPath)

	mkdirs(conn, path.Dir(remote))

	if err := conn.Stor(remote, reader); err != nil {
		return "", fmt.Errorf("stor %q: %w", remote, err)
	}
	return relPath, nil
}

// SetVisibility: FTP has no per-object visibility.
func (d *FTPDriver) SetVisibility(ctx context.Context, relPath string, visibility Visibility) error {
	return ErrUnsupported
}

// Delete removes the object; a 550 from the server means it was already
// gone.
func (d *FTPDriver) Delete(ctx context.Context, relPath string) (bool, error) {
	conn, err := d.connect()
	if err != nil {
		return false, err
	}
	defer conn.Quit()

	if err := conn.Delete(d.remotePath(relPath)); err != nil {
		if isFTPNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete %q: %w", relPath, err)
	}
	return true, nil
}

// Open retrieves the object as a stream. The connection is tied to the
// returned reader and closed with it.
func (d *FTPDriver) Open(ctx context.Context, relPath string) (io.ReadCloser, error) {
	conn, err := d.connect()
	if err != nil {
		return nil, err
	}

	resp, err := conn.Retr(d.remotePath(relPath))
	if err != nil {
		conn.Quit()
		if isFTPNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("retr %q: %w", relPath, err)
	}

	return &ftpReadCloser{resp: resp, conn: conn}, nil
}

// PublicURL is present only when a serving base URL is configured in
// front of the FTP tree.
func (d *FTPDriver) PublicURL(relPath string) (string, bool) {
	if d.baseURL == "" {
		return "", false
	}
	return d.baseURL + "/" + relPath, true
}

// TemporaryURL: FTP has no URL signing.
func (d *FTPDriver) TemporaryURL(ctx context.Context, relPath string, expiry time.Duration) (string, error) {
	return "", ErrUnsupported
}

// SupportsLocalProcessing: remote backend, processing skipped.
func (d *FTPDriver) SupportsLocalProcessing() bool { return false }

func (d *FTPDriver) remotePath(relPath string) string {
	if d.basePath == "" {
		return relPath
	}
	return d.basePath + "/" + relPath
}

// mkdirs creates every missing path segment. Servers answer 550 for
// directories that already exist, which is fine.
func mkdirs(conn *ftp.ServerConn, dir string) {
	if dir == "." || dir == "/" || dir == "" {
		return
	}
	var prefix string
	for _, seg := range strings.Split(strings.Trim(dir, "/"), "/") {
		prefix = path.Join(prefix, seg)
		_ = conn.MakeDir(prefix)
	}
}

func isFTPNotFound(err error) bool {
	var proto *textproto.Error
	if errors.As(err, &proto) {
		return proto.Code == ftp.StatusFileUnavailable
	}
	return false
}

// ftpReadCloser couples the data stream with its owning connection.
type ftpReadCloser struct {
	resp *ftp.Response
	conn *ftp.ServerConn
}

func (r *ftpReadCloser) Read(p []byte) (int, error) { return r.resp.Read(p) }

func (r *ftpReadCloser) Close() error {
	err := r.resp.Close()
	r.conn.Quit()
	return err
}

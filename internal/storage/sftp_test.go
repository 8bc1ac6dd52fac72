package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSFTPHostKeyRequiresConfig(t *testing.T) {
	_, err := NewSFTPDriver(Config{Name: "sftp", Type: "sftp", Host: "sftp.example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "known_hosts_file")
}

func TestSFTPHostKeyFromKnownHosts(t *testing.T) {
	// knownhosts parses the file at construction time, so a good file
	// yields a callback without touching the network.
	path := filepath.Join(t.TempDir(), "known_hosts")
	line := "sftp.example.com ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIGJl43zbYO9A0L2cMkmyUJsb5PeVHrMQyNz5U2kkbM2O\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

	cb, err := sftpHostKeyCallback(Config{KnownHostsFile: path})
	require.NoError(t, err)
	assert.NotNil(t, cb)
}

func TestSFTPHostKeyMissingKnownHostsFile(t *testing.T) {
	_, err := sftpHostKeyCallback(Config{KnownHostsFile: filepath.Join(t.TempDir(), "absent")})
	assert.Error(t, err)
}

func TestSFTPHostKeyInsecureOptIn(t *testing.T) {
	cb, err := sftpHostKeyCallback(Config{InsecureSkipVerify: true})
	require.NoError(t, err)
	assert.NotNil(t, cb)
}

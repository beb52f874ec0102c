package backup

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/pkg/sftp"
	"github.com/yourusername/backup-manager/internal/config"
	xssh "golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// SFTPDestination copies archives to a remote SFTP server
type SFTPDestination struct {
	cfg        *config.DestinationConfig
	sshClient  *xssh.Client
	sftpClient *sftp.Client
}

// NewSFTPDestination creates a new SFTP destination and connects immediately
func NewSFTPDestination(cfg *config.DestinationConfig) (*SFTPDestination, error) {
	dest := &SFTPDestination{cfg: cfg}
	if err := dest.connect(); err != nil {
		return nil, err
	}
	return dest, nil
}

func (sd *SFTPDestination) connect() error {
	knownHostsPath := sd.cfg.KnownHostsPath
	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to resolve home directory: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}

	hostKeyCallback, err := newHostKeyCallback(knownHostsPath, sd.cfg.TrustOnFirstUse)
	if err != nil {
		return fmt.Errorf("failed to configure host key verification: %w", err)
	}

	sshConfig := &xssh.ClientConfig{
		User:            sd.cfg.SFTPUsername,
		HostKeyCallback: hostKeyCallback,
		Timeout:         30 * time.Second,
	}

	if sd.cfg.SFTPKeyPath != "" {
		keyData, err := os.ReadFile(sd.cfg.SFTPKeyPath)
		if err != nil {
			return fmt.Errorf("failed to read SSH key: %w", err)
		}
		signer, err := xssh.ParsePrivateKey(keyData)
		if err != nil {
			return fmt.Errorf("failed to parse SSH key: %w", err)
		}
		sshConfig.Auth = []xssh.AuthMethod{xssh.PublicKeys(signer)}
	} else if sd.cfg.SFTPPassword != "" {
		sshConfig.Auth = []xssh.AuthMethod{xssh.Password(sd.cfg.SFTPPassword)}
	} else {
		return fmt.Errorf("no authentication method provided for SFTP")
	}

	addr := fmt.Sprintf("%s:%d", sd.cfg.SFTPHost, sd.cfg.SFTPPort)
	log.Printf("[SFTPDest] Connecting to %s", addr)

	sshClient, err := xssh.Dial("tcp", addr, sshConfig)
	if err != nil {
		return fmt.Errorf("failed to connect to SSH server: %w", err)
	}
	sd.sshClient = sshClient

	sftpClient, err := sftp.NewClient(sshClient,
		sftp.MaxPacketUnchecked(131072),
		sftp.UseConcurrentWrites(true),
	)
	if err != nil {
		sshClient.Close()
		return fmt.Errorf("failed to create SFTP client: %w", err)
	}
	sd.sftpClient = sftpClient

	if err := sd.sftpClient.MkdirAll(sd.cfg.Path); err != nil {
		sd.Close()
		return fmt.Errorf("failed to create remote directory: %w", err)
	}

	return nil
}

// Close closes the SFTP and SSH connections
func (sd *SFTPDestination) Close() error {
	if sd.sftpClient != nil {
		sd.sftpClient.Close()
	}
	if sd.sshClient != nil {
		sd.sshClient.Close()
	}
	return nil
}

// Upload uploads an archive to the SFTP destination
func (sd *SFTPDestination) Upload(filename string, reader io.Reader, sizeBytes int64) error {
	destPath := path.Join(sd.cfg.Path, filename)
	log.Printf("[SFTPDest] Uploading %s to %s (%d bytes)", filename, destPath, sizeBytes)

	file, err := sd.sftpClient.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create remote file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		sd.sftpClient.Remove(destPath)
		return fmt.Errorf("failed to write remote file: %w", err)
	}

	if written != sizeBytes {
		sd.sftpClient.Remove(destPath)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", sizeBytes, written)
	}

	return nil
}

// GetType returns the destination type
func (sd *SFTPDestination) GetType() string {
	return "sftp"
}

// newHostKeyCallback verifies host keys against a known_hosts file,
// optionally recording unknown hosts on first contact.
func newHostKeyCallback(knownHostsPath string, trustOnFirstUse bool) (xssh.HostKeyCallback, error) {
	if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
		return nil, fmt.Errorf("failed to create known_hosts directory: %w", err)
	}
	if f, err := os.OpenFile(knownHostsPath, os.O_CREATE|os.O_WRONLY, 0600); err == nil {
		f.Close()
	}

	verify, err := knownhosts.New(knownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts: %w", err)
	}

	return func(hostname string, remote net.Addr, key xssh.PublicKey) error {
		err := verify(hostname, remote, key)
		if err == nil {
			return nil
		}

		var keyErr *knownhosts.KeyError
		if trustOnFirstUse && errors.As(err, &keyErr) && len(keyErr.Want) == 0 {
			return appendKnownHost(knownHostsPath, hostname, key)
		}
		return err
	}, nil
}

func appendKnownHost(knownHostsPath, hostname string, key xssh.PublicKey) error {
	f, err := os.OpenFile(knownHostsPath, os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open known_hosts: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{hostname}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}

	log.Printf("[SFTPDest] Recorded new host key for %s", hostname)
	return nil
}

package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	PolicyTOFU     = "tofu"
	PolicyInsecure = "insecure"
	PolicyStrict   = "strict"
)

// HostKeyCallback builds the host verification policy. tofu accepts and
// records unknown hosts but rejects changed keys; strict only accepts hosts
// already in knownHostsPath; insecure accepts everything.
func HostKeyCallback(policy, knownHostsPath string) (ssh.HostKeyCallback, error) {
	switch policy {
	case PolicyInsecure:
		return ssh.InsecureIgnoreHostKey(), nil
	case PolicyStrict, PolicyTOFU, "":
	default:
		return nil, fmt.Errorf("unknown host key policy %q", policy)
	}

	if knownHostsPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		knownHostsPath = filepath.Join(home, ".ssh", "known_hosts")
	}

	if policy == PolicyStrict {
		callback, err := knownhosts.New(knownHostsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts: %w", err)
		}
		return callback, nil
	}

	t := &tofu{path: knownHostsPath}
	return t.check, nil
}

type tofu struct {
	mu   sync.Mutex
	path string
}

func (t *tofu) check(hostname string, remote net.Addr, key ssh.PublicKey) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.ensureFile(); err != nil {
		return err
	}

	known, err := knownhosts.New(t.path)
	if err != nil {
		return fmt.Errorf("failed to load known hosts: %w", err)
	}

	err = known(hostname, remote, key)
	if err == nil {
		return nil
	}

	var keyErr *knownhosts.KeyError
	if !errors.As(err, &keyErr) || len(keyErr.Want) > 0 {
		return err
	}

	return t.remember(hostname, key)
}

func (t *tofu) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o700); err != nil {
		return fmt.Errorf("failed to create known hosts directory: %w", err)
	}
	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_RDONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create known hosts file: %w", err)
	}
	return f.Close()
}

func (t *tofu) remember(hostname string, key ssh.PublicKey) error {
	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open known hosts file: %w", err)
	}
	defer f.Close()

	line := knownhosts.Line([]string{knownhosts.Normalize(hostname)}, key)
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to record host key: %w", err)
	}
	return nil
}

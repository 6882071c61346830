package transport

import (
	"crypto/ed25519"
	"crypto/rand"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/ssh"
)

func newHostKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	key, err := ssh.NewPublicKey(pub)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

func TestTOFUHostKeyCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ssh", "known_hosts")
	callback, err := HostKeyCallback(PolicyTOFU, path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
	first := newHostKey(t)

	if err := callback("testbed:22", remote, first); err != nil {
		t.Fatalf("first use should be accepted, got %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "testbed ") {
		t.Errorf("expected host recorded in known_hosts, got %q", data)
	}

	if err := callback("testbed:22", remote, first); err != nil {
		t.Fatalf("known key should be accepted, got %v", err)
	}

	if err := callback("testbed:22", remote, newHostKey(t)); err == nil {
		t.Fatal("changed key should be rejected")
	}
}

func TestStrictHostKeyCallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_hosts")
	key := newHostKey(t)
	if err := os.WriteFile(path, []byte("testbed "+string(ssh.MarshalAuthorizedKey(key))), 0o600); err != nil {
		t.Fatal(err)
	}

	callback, err := HostKeyCallback(PolicyStrict, path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	remote := &net.TCPAddr{IP: net.ParseIP("10.0.0.5"), Port: 22}
	if err := callback("testbed:22", remote, key); err != nil {
		t.Fatalf("known key should be accepted, got %v", err)
	}
	if err := callback("other:22", remote, key); err == nil {
		t.Fatal("unknown host should be rejected")
	}
}

func TestHostKeyCallbackUnknownPolicy(t *testing.T) {
	if _, err := HostKeyCallback("sometimes", ""); err == nil {
		t.Fatal("expected error for unknown policy, got nil")
	}
}

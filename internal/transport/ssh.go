package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/speedwagon-io/flexlab/internal/config"
)

var ErrNoAuthMethod = errors.New("no password given and no private key found")

type SSHExecutor struct {
	log             *slog.Logger
	addr            string
	timeout         time.Duration
	privateKeyPath  string
	hostKeyCallback ssh.HostKeyCallback
}

func NewSSHExecutor(log *slog.Logger, cfg *config.TestbedConfig) (*SSHExecutor, error) {
	callback, err := HostKeyCallback(cfg.HostKeyPolicy, cfg.KnownHostsPath)
	if err != nil {
		return nil, err
	}

	return &SSHExecutor{
		log:             log,
		addr:            net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		timeout:         cfg.Timeout,
		privateKeyPath:  cfg.PrivateKeyPath,
		hostKeyCallback: callback,
	}, nil
}

func (e *SSHExecutor) Execute(ctx context.Context, creds config.Credentials, command string) (*Output, error) {
	client, err := e.dial(ctx, creds)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	done := make(chan error, 1)
	go func() {
		done <- session.Run(command)
	}()

	select {
	case <-ctx.Done():
		client.Close()
		return nil, ctx.Err()
	case err = <-done:
	}

	out := &Output{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}

	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		out.ExitStatus = exitErr.ExitStatus()
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to run command: %w", err)
	}

	e.log.Debug("command executed",
		slog.String("addr", e.addr),
		slog.Int("stdout_bytes", stdout.Len()),
		slog.Int("stderr_bytes", stderr.Len()),
	)

	return out, nil
}

func (e *SSHExecutor) dial(ctx context.Context, creds config.Credentials) (*ssh.Client, error) {
	connErr := func(err error) error {
		return &ConnectionError{User: creds.User, Host: e.addr, Err: err}
	}

	methods, err := e.authMethods(creds)
	if err != nil {
		return nil, connErr(err)
	}

	clientCfg := &ssh.ClientConfig{
		User:            creds.User,
		Auth:            methods,
		HostKeyCallback: e.hostKeyCallback,
		Timeout:         e.timeout,
	}

	dialer := net.Dialer{Timeout: e.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", e.addr)
	if err != nil {
		return nil, connErr(err)
	}

	if e.timeout > 0 {
		conn.SetDeadline(time.Now().Add(e.timeout))
	}

	c, chans, reqs, err := ssh.NewClientConn(conn, e.addr, clientCfg)
	if err != nil {
		conn.Close()
		return nil, connErr(err)
	}
	conn.SetDeadline(time.Time{})

	return ssh.NewClient(c, chans, reqs), nil
}

// authMethods uses the password when one is set, otherwise a private key.
func (e *SSHExecutor) authMethods(creds config.Credentials) ([]ssh.AuthMethod, error) {
	if creds.Password != "" {
		password := creds.Password
		return []ssh.AuthMethod{
			ssh.Password(password),
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		}, nil
	}

	path, err := e.keyPath()
	if err != nil {
		return nil, err
	}

	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(pem)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}

	return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
}

func (e *SSHExecutor) keyPath() (string, error) {
	if e.privateKeyPath != "" {
		return e.privateKeyPath, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", ErrNoAuthMethod
	}

	for _, name := range []string{"id_ed25519", "id_ecdsa", "id_rsa"} {
		path := filepath.Join(home, ".ssh", name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", ErrNoAuthMethod
}

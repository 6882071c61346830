package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"unicode"
)

const (
	DefaultCredentialsFile = ".flexlab.cfg"

	// UserPlaceholder in the username slot of a batch means "not given".
	UserPlaceholder = "user"
)

var ErrInvalidCredentialsFile = errors.New("credentials file does not contain a valid user and a valid password")

type Credentials struct {
	User     string
	Password string
}

// CredentialsPath returns configured, or ~/.flexlab.cfg when configured is empty.
func CredentialsPath(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, DefaultCredentialsFile), nil
}

// LoadCredentialsFile returns nil and no error when the file does not exist.
func LoadCredentialsFile(path string) (*Credentials, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open credentials file: %w", err)
	}
	defer f.Close()

	creds, err := ParseCredentialsFile(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return creds, nil
}

// ParseCredentialsFile parses "user=<name>;password=<password>". Keys are
// matched case-insensitively with all whitespace removed.
func ParseCredentialsFile(r io.Reader) (*Credentials, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var tokens []string
	for _, field := range strings.Split(string(raw), ";") {
		tokens = append(tokens, strings.Split(field, "=")...)
	}

	if len(tokens) < 4 || normalizeKey(tokens[0]) != "user" || normalizeKey(tokens[2]) != "password" {
		return nil, ErrInvalidCredentialsFile
	}

	return &Credentials{
		User:     strings.TrimSpace(tokens[1]),
		Password: strings.TrimSpace(tokens[3]),
	}, nil
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// ResolveCredentials picks the username from the explicit value, then the
// credentials file, then the OS user. The password is the explicit value,
// else the file password when the resolved user is the file user, else empty.
// file may be nil; osUser is only consulted when needed.
func ResolveCredentials(explicitUser, explicitPassword string, file *Credentials, osUser func() (string, error)) (Credentials, error) {
	var creds Credentials

	switch {
	case explicitUser != "" && !strings.EqualFold(explicitUser, UserPlaceholder):
		creds.User = explicitUser
	case file != nil:
		creds.User = file.User
	default:
		if osUser == nil {
			osUser = CurrentUser
		}
		name, err := osUser()
		if err != nil {
			return Credentials{}, fmt.Errorf("failed to determine username: %w", err)
		}
		creds.User = name
	}

	switch {
	case explicitPassword != "":
		creds.Password = explicitPassword
	case file != nil && creds.User == file.User:
		creds.Password = file.Password
	}

	return creds, nil
}

func CurrentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", err
	}
	return u.Username, nil
}

// CredentialSource resolves batch credentials against the credentials file
// at Path (default ~/.flexlab.cfg). The file is re-read on every call.
type CredentialSource struct {
	Path   string
	OSUser func() (string, error)
}

func NewCredentialSource(cfg CredentialsConfig) *CredentialSource {
	return &CredentialSource{Path: cfg.Path, OSUser: CurrentUser}
}

func (s *CredentialSource) Resolve(user, password string) (Credentials, error) {
	path, err := CredentialsPath(s.Path)
	if err != nil {
		return Credentials{}, err
	}

	file, err := LoadCredentialsFile(path)
	if err != nil {
		return Credentials{}, err
	}

	return ResolveCredentials(user, password, file, s.OSUser)
}

package transport

import (
	"context"
	"fmt"

	"github.com/speedwagon-io/flexlab/internal/config"
)

// Output is what a remote command wrote to each stream.
type Output struct {
	Stdout     []byte
	Stderr     []byte
	ExitStatus int
}

// Executor runs one command on the testbed controller. Every call
// authenticates a fresh session and tears it down before returning.
type Executor interface {
	Execute(ctx context.Context, creds config.Credentials, command string) (*Output, error)
}

type ConnectionError struct {
	User string
	Host string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%v. Connection cannot be established with %s as user %q", e.Err, e.Host, e.User)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

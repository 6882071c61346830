package telemetry

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/model"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

type fakeExecutor struct {
	mu       sync.Mutex
	commands []string
	creds    []config.Credentials
	replies  map[string]*transport.Output
	err      error
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{replies: make(map[string]*transport.Output)}
}

// reply makes command answer with a well-formed envelope.
func (f *fakeExecutor) reply(command, name string, value float64, level, msg string) {
	f.replies[command] = &transport.Output{
		Stdout: []byte(fmt.Sprintf(`{"sensname":%q,"sensvalue":%v,"logger":{"msg":%q,"level":%q}}`, name, value, msg, level)),
	}
}

func (f *fakeExecutor) Execute(_ context.Context, creds config.Credentials, command string) (*transport.Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.commands = append(f.commands, command)
	f.creds = append(f.creds, creds)

	if f.err != nil {
		return nil, f.err
	}
	if out, ok := f.replies[command]; ok {
		return out, nil
	}
	// Echo SET values back by default.
	if strings.HasPrefix(command, "SETDAQ:") {
		parts := strings.Split(command, ":")
		return &transport.Output{
			Stdout: []byte(fmt.Sprintf(`{"sensname":%q,"sensvalue":%s,"logger":{"msg":"Success!","level":"INFO"}}`, parts[1], parts[2])),
		}, nil
	}
	return &transport.Output{Stderr: []byte("unknown channel")}, nil
}

type fakeRecorder struct {
	exchanges []*model.Exchange
	err       error
}

func (r *fakeRecorder) Record(_ context.Context, ex *model.Exchange) error {
	r.exchanges = append(r.exchanges, ex)
	return r.err
}

type staticResolver struct {
	creds config.Credentials
	err   error
	calls int
}

func (r *staticResolver) Resolve(user, password string) (config.Credentials, error) {
	r.calls++
	if r.err != nil {
		return config.Credentials{}, r.err
	}
	creds := r.creds
	if user != "" && user != config.UserPlaceholder {
		creds.User = user
	}
	if password != "" {
		creds.Password = password
	}
	return creds, nil
}

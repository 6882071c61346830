package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/lib/logger/sl"
	"github.com/speedwagon-io/flexlab/internal/model"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

// Recorder keeps a record of every exchange, successful or not.
type Recorder interface {
	Record(ctx context.Context, ex *model.Exchange) error
}

// Client performs channel reads and writes with one set of credentials.
type Client struct {
	log      *slog.Logger
	exec     transport.Executor
	creds    config.Credentials
	recorder Recorder
}

func NewClient(log *slog.Logger, exec transport.Executor, creds config.Credentials, recorder Recorder) *Client {
	return &Client{
		log:      log,
		exec:     exec,
		creds:    creds,
		recorder: recorder,
	}
}

func (c *Client) User() string {
	return c.creds.User
}

// Read returns the controller's current value for channel.
func (c *Client) Read(ctx context.Context, channel string) (float64, error) {
	env, err := c.Exchange(ctx, model.GetCommand(channel))
	if err != nil {
		return 0, err
	}
	return env.SensValue, nil
}

// Write sets channel to value and returns the value the controller echoed.
// The echo is not required to equal value.
func (c *Client) Write(ctx context.Context, channel string, value float64) (float64, error) {
	env, err := c.Exchange(ctx, model.SetCommand(channel, value))
	if err != nil {
		return 0, err
	}
	return env.SensValue, nil
}

// Exchange runs cmd and returns the decoded envelope. On RemoteReportedError
// the envelope is returned alongside the error.
func (c *Client) Exchange(ctx context.Context, cmd model.Command) (*model.Envelope, error) {
	ex := model.NewExchange(cmd, c.creds.User)

	env, err := c.exchange(ctx, cmd)
	ex.Complete(env, err)
	c.record(ctx, ex)

	return env, err
}

func (c *Client) exchange(ctx context.Context, cmd model.Command) (*model.Envelope, error) {
	command := cmd.String()
	log := c.log.With(slog.String("channel", cmd.Channel), slog.String("command", command))

	out, err := c.exec.Execute(ctx, c.creds, command)
	if err != nil {
		return nil, fmt.Errorf("%w. Command: %s cannot be executed", err, command)
	}

	if len(out.Stderr) != 0 || out.ExitStatus != 0 {
		return nil, &RemoteExecutionError{
			Direction:  cmd.Direction,
			Channel:    cmd.Channel,
			Command:    command,
			Stderr:     strings.TrimSpace(string(out.Stderr)),
			ExitStatus: out.ExitStatus,
		}
	}

	env, err := model.DecodeEnvelope(out.Stdout)
	if err != nil {
		return nil, &MalformedResponseError{
			Channel: cmd.Channel,
			Command: command,
			Body:    string(out.Stdout),
			Err:     err,
		}
	}

	if env.IsError() {
		return env, &RemoteReportedError{
			Channel:  cmd.Channel,
			SensName: env.SensName,
			Message:  env.Logger.Msg,
			Level:    env.Logger.Level,
		}
	}

	if env.IsWarning() {
		log.Warn("controller reported a warning", slog.String("msg", env.Logger.Msg))
	}

	log.Debug("exchange completed",
		slog.String("sensname", env.SensName),
		slog.Float64("sensvalue", env.SensValue),
		slog.String("level", env.Logger.Level),
	)

	return env, nil
}

func (c *Client) record(ctx context.Context, ex *model.Exchange) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.Record(ctx, ex); err != nil {
		c.log.Error("failed to record exchange",
			slog.String("id", ex.ID),
			slog.String("channel", ex.Channel),
			sl.Err(err),
		)
	}
}

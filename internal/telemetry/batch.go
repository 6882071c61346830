package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/speedwagon-io/flexlab/internal/config"
	"github.com/speedwagon-io/flexlab/internal/model"
	"github.com/speedwagon-io/flexlab/internal/transport"
)

type CredentialResolver interface {
	Resolve(user, password string) (config.Credentials, error)
}

// Result is one accumulated exchange of a batch.
type Result struct {
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Message string  `json:"message"`
	Level   string  `json:"level"`
}

type BatchResult struct {
	Writes []Result `json:"writes"`
	Reads  []Result `json:"reads"`
}

// Values is what a batch hands back to its caller: the single read value
// when exactly one channel was read, the ordered read values otherwise.
func (r *BatchResult) Values() model.Values {
	if len(r.Reads) == 1 {
		return model.Scalar(r.Reads[0].Value)
	}
	vs := make([]float64, len(r.Reads))
	for i, res := range r.Reads {
		vs[i] = res.Value
	}
	return model.Vector(vs...)
}

// Service builds a Client per logical batch with freshly resolved credentials.
type Service struct {
	log      *slog.Logger
	exec     transport.Executor
	resolver CredentialResolver
	recorder Recorder
}

func NewService(log *slog.Logger, exec transport.Executor, resolver CredentialResolver, recorder Recorder) *Service {
	return &Service{
		log:      log,
		exec:     exec,
		resolver: resolver,
		recorder: recorder,
	}
}

// Client resolves user and password (either may be empty or the "user"
// placeholder) and returns a client bound to the result.
func (s *Service) Client(user, password string) (*Client, error) {
	creds, err := s.resolver.Resolve(user, password)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve credentials: %w", err)
	}
	return NewClient(s.log, s.exec, creds, s.recorder), nil
}

// Batch validates req, then writes every target and reads every channel in
// list order. The first failing exchange aborts the batch.
func (s *Service) Batch(ctx context.Context, req model.BatchRequest) (*BatchResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	client, err := s.Client(req.User(), req.Password())
	if err != nil {
		return nil, err
	}

	s.log.Info("running batch",
		slog.String("user", client.User()),
		slog.Int("writes", req.Values.Len()),
		slog.Int("reads", len(req.Read)),
	)

	result := &BatchResult{
		Writes: make([]Result, 0, req.Values.Len()),
		Reads:  make([]Result, 0, len(req.Read)),
	}

	for i, channel := range req.WriteTargets() {
		env, err := client.Exchange(ctx, model.SetCommand(channel, req.Values.At(i)))
		if err != nil {
			return nil, err
		}
		result.Writes = append(result.Writes, resultOf(env))
	}

	for _, channel := range req.Read {
		env, err := client.Exchange(ctx, model.GetCommand(channel))
		if err != nil {
			return nil, err
		}
		result.Reads = append(result.Reads, resultOf(env))
	}

	return result, nil
}

func resultOf(env *model.Envelope) Result {
	return Result{
		Name:    env.SensName,
		Value:   env.SensValue,
		Message: env.Logger.Msg,
		Level:   env.Logger.Level,
	}
}

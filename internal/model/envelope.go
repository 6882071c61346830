package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const LevelError = "error"

// Envelope is the controller's JSON reply to a command.
type Envelope struct {
	SensName  string  `json:"sensname"`
	SensValue float64 `json:"sensvalue"`
	Logger    Logger  `json:"logger"`
}

type Logger struct {
	Msg   string `json:"msg"`
	Level string `json:"level"`
}

// IsError reports whether the controller flagged the exchange as failed.
func (e *Envelope) IsError() bool {
	return strings.EqualFold(e.Logger.Level, LevelError)
}

func (e *Envelope) IsWarning() bool {
	return strings.EqualFold(e.Logger.Level, "warning") || strings.EqualFold(e.Logger.Level, "warn")
}

type wireEnvelope struct {
	SensName  *string     `json:"sensname"`
	SensValue *float64    `json:"sensvalue"`
	Logger    *wireLogger `json:"logger"`
}

type wireLogger struct {
	Msg   *string `json:"msg"`
	Level *string `json:"level"`
}

var ErrMissingField = errors.New("missing required field")

// DecodeEnvelope decodes and validates a controller reply. Every field is
// required and must have the expected JSON type.
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var w wireEnvelope
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}

	switch {
	case w.SensName == nil:
		return nil, fmt.Errorf("%w: sensname", ErrMissingField)
	case w.SensValue == nil:
		return nil, fmt.Errorf("%w: sensvalue", ErrMissingField)
	case w.Logger == nil:
		return nil, fmt.Errorf("%w: logger", ErrMissingField)
	case w.Logger.Msg == nil:
		return nil, fmt.Errorf("%w: logger.msg", ErrMissingField)
	case w.Logger.Level == nil:
		return nil, fmt.Errorf("%w: logger.level", ErrMissingField)
	}

	return &Envelope{
		SensName:  *w.SensName,
		SensValue: *w.SensValue,
		Logger: Logger{
			Msg:   *w.Logger.Msg,
			Level: *w.Logger.Level,
		},
	}, nil
}

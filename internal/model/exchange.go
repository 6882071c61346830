package model

import (
	"time"

	"github.com/google/uuid"
)

// Exchange is the journal record of one command/response round trip.
type Exchange struct {
	ID        string        `json:"id"`
	Direction Direction     `json:"direction"`
	Channel   string        `json:"channel"`
	Command   string        `json:"command"`
	Requested *float64      `json:"requested,omitempty"`
	SensName  string        `json:"sensname,omitempty"`
	Value     *float64      `json:"value,omitempty"`
	Message   string        `json:"message,omitempty"`
	Level     string        `json:"level,omitempty"`
	Error     string        `json:"error,omitempty"`
	User      string        `json:"user,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

func NewExchange(cmd Command, user string) *Exchange {
	ex := &Exchange{
		ID:        uuid.New().String(),
		Direction: cmd.Direction,
		Channel:   cmd.Channel,
		Command:   cmd.String(),
		User:      user,
		StartedAt: time.Now().UTC(),
	}
	if cmd.Direction == DirectionSet {
		v := cmd.Value
		ex.Requested = &v
	}
	return ex
}

// Complete fills the reply fields from env, err, or both.
func (ex *Exchange) Complete(env *Envelope, err error) {
	ex.Duration = time.Since(ex.StartedAt)
	if env != nil {
		v := env.SensValue
		ex.SensName = env.SensName
		ex.Value = &v
		ex.Message = env.Logger.Msg
		ex.Level = env.Logger.Level
	}
	if err != nil {
		ex.Error = err.Error()
	}
}

func (ex *Exchange) Failed() bool {
	return ex.Error != ""
}

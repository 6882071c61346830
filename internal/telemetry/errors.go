package telemetry

import (
	"fmt"

	"github.com/speedwagon-io/flexlab/internal/model"
)

// RemoteExecutionError means the controller wrote to stderr or exited
// with a non-zero status.
type RemoteExecutionError struct {
	Direction  model.Direction
	Channel    string
	Command    string
	Stderr     string
	ExitStatus int
}

func (e *RemoteExecutionError) Error() string {
	verb := "get"
	if e.Direction == model.DirectionSet {
		verb = "set"
	}
	msg := e.Stderr
	if msg == "" {
		msg = fmt.Sprintf("exit status %d", e.ExitStatus)
	}
	return fmt.Sprintf("An error occurs when trying to %s data for %s. The error message returned is: %s. Command: %s cannot be executed!",
		verb, e.Channel, msg, e.Command)
}

// MalformedResponseError means stdout was not a valid envelope.
type MalformedResponseError struct {
	Channel string
	Command string
	Body    string
	Err     error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("Malformed response to %s for %s: %v", e.Command, e.Channel, e.Err)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

// RemoteReportedError means the envelope parsed but its logger level is "error".
type RemoteReportedError struct {
	Channel  string
	SensName string
	Message  string
	Level    string
}

func (e *RemoteReportedError) Error() string {
	return fmt.Sprintf("ERROR: An error occurs when trying to retrieve data for %s. The logging message is: %s", e.Channel, e.Message)
}

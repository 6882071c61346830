package model

import (
	"errors"
	"fmt"
)

// BatchRequest bundles the writes and reads of one exchange session.
// Write holds the username and password in its first two slots followed by
// the channels to write; Values[i] is written to Write[i+2].
type BatchRequest struct {
	Values Values   `json:"values"`
	Write  []string `json:"write"`
	Read   []string `json:"read"`
}

const credentialSlots = 2

var ErrMissingCredentialSlots = errors.New("write list must start with a username and a password slot")

type CountMismatchError struct {
	Values  int
	Targets int
}

func (e *CountMismatchError) Error() string {
	return fmt.Sprintf("number of doubles to write: %d is not equal to number of strings to write: %d", e.Values, e.Targets)
}

func (r BatchRequest) Validate() error {
	if len(r.Write) < credentialSlots {
		return fmt.Errorf("%w: got %d entries", ErrMissingCredentialSlots, len(r.Write))
	}
	if r.Values.Len() != len(r.Write)-credentialSlots {
		return &CountMismatchError{Values: r.Values.Len(), Targets: len(r.Write) - credentialSlots}
	}
	return nil
}

func (r BatchRequest) User() string {
	if len(r.Write) < 1 {
		return ""
	}
	return r.Write[0]
}

func (r BatchRequest) Password() string {
	if len(r.Write) < 2 {
		return ""
	}
	return r.Write[1]
}

func (r BatchRequest) WriteTargets() []string {
	if len(r.Write) <= credentialSlots {
		return nil
	}
	return r.Write[credentialSlots:]
}

package model

import (
	"math"
	"strconv"
	"strings"
)

type Direction string

const (
	DirectionGet Direction = "GET"
	DirectionSet Direction = "SET"
)

const (
	getPrefix = "GETDAQ"
	setPrefix = "SETDAQ"
)

// Command is a single request to the testbed controller.
type Command struct {
	Direction Direction
	Channel   string
	Value     float64
}

func GetCommand(channel string) Command {
	return Command{Direction: DirectionGet, Channel: channel}
}

func SetCommand(channel string, value float64) Command {
	return Command{Direction: DirectionSet, Channel: channel, Value: value}
}

// String renders the command line sent to the controller:
// GETDAQ:<channel> or SETDAQ:<channel>:<value>.
func (c Command) String() string {
	if c.Direction == DirectionSet {
		return setPrefix + ":" + c.Channel + ":" + FormatValue(c.Value)
	}
	return getPrefix + ":" + c.Channel
}

// FormatValue renders v the way the controller parses numbers: shortest
// round-trip digits, integral values keep a trailing ".0", and very large or
// very small magnitudes use exponent notation (1e+20, 1e-05).
func FormatValue(v float64) string {
	switch {
	case math.IsNaN(v):
		return "nan"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}

	abs := math.Abs(v)
	if abs != 0 && (abs < 1e-4 || abs >= 1e16) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}

	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

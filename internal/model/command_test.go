package model

import (
	"math"
	"testing"
)

func TestCommandString(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want string
	}{
		{"get", GetCommand("X"), "GETDAQ:X"},
		{"set fractional", SetCommand("X", 3.5), "SETDAQ:X:3.5"},
		{"set integral", SetCommand("WattStopper.HS1--4126F--Dimmer Level-2", 10), "SETDAQ:WattStopper.HS1--4126F--Dimmer Level-2:10.0"},
		{"set negative", SetCommand("chan", -0.25), "SETDAQ:chan:-0.25"},
		{"set zero", SetCommand("chan", 0), "SETDAQ:chan:0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cmd.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1, "1.0"},
		{0.1, "0.1"},
		{123456789, "123456789.0"},
		{1e20, "1e+20"},
		{1e-5, "1e-05"},
		{0.0001, "0.0001"},
		{math.Inf(1), "inf"},
		{math.NaN(), "nan"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.in); got != tt.want {
			t.Errorf("FormatValue(%v): expected %q, got %q", tt.in, tt.want, got)
		}
	}
}

// Package outputfile computes statistics over the time series stored in a
// simulation result file.
package outputfile

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrVariableNotFound = errors.New("variable not found")
	ErrInsufficientData = errors.New("at least two samples are required")
	ErrZeroDuration     = errors.New("series spans zero time")
	ErrEmptySeries      = errors.New("series is empty")
	ErrLengthMismatch   = errors.New("time and value series differ in length")
)

// DataSource is an opened result file. Implementations return an error
// wrapping ErrVariableNotFound for unknown names.
type DataSource interface {
	Names() []string
	Data(name string) ([]float64, error)
	Abscissa(name string) ([]float64, error)
}

type Stats struct {
	Integral float64 `json:"integral"`
	Mean     float64 `json:"mean"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Reader queries src afresh on every call.
type Reader struct {
	src DataSource
}

func NewReader(src DataSource) *Reader {
	return &Reader{src: src}
}

func (r *Reader) Names() []string {
	return r.src.Names()
}

// Series returns the sample times and values of name.
func (r *Reader) Series(name string) ([]float64, []float64, error) {
	values, err := r.src.Data(name)
	if err != nil {
		return nil, nil, r.wrap(name, err)
	}
	times, err := r.src.Abscissa(name)
	if err != nil {
		return nil, nil, r.wrap(name, err)
	}
	if len(times) != len(values) {
		return nil, nil, fmt.Errorf("%s: %w (%d times, %d values)", name, ErrLengthMismatch, len(times), len(values))
	}
	return times, values, nil
}

// Integral integrates name over its full time span with the trapezoidal rule.
func (r *Reader) Integral(name string) (float64, error) {
	t, v, err := r.Series(name)
	if err != nil {
		return 0, err
	}
	return integral(name, t, v)
}

// Mean is the integral divided by the time span.
func (r *Reader) Mean(name string) (float64, error) {
	t, v, err := r.Series(name)
	if err != nil {
		return 0, err
	}
	return mean(name, t, v)
}

func (r *Reader) Min(name string) (float64, error) {
	_, v, err := r.Series(name)
	if err != nil {
		return 0, err
	}
	return minimum(name, v)
}

func (r *Reader) Max(name string) (float64, error) {
	_, v, err := r.Series(name)
	if err != nil {
		return 0, err
	}
	return maximum(name, v)
}

// Summary computes all four statistics from a single read of name.
func (r *Reader) Summary(name string) (Stats, error) {
	t, v, err := r.Series(name)
	if err != nil {
		return Stats{}, err
	}

	var s Stats
	if s.Integral, err = integral(name, t, v); err != nil {
		return Stats{}, err
	}
	if s.Mean, err = mean(name, t, v); err != nil {
		return Stats{}, err
	}
	if s.Min, err = minimum(name, v); err != nil {
		return Stats{}, err
	}
	if s.Max, err = maximum(name, v); err != nil {
		return Stats{}, err
	}
	return s, nil
}

func (r *Reader) wrap(name string, err error) error {
	if errors.Is(err, ErrVariableNotFound) {
		return err
	}
	return fmt.Errorf("failed to read %s: %w", name, err)
}

func integral(name string, t, v []float64) (float64, error) {
	if len(t) < 2 {
		return 0, fmt.Errorf("%s: %w, got %d", name, ErrInsufficientData, len(t))
	}
	var sum float64
	for i := 0; i < len(t)-1; i++ {
		sum += (t[i+1] - t[i]) * (v[i+1] + v[i]) / 2
	}
	return sum, nil
}

func mean(name string, t, v []float64) (float64, error) {
	total, err := integral(name, t, v)
	if err != nil {
		return 0, err
	}
	lo, hi := t[0], t[0]
	for _, x := range t[1:] {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	if hi == lo {
		return 0, fmt.Errorf("%s: %w", name, ErrZeroDuration)
	}
	return total / (hi - lo), nil
}

func minimum(name string, v []float64) (float64, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrEmptySeries)
	}
	m := v[0]
	for _, x := range v[1:] {
		if x < m {
			m = x
		}
	}
	return m, nil
}

func maximum(name string, v []float64) (float64, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrEmptySeries)
	}
	m := v[0]
	for _, x := range v[1:] {
		if x > m {
			m = x
		}
	}
	return m, nil
}

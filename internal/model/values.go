package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Values is either a single scalar or an ordered vector of numbers. The
// caller picks the shape; nothing inspects types at runtime.
type Values struct {
	vals   []float64
	scalar bool
}

func Scalar(v float64) Values {
	return Values{vals: []float64{v}, scalar: true}
}

func Vector(vs ...float64) Values {
	out := make([]float64, len(vs))
	copy(out, vs)
	return Values{vals: out}
}

func (v Values) IsScalar() bool {
	return v.scalar
}

func (v Values) Len() int {
	return len(v.vals)
}

func (v Values) At(i int) float64 {
	return v.vals[i]
}

// Value returns the scalar. ok is false for vectors.
func (v Values) Value() (float64, bool) {
	if !v.scalar {
		return 0, false
	}
	return v.vals[0], true
}

func (v Values) Floats() []float64 {
	out := make([]float64, len(v.vals))
	copy(out, v.vals)
	return out
}

func (v Values) MarshalJSON() ([]byte, error) {
	if v.scalar {
		return json.Marshal(v.vals[0])
	}
	if v.vals == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.vals)
}

func (v *Values) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = Vector()
		return nil
	}
	if len(data) > 0 && data[0] == '[' {
		var vs []float64
		if err := json.Unmarshal(data, &vs); err != nil {
			return fmt.Errorf("failed to unmarshal values: %w", err)
		}
		*v = Vector(vs...)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to unmarshal value: %w", err)
	}
	*v = Scalar(f)
	return nil
}

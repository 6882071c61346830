// Package dymola reads simulation results written by Dymola and
// OpenModelica in the MAT v4 "Atrajectory" layout.
package dymola

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/speedwagon-io/flexlab/internal/outputfile"
)

type variable struct {
	description string
	block       int
	column      int
	sign        float64
}

// Result is a parsed result file. It implements outputfile.DataSource.
type Result struct {
	vars       map[string]variable
	blocks     map[int]*matrix
	transposed bool
	timeName   string
}

func Open(path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return res, nil
}

func Parse(r io.Reader) (*Result, error) {
	mats, err := readMatrices(r)
	if err != nil {
		return nil, err
	}

	for _, required := range []string{"Aclass", "name", "dataInfo"} {
		if _, ok := mats[required]; !ok {
			return nil, fmt.Errorf("%w: missing matrix %s", ErrUnsupportedFormat, required)
		}
	}

	aclass := mats["Aclass"].strings(false)
	if len(aclass) < 4 || aclass[0] != "Atrajectory" {
		return nil, fmt.Errorf("%w: not a trajectory file", ErrUnsupportedFormat)
	}

	res := &Result{
		vars:       make(map[string]variable),
		blocks:     make(map[int]*matrix),
		transposed: aclass[3] == "binTrans",
	}

	names := mats["name"].strings(res.transposed)

	descriptions := make([]string, len(names))
	if m, ok := mats["description"]; ok {
		copy(descriptions, m.strings(res.transposed))
	}

	info := mats["dataInfo"]
	entries, fields := info.cols, info.rows
	if !res.transposed {
		entries, fields = info.rows, info.cols
	}
	if fields < 2 || entries < len(names) {
		return nil, fmt.Errorf("%w: dataInfo is %dx%d for %d variables", ErrUnsupportedFormat, info.rows, info.cols, len(names))
	}

	for i, name := range names {
		var block, col float64
		if res.transposed {
			block, col = info.at(0, i), info.at(1, i)
		} else {
			block, col = info.at(i, 0), info.at(i, 1)
		}

		v := variable{
			description: descriptions[i],
			block:       int(block),
			column:      int(col),
			sign:        1,
		}
		if v.column < 0 {
			v.column = -v.column
			v.sign = -1
		}
		v.column--

		if v.block == 0 && res.timeName == "" {
			res.timeName = name
		}
		res.vars[name] = v
	}

	for b := 1; ; b++ {
		m, ok := mats[fmt.Sprintf("data_%d", b)]
		if !ok {
			break
		}
		res.blocks[b] = m
	}
	if len(res.blocks) == 0 {
		return nil, fmt.Errorf("%w: no data blocks", ErrUnsupportedFormat)
	}

	return res, nil
}

// Names returns all variable names in sorted order.
func (r *Result) Names() []string {
	out := make([]string, 0, len(r.vars))
	for name := range r.vars {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (r *Result) Description(name string) (string, error) {
	v, ok := r.vars[name]
	if !ok {
		return "", notFound(name)
	}
	return v.description, nil
}

// TimeName is the name of the abscissa variable, usually "Time".
func (r *Result) TimeName() string {
	return r.timeName
}

func (r *Result) Data(name string) ([]float64, error) {
	v, ok := r.vars[name]
	if !ok {
		return nil, notFound(name)
	}

	block, err := r.block(v.block)
	if err != nil {
		return nil, err
	}
	if v.column < 0 || v.column >= r.series(block) {
		return nil, fmt.Errorf("%w: %s points past block %d", ErrUnsupportedFormat, name, v.block)
	}

	out := r.vector(block, v.column)
	if v.sign < 0 {
		for i := range out {
			out[i] = -out[i]
		}
	}
	return out, nil
}

// Abscissa returns the time points at which name was sampled.
func (r *Result) Abscissa(name string) ([]float64, error) {
	v, ok := r.vars[name]
	if !ok {
		return nil, notFound(name)
	}

	block, err := r.block(v.block)
	if err != nil {
		return nil, err
	}
	if r.series(block) == 0 {
		return nil, fmt.Errorf("%w: empty data block for %s", ErrUnsupportedFormat, name)
	}
	return r.vector(block, 0), nil
}

// block resolves a dataInfo block number. Block 0 is the abscissa, which
// is stored as the first series of the trajectory block.
func (r *Result) block(b int) (*matrix, error) {
	if b == 0 {
		if m, ok := r.blocks[2]; ok {
			return m, nil
		}
		b = 1
	}
	m, ok := r.blocks[b]
	if !ok {
		return nil, fmt.Errorf("%w: missing data_%d", ErrUnsupportedFormat, b)
	}
	return m, nil
}

func (r *Result) series(m *matrix) int {
	if r.transposed {
		return m.rows
	}
	return m.cols
}

func (r *Result) vector(m *matrix, i int) []float64 {
	if r.transposed {
		return m.row(i)
	}
	return m.column(i)
}

func notFound(name string) error {
	return fmt.Errorf("%w: %s", outputfile.ErrVariableNotFound, name)
}

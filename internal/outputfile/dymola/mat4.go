package dymola

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
)

// MAT v4 type code MOPT: machine, order (always 0), precision, matrix type.
const (
	machineLittleEndian = 0
	machineBigEndian    = 1

	matrixFull = 0
	matrixText = 1
)

var precisionSize = map[int]int{
	0: 8, // float64
	1: 4, // float32
	2: 4, // int32
	3: 2, // int16
	4: 2, // uint16
	5: 1, // uint8
}

// maxMatrixBytes bounds a single matrix payload.
const maxMatrixBytes = 1 << 30

var ErrUnsupportedFormat = errors.New("unsupported MAT file")

// matrix is a real MAT v4 matrix, column-major.
type matrix struct {
	name string
	rows int
	cols int
	text bool
	data []float64
}

func (m *matrix) at(row, col int) float64 {
	return m.data[row+col*m.rows]
}

// row returns row i as a new slice.
func (m *matrix) row(i int) []float64 {
	out := make([]float64, m.cols)
	for j := range out {
		out[j] = m.at(i, j)
	}
	return out
}

// column returns column j as a new slice.
func (m *matrix) column(j int) []float64 {
	out := make([]float64, m.rows)
	copy(out, m.data[j*m.rows:(j+1)*m.rows])
	return out
}

// strings decodes a character matrix. byColumn selects whether each string
// is stored as a column (transposed layout) or a row.
func (m *matrix) strings(byColumn bool) []string {
	n, length := m.rows, m.cols
	if byColumn {
		n, length = m.cols, m.rows
	}

	out := make([]string, n)
	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.Reset()
		for k := 0; k < length; k++ {
			var c float64
			if byColumn {
				c = m.at(k, i)
			} else {
				c = m.at(i, k)
			}
			sb.WriteByte(byte(c))
		}
		out[i] = strings.TrimRight(sb.String(), " \x00")
	}
	return out
}

func readMatrices(r io.Reader) (map[string]*matrix, error) {
	br := bufio.NewReader(r)
	mats := make(map[string]*matrix)

	for {
		m, err := readMatrix(br)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		mats[m.name] = m
	}

	return mats, nil
}

func readMatrix(r io.Reader) (*matrix, error) {
	var hdr [20]byte
	n, err := io.ReadFull(r, hdr[:])
	if n == 0 && (err == io.EOF || err == io.ErrUnexpectedEOF) {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix header: %w", err)
	}

	order, typ, err := byteOrder(hdr[:4])
	if err != nil {
		return nil, err
	}

	rows := int(int32(order.Uint32(hdr[4:8])))
	cols := int(int32(order.Uint32(hdr[8:12])))
	imag := order.Uint32(hdr[12:16])
	nameLen := int(int32(order.Uint32(hdr[16:20])))

	if rows < 0 || cols < 0 || nameLen <= 0 {
		return nil, fmt.Errorf("%w: invalid matrix dimensions %dx%d", ErrUnsupportedFormat, rows, cols)
	}

	precision := (typ / 10) % 10
	kind := typ % 10
	if kind != matrixFull && kind != matrixText {
		return nil, fmt.Errorf("%w: matrix type %d", ErrUnsupportedFormat, kind)
	}
	size, ok := precisionSize[precision]
	if !ok {
		return nil, fmt.Errorf("%w: precision %d", ErrUnsupportedFormat, precision)
	}

	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return nil, fmt.Errorf("failed to read matrix name: %w", err)
	}

	m := &matrix{
		name: strings.TrimRight(string(name), "\x00"),
		rows: rows,
		cols: cols,
		text: kind == matrixText,
	}

	if cols > 0 && rows > maxMatrixBytes/size/cols {
		return nil, fmt.Errorf("%w: matrix %s too large (%dx%d)", ErrUnsupportedFormat, m.name, rows, cols)
	}
	count := rows * cols

	raw, err := io.ReadAll(io.LimitReader(r, int64(count*size)))
	if err != nil {
		return nil, fmt.Errorf("failed to read matrix %s: %w", m.name, err)
	}
	if len(raw) != count*size {
		return nil, fmt.Errorf("failed to read matrix %s: %w", m.name, io.ErrUnexpectedEOF)
	}
	m.data = decode(raw, count, precision, order)

	if imag != 0 {
		// Result files never carry imaginary parts; skip them.
		if _, err := io.CopyN(io.Discard, r, int64(count*size)); err != nil {
			return nil, fmt.Errorf("failed to skip imaginary part of %s: %w", m.name, err)
		}
	}

	return m, nil
}

func byteOrder(b []byte) (binary.ByteOrder, int, error) {
	if typ := int(int32(binary.LittleEndian.Uint32(b))); typ >= 0 && typ < 1000 {
		return binary.LittleEndian, typ, nil
	}
	if typ := int(int32(binary.BigEndian.Uint32(b))); typ >= 1000 && typ < 2000 {
		return binary.BigEndian, typ - machineBigEndian*1000, nil
	}
	return nil, 0, fmt.Errorf("%w: not a level 4 MAT file", ErrUnsupportedFormat)
}

func decode(raw []byte, count, precision int, order binary.ByteOrder) []float64 {
	out := make([]float64, count)
	for i := range out {
		switch precision {
		case 0:
			out[i] = math.Float64frombits(order.Uint64(raw[i*8:]))
		case 1:
			out[i] = float64(math.Float32frombits(order.Uint32(raw[i*4:])))
		case 2:
			out[i] = float64(int32(order.Uint32(raw[i*4:])))
		case 3:
			out[i] = float64(int16(order.Uint16(raw[i*2:])))
		case 4:
			out[i] = float64(order.Uint16(raw[i*2:]))
		case 5:
			out[i] = float64(raw[i])
		}
	}
	return out
}

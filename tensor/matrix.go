package tensor

import "fmt"
import "math"

// Matrix is a row-major [Rows, Cols] float32 matrix. A batch of N windows of
// T samples is a Matrix with Rows=N and Cols=T.
type Matrix struct {
	Rows int
	Cols int
	Data []float32
}

// NewMatrix allocates a zeroed rows x cols matrix
func NewMatrix(rows, cols int) Matrix {
	return Matrix{Rows: rows, Cols: cols, Data: make([]float32, rows*cols)}
}

// FromRows copies equally long rows into a matrix
func FromRows(rows [][]float32) (Matrix, error) {
	if len(rows) == 0 {
		return Matrix{}, nil
	}
	m := NewMatrix(len(rows), len(rows[0]))
	for i, r := range rows {
		if len(r) != m.Cols {
			return Matrix{}, fmt.Errorf("row %d has %d columns, want %d", i, len(r), m.Cols)
		}
		copy(m.Row(i), r)
	}
	return m, nil
}

// Row returns row i as a slice aliasing the matrix storage
func (m Matrix) Row(i int) []float32 {
	return m.Data[i*m.Cols : (i+1)*m.Cols]
}

func (m Matrix) At(i, j int) float32 {
	return m.Data[i*m.Cols+j]
}

func (m Matrix) Set(i, j int, v float32) {
	m.Data[i*m.Cols+j] = v
}

// Clone returns a deep copy
func (m Matrix) Clone() Matrix {
	c := Matrix{Rows: m.Rows, Cols: m.Cols, Data: make([]float32, len(m.Data))}
	copy(c.Data, m.Data)
	return c
}

// SameShape reports whether m and o have identical dimensions
func (m Matrix) SameShape(o Matrix) bool {
	return m.Rows == o.Rows && m.Cols == o.Cols
}

// Shape formats the dimensions for error messages
func (m Matrix) Shape() string {
	return fmt.Sprintf("[%d,%d]", m.Rows, m.Cols)
}

// Finite reports whether no element is NaN or infinite
func (m Matrix) Finite() bool {
	for _, v := range m.Data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

// Scale multiplies every element by s in place
func (m Matrix) Scale(s float32) {
	for i := range m.Data {
		m.Data[i] *= s
	}
}

// AddScaled adds s*o to m in place
func (m Matrix) AddScaled(o Matrix, s float32) {
	for i := range m.Data {
		m.Data[i] += s * o.Data[i]
	}
}

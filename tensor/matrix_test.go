package tensor

import "math"
import "testing"

func TestFromRows(t *testing.T) {
	m, err := FromRows([][]float32{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatal(err)
	}
	if m.Rows != 2 || m.Cols != 3 {
		t.Fatalf("bad shape %s", m.Shape())
	}
	if m.At(1, 2) != 6 {
		t.Errorf("At(1,2) = %v, want 6", m.At(1, 2))
	}
	m.Row(0)[1] = 9
	if m.Data[1] != 9 {
		t.Errorf("Row does not alias storage")
	}
	if _, err := FromRows([][]float32{{1, 2}, {3}}); err == nil {
		t.Errorf("ragged rows accepted")
	}
}

func TestFinite(t *testing.T) {
	m := NewMatrix(2, 2)
	if !m.Finite() {
		t.Errorf("zero matrix reported non-finite")
	}
	m.Set(1, 1, float32(math.NaN()))
	if m.Finite() {
		t.Errorf("NaN not detected")
	}
	m.Set(1, 1, float32(math.Inf(-1)))
	if m.Finite() {
		t.Errorf("-Inf not detected")
	}
}

func TestCloneAndAddScaled(t *testing.T) {
	a, _ := FromRows([][]float32{{1, 2}})
	b := a.Clone()
	b.AddScaled(a, 2)
	if a.Data[0] != 1 || b.Data[0] != 3 || b.Data[1] != 6 {
		t.Errorf("unexpected result a=%v b=%v", a.Data, b.Data)
	}
	b.Scale(0.5)
	if b.Data[1] != 3 {
		t.Errorf("Scale: got %v", b.Data[1])
	}
}

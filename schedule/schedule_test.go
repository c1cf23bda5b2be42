package schedule

import "errors"
import "math"
import "testing"

import "github.com/neurlang/diffar/device"

func TestLinear(t *testing.T) {
	testCases := []struct {
		name              string
		start, stop       float64
		count             int
		first, last, size float64
	}{
		{"single", 0.5, 0.9, 1, 0.5, 0.5, 1},
		{"pair", 1e-4, 0.05, 2, 1e-4, 0.05, 2},
		{"wavegrad", 1e-4, 0.05, 50, 1e-4, 0.05, 50},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, err := Linear(tc.start, tc.stop, tc.count)
			if err != nil {
				t.Fatal(err)
			}
			if float64(len(b)) != tc.size || b[0] != tc.first || b[len(b)-1] != tc.last {
				t.Errorf("got %v", b)
			}
		})
	}
	if _, err := Linear(0.1, 0.2, 0); !errors.Is(err, ErrInvalid) {
		t.Errorf("count 0 accepted: %v", err)
	}
}

func TestRetentionConstant(t *testing.T) {
	s, err := New([]float64{0.01, 0.01, 0.01, 0.01})
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0.99, 0.9801, 0.970299, 0.96059601}
	for i, r := range s.Retention() {
		if math.Abs(r-want[i]) > 1e-12 {
			t.Errorf("retention[%d] = %v, want %v", i, r, want[i])
		}
	}
	if s.Len() != 4 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestNewRejectsOutOfRange(t *testing.T) {
	for _, betas := range [][]float64{nil, {0}, {1}, {0.5, -0.1}, {math.NaN()}} {
		if _, err := New(betas); !errors.Is(err, ErrInvalid) {
			t.Errorf("New(%v) err = %v", betas, err)
		}
	}
}

func TestOnCachesPerDevice(t *testing.T) {
	s, _ := New([]float64{0.1, 0.2})
	dev := device.Host()
	a, err := s.On(dev)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := s.On(dev)
	if &a[0] != &b[0] {
		t.Errorf("second On did not reuse cached curve")
	}
	if math.Abs(float64(a[1])-0.72) > 1e-6 {
		t.Errorf("retention[1] = %v", a[1])
	}
}

// retention must be non-increasing and inside (0,1]
func FuzzRetention(f *testing.F) {
	f.Add(0.0001, 0.05, uint8(50))
	f.Add(0.5, 0.5, uint8(3))
	f.Fuzz(func(t *testing.T, start, stop float64, count uint8) {
		betas, err := Linear(start, stop, int(count))
		if err != nil {
			return
		}
		s, err := New(betas)
		if err != nil {
			return
		}
		prev := 1.0
		for i, r := range s.Retention() {
			if !(r > 0 && r <= 1) {
				t.Fatalf("retention[%d] = %v outside (0,1]", i, r)
			}
			if r > prev {
				t.Fatalf("retention[%d] = %v increased from %v", i, r, prev)
			}
			prev = r
		}
	})
}

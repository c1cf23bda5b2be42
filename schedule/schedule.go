package schedule

import "errors"
import "fmt"
import "sync"

import "github.com/neurlang/diffar/device"

// ErrInvalid is returned for empty schedules or betas outside (0,1)
var ErrInvalid = errors.New("invalid noise schedule")

// Linear returns count betas evenly spaced from start to stop inclusive.
func Linear(start, stop float64, count int) ([]float64, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalid, count)
	}
	betas := make([]float64, count)
	if count == 1 {
		betas[0] = start
		return betas, nil
	}
	step := (stop - start) / float64(count-1)
	for i := range betas {
		betas[i] = start + float64(i)*step
	}
	betas[count-1] = stop
	return betas, nil
}

// Schedule is an immutable beta sequence with its retention curve
// retention[t] = prod_{i<=t} (1 - beta[i]).
type Schedule struct {
	betas     []float64
	retention []float64

	mut    sync.Mutex
	placed map[string][]float32
}

// New validates betas and precomputes the retention curve
func New(betas []float64) (*Schedule, error) {
	if len(betas) == 0 {
		return nil, fmt.Errorf("%w: no steps", ErrInvalid)
	}
	s := &Schedule{
		betas:     make([]float64, len(betas)),
		retention: make([]float64, len(betas)),
		placed:    make(map[string][]float32),
	}
	acc := 1.0
	for i, b := range betas {
		if !(b > 0 && b < 1) {
			return nil, fmt.Errorf("%w: beta[%d] = %v", ErrInvalid, i, b)
		}
		s.betas[i] = b
		acc *= 1 - b
		if acc == 0 {
			return nil, fmt.Errorf("%w: retention underflows at step %d", ErrInvalid, i)
		}
		s.retention[i] = acc
	}
	return s, nil
}

// Len is the number of diffusion steps S
func (s *Schedule) Len() int {
	return len(s.betas)
}

// Betas returns a copy of the beta sequence
func (s *Schedule) Betas() []float64 {
	return append([]float64(nil), s.betas...)
}

// Retention returns a copy of the retention curve
func (s *Schedule) Retention() []float64 {
	return append([]float64(nil), s.retention...)
}

// On returns the retention curve resident on dev. The first call per device
// uploads it; later calls reuse the cached copy.
func (s *Schedule) On(dev device.Device) ([]float32, error) {
	s.mut.Lock()
	defer s.mut.Unlock()
	if r, ok := s.placed[dev.ID()]; ok {
		return r, nil
	}
	host := make([]float32, len(s.retention))
	for i, r := range s.retention {
		host[i] = float32(r)
	}
	r, err := dev.Upload(host)
	if err != nil {
		return nil, fmt.Errorf("relocate retention curve to %s: %w", dev.ID(), err)
	}
	s.placed[dev.ID()] = r
	return r, nil
}

package optim

import "fmt"
import "math"

import "github.com/neurlang/diffar/model"

// Slot is the per-parameter Adam state
type Slot struct {
	Step     int       `json:"step"`
	ExpAvg   []float32 `json:"exp_avg"`
	ExpAvgSq []float32 `json:"exp_avg_sq"`
}

// State is the serialisable optimizer state
type State struct {
	LR    float64         `json:"lr"`
	Beta1 float64         `json:"beta1"`
	Beta2 float64         `json:"beta2"`
	Eps   float64         `json:"eps"`
	Slots map[string]Slot `json:"slots"`
}

// Adam with bias correction, defaults as in PyTorch
type Adam struct {
	LR    float64
	Beta1 float64
	Beta2 float64
	Eps   float64

	slots map[string]*Slot
}

// NewAdam returns Adam with betas (0.9, 0.999) and eps 1e-8
func NewAdam(lr float64) *Adam {
	return &Adam{LR: lr, Beta1: 0.9, Beta2: 0.999, Eps: 1e-8, slots: make(map[string]*Slot)}
}

// Step updates every parameter that has a gradient
func (a *Adam) Step(params []*model.Parameter) {
	for _, p := range params {
		if p.Grad == nil {
			continue
		}
		s, ok := a.slots[p.Name]
		if !ok {
			s = &Slot{ExpAvg: make([]float32, len(p.Value)), ExpAvgSq: make([]float32, len(p.Value))}
			a.slots[p.Name] = s
		}
		s.Step++
		c1 := 1 - math.Pow(a.Beta1, float64(s.Step))
		c2 := math.Sqrt(1 - math.Pow(a.Beta2, float64(s.Step)))
		size := a.LR / c1
		for i, g := range p.Grad {
			m := a.Beta1*float64(s.ExpAvg[i]) + (1-a.Beta1)*float64(g)
			v := a.Beta2*float64(s.ExpAvgSq[i]) + (1-a.Beta2)*float64(g)*float64(g)
			s.ExpAvg[i], s.ExpAvgSq[i] = float32(m), float32(v)
			p.Value[i] -= float32(size * m / (math.Sqrt(v)/c2 + a.Eps))
		}
	}
}

// State copies the optimizer state
func (a *Adam) State() State {
	st := State{LR: a.LR, Beta1: a.Beta1, Beta2: a.Beta2, Eps: a.Eps, Slots: make(map[string]Slot)}
	for name, s := range a.slots {
		st.Slots[name] = Slot{
			Step:     s.Step,
			ExpAvg:   append([]float32(nil), s.ExpAvg...),
			ExpAvgSq: append([]float32(nil), s.ExpAvgSq...),
		}
	}
	return st
}

// Check reports slots that do not fit params
func (st State) Check(params []*model.Parameter) error {
	sizes := make(map[string]int, len(params))
	for _, p := range params {
		sizes[p.Name] = len(p.Value)
	}
	for name, s := range st.Slots {
		size, ok := sizes[name]
		if !ok {
			return fmt.Errorf("optimizer slot %q has no parameter", name)
		}
		if len(s.ExpAvg) != size || len(s.ExpAvgSq) != size {
			return fmt.Errorf("optimizer slot %q: moments of %d and %d values, parameter has %d", name, len(s.ExpAvg), len(s.ExpAvgSq), size)
		}
	}
	return nil
}

// LoadState replaces the optimizer state
func (a *Adam) LoadState(st State) error {
	slots := make(map[string]*Slot, len(st.Slots))
	for name, s := range st.Slots {
		if len(s.ExpAvg) != len(s.ExpAvgSq) {
			return fmt.Errorf("optimizer slot %q: moment lengths %d and %d differ", name, len(s.ExpAvg), len(s.ExpAvgSq))
		}
		s := s
		slots[name] = &s
	}
	a.LR, a.Beta1, a.Beta2, a.Eps = st.LR, st.Beta1, st.Beta2, st.Eps
	a.slots = slots
	return nil
}

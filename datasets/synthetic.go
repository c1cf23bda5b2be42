package datasets

import "math"
import "math/rand/v2"

// Phonemes is the size of the phoneme inventory the conditioning is scaled by
const Phonemes = 72

// Synthetic generates n windows of tonal audio with piecewise constant
// phoneme and energy conditioning. Each window carries an overlap boundary
// in [0, window/2]; Conditioned holds the clean audio before the boundary and
// zeros after it.
func Synthetic(n, window int, seed uint64) []Example {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]Example, n)
	for e := range out {
		ex := Example{
			Clean:       make([]float32, window),
			Conditioned: make([]float32, window),
			Phonemes:    make([]float32, window),
			Energy:      make([]float32, window),
			Overlap:     rng.IntN(window/2 + 1),
		}
		pos := 0
		for pos < window {
			length := window/8 + rng.IntN(window/4+1)
			phoneme := 1 + rng.IntN(Phonemes)
			freq := 100 + 20*float64(phoneme)
			amp := 0.1 + 0.5*rng.Float64()
			for i := pos; i < pos+length && i < window; i++ {
				ex.Clean[i] = float32(amp * math.Sin(2*math.Pi*freq*float64(i)/16000))
				ex.Phonemes[i] = float32(phoneme) / Phonemes
				ex.Energy[i] = float32(amp / math.Sqrt2)
			}
			pos += length
		}
		copy(ex.Conditioned[:ex.Overlap], ex.Clean[:ex.Overlap])
		out[e] = ex
	}
	return out
}

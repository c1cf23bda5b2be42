package diffusion

import "math"
import "math/rand/v2"

import "github.com/neurlang/diffar/parallel"
import "github.com/neurlang/diffar/tensor"

// Step is the ephemeral per-batch noising state. It is created fresh for
// every training or validation batch.
type Step struct {
	Timesteps []int
	Noise     tensor.Matrix
	Noisy     tensor.Matrix
}

// Noise draws a timestep uniformly from [0, len(retention)) and a standard
// normal noise row for every window of audio, then mixes them with Mix.
// Draws are taken serially from rng so a seeded run is reproducible.
func Noise(audio tensor.Matrix, retention []float32, rng *rand.Rand, workers int) Step {
	timesteps := make([]int, audio.Rows)
	noise := tensor.NewMatrix(audio.Rows, audio.Cols)
	for row := range timesteps {
		timesteps[row] = rng.IntN(len(retention))
	}
	for i := range noise.Data {
		noise.Data[i] = float32(rng.NormFloat64())
	}
	return Step{
		Timesteps: timesteps,
		Noise:     noise,
		Noisy:     Mix(audio, noise, retention, timesteps, workers),
	}
}

// Mix computes noisy = sqrt(r)*audio + sqrt(1-r)*noise row by row, where r is
// the retention at the row's timestep.
func Mix(audio, noise tensor.Matrix, retention []float32, timesteps []int, workers int) tensor.Matrix {
	noisy := tensor.NewMatrix(audio.Rows, audio.Cols)
	parallel.ForEach(audio.Rows, workers, func(row int) {
		r := float64(retention[timesteps[row]])
		signal := float32(math.Sqrt(r))
		spread := float32(math.Sqrt(1 - r))
		a, n, out := audio.Row(row), noise.Row(row), noisy.Row(row)
		for i := range out {
			out[i] = signal*a[i] + spread*n[i]
		}
	})
	return noisy
}

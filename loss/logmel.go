package loss

import "fmt"
import "math"

import "gonum.org/v1/gonum/dsp/fourier"

import "github.com/neurlang/diffar/parallel"
import "github.com/neurlang/diffar/tensor"

// LogMelConfig mirrors the torchaudio MelSpectrogram defaults the model was
// tuned with: Hann window, centred reflect padding, power 2, HTK mel scale.
type LogMelConfig struct {
	SampleRate int
	NFFT       int
	Hop        int
	Mels       int
	Workers    int
}

const logMelFloor = 1e-5

// LogMel is log(clamp(mel(|STFT(x)|^2), 1e-5)) with an exact gradient.
type LogMel struct {
	cfg    LogMelConfig
	window []float64
	bank   [][]float64 // [freq][mel]
}

// NewLogMel builds the window and mel filter bank
func NewLogMel(cfg LogMelConfig) (*LogMel, error) {
	if cfg.NFFT < 2 || cfg.NFFT%2 != 0 {
		return nil, fmt.Errorf("n_fft %d must be even and at least 2", cfg.NFFT)
	}
	if cfg.Hop <= 0 || cfg.Mels <= 0 || cfg.SampleRate <= 0 {
		return nil, fmt.Errorf("bad log-mel config %+v", cfg)
	}
	l := &LogMel{cfg: cfg, window: make([]float64, cfg.NFFT)}
	for n := range l.window {
		l.window[n] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(n)/float64(cfg.NFFT))
	}
	l.bank = melBank(cfg.NFFT/2+1, cfg.Mels, float64(cfg.SampleRate))
	return l, nil
}

func hzToMel(f float64) float64 { return 2595 * math.Log10(1+f/700) }
func melToHz(m float64) float64 { return 700 * (math.Pow(10, m/2595) - 1) }

// melBank returns triangular HTK filters without area normalisation
func melBank(freqs, mels int, sampleRate float64) [][]float64 {
	nyquist := float64(int(sampleRate) / 2)
	pts := make([]float64, mels+2)
	top := hzToMel(nyquist)
	for i := range pts {
		pts[i] = melToHz(top * float64(i) / float64(mels+1))
	}
	bank := make([][]float64, freqs)
	for k := range bank {
		f := nyquist * float64(k) / float64(freqs-1)
		bank[k] = make([]float64, mels)
		for m := 0; m < mels; m++ {
			down := (f - pts[m]) / (pts[m+1] - pts[m])
			up := (pts[m+2] - f) / (pts[m+2] - pts[m+1])
			bank[k][m] = math.Max(0, math.Min(down, up))
		}
	}
	return bank
}

// Frames is the number of STFT frames for a window of width samples
func (l *LogMel) Frames(width int) int {
	return 1 + width/l.cfg.Hop
}

func reflect(i, width int) int {
	if width == 1 {
		return 0
	}
	for i < 0 || i >= width {
		if i < 0 {
			i = -i
		}
		if i >= width {
			i = 2*(width-1) - i
		}
	}
	return i
}

// Forward returns a [N, Mels*Frames] matrix, mel-major
func (l *LogMel) Forward(x tensor.Matrix) tensor.Matrix {
	frames := l.Frames(x.Cols)
	out := tensor.NewMatrix(x.Rows, l.cfg.Mels*frames)
	parallel.ForEach(x.Rows, l.cfg.Workers, func(row int) {
		res := l.forwardRow(widen(x.Row(row)))
		dst := out.Row(row)
		for i, v := range res {
			dst[i] = float32(v)
		}
	})
	return out
}

// Backward maps grad on Forward(x) back to x
func (l *LogMel) Backward(x, grad tensor.Matrix) tensor.Matrix {
	out := tensor.NewMatrix(x.Rows, x.Cols)
	parallel.ForEach(x.Rows, l.cfg.Workers, func(row int) {
		res := l.backwardRow(widen(x.Row(row)), widen(grad.Row(row)))
		dst := out.Row(row)
		for i, v := range res {
			dst[i] = float32(v)
		}
	})
	return out
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

type frameState struct {
	coeff []complex128
	mel   []float64
}

// stft runs fn on every frame's spectrum and mel energies
func (l *LogMel) stft(x []float64, fn func(frame, offset int, st frameState)) {
	n, hop, pad := l.cfg.NFFT, l.cfg.Hop, l.cfg.NFFT/2
	fft := fourier.NewFFT(n)
	buf := make([]float64, n)
	st := frameState{mel: make([]float64, l.cfg.Mels)}
	for f := 0; f < l.Frames(len(x)); f++ {
		offset := f*hop - pad
		for k := 0; k < n; k++ {
			buf[k] = x[reflect(offset+k, len(x))] * l.window[k]
		}
		st.coeff = fft.Coefficients(st.coeff, buf)
		for m := range st.mel {
			st.mel[m] = 0
		}
		for k, c := range st.coeff {
			power := real(c)*real(c) + imag(c)*imag(c)
			for m, w := range l.bank[k] {
				st.mel[m] += w * power
			}
		}
		fn(f, offset, st)
	}
}

func (l *LogMel) forwardRow(x []float64) []float64 {
	frames := l.Frames(len(x))
	out := make([]float64, l.cfg.Mels*frames)
	l.stft(x, func(f, _ int, st frameState) {
		for m, v := range st.mel {
			out[m*frames+f] = math.Log(math.Max(v, logMelFloor))
		}
	})
	return out
}

func (l *LogMel) backwardRow(x, grad []float64) []float64 {
	n := l.cfg.NFFT
	frames := l.Frames(len(x))
	fft := fourier.NewFFT(n)
	out := make([]float64, len(x))
	dmel := make([]float64, l.cfg.Mels)
	dcoeff := make([]complex128, n/2+1)
	dbuf := make([]float64, n)
	l.stft(x, func(f, offset int, st frameState) {
		for m, v := range st.mel {
			dmel[m] = 0
			if v > logMelFloor {
				dmel[m] = grad[m*frames+f] / v
			}
		}
		// d|X_k|^2 contributes 2*Re(dP_k * X_k * e^{+i2pi kn/N}) per sample;
		// the one-sided inverse transform doubles every bin but DC and Nyquist.
		for k, c := range st.coeff {
			var dp float64
			for m, w := range l.bank[k] {
				dp += w * dmel[m]
			}
			dcoeff[k] = complex(dp, 0) * c
			if k == 0 || k == n/2 {
				dcoeff[k] *= 2
			}
		}
		dbuf = fft.Sequence(dbuf, dcoeff)
		for k := 0; k < n; k++ {
			out[reflect(offset+k, len(x))] += dbuf[k] * l.window[k]
		}
	})
	return out
}

package config

import "bytes"
import "errors"
import "fmt"
import "io"
import "os"
import "path/filepath"
import "strings"

import "github.com/BurntSushi/toml"
import "gopkg.in/yaml.v3"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid config")

// NoiseSchedule is a linear beta schedule
type NoiseSchedule struct {
	Start float64 `yaml:"start" toml:"start"`
	Stop  float64 `yaml:"stop" toml:"stop"`
	Count int     `yaml:"count" toml:"count"`
}

// Distributed places this process in the replica world
type Distributed struct {
	Rank      int    `yaml:"rank" toml:"rank"`
	WorldSize int    `yaml:"world_size" toml:"world_size"`
	Host      string `yaml:"host" toml:"host"`
	Port      int    `yaml:"port" toml:"port"`
}

// Address of the rank 0 reducer
func (d Distributed) Address() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// Dataset selects and sizes a dataset
type Dataset struct {
	Kind     string `yaml:"kind" toml:"kind"`
	Examples int    `yaml:"examples" toml:"examples"`
	Window   int    `yaml:"window" toml:"window"`
	Seed     uint64 `yaml:"seed" toml:"seed"`
}

// Params is the resolved training configuration
type Params struct {
	ModelDir      string        `yaml:"model_dir" toml:"model_dir"`
	LearningRate  float64       `yaml:"learning_rate" toml:"learning_rate"`
	NoiseSchedule NoiseSchedule `yaml:"noise_schedule" toml:"noise_schedule"`
	// MaskLossUsingOverlap is the margin before the overlap border kept in
	// the loss; -1 disables overlap masking.
	MaskLossUsingOverlap int     `yaml:"mask_loss_using_overlap" toml:"mask_loss_using_overlap"`
	SpecLossCoeff        float64 `yaml:"spec_loss_coeff" toml:"spec_loss_coeff"`
	NMels                int     `yaml:"n_mels" toml:"n_mels"`
	SampleRate           int     `yaml:"sample_rate" toml:"sample_rate"`
	NFFT                 int     `yaml:"n_fft" toml:"n_fft"`
	HopLength            int     `yaml:"hop_length" toml:"hop_length"`
	// MaxGradNorm of zero means no effective clipping.
	MaxGradNorm            float64 `yaml:"max_grad_norm" toml:"max_grad_norm"`
	ValEveryNEpochs        int     `yaml:"val_every_n_epochs" toml:"val_every_n_epochs"`
	CheckpointEveryNEpochs int     `yaml:"checkpoint_every_n_epochs" toml:"checkpoint_every_n_epochs"`
	// MaxSteps of nil trains until interrupted.
	MaxSteps            *int        `yaml:"max_steps" toml:"max_steps"`
	BatchSizeTrain      int         `yaml:"batch_size_train" toml:"batch_size_train"`
	BatchSizeValidation int         `yaml:"batch_size_validation" toml:"batch_size_validation"`
	KeepCheckpoints     int         `yaml:"keep_checkpoints" toml:"keep_checkpoints"`
	Seed                uint64      `yaml:"seed" toml:"seed"`
	Test                bool        `yaml:"test" toml:"test"`
	MetricsPath         string      `yaml:"metrics_path" toml:"metrics_path"`
	Distributed         Distributed `yaml:"distributed" toml:"distributed"`
	TrainDS             Dataset     `yaml:"train_ds" toml:"train_ds"`
	ValidDS             *Dataset    `yaml:"valid_ds" toml:"valid_ds"`
	TestDS              *Dataset    `yaml:"test_ds" toml:"test_ds"`
}

// Default returns the parameters used when a file leaves a key out
func Default() Params {
	return Params{
		ModelDir:               "runs/diffar",
		LearningRate:           2e-4,
		NoiseSchedule:          NoiseSchedule{Start: 1e-4, Stop: 0.05, Count: 50},
		MaskLossUsingOverlap:   -1,
		NMels:                  80,
		SampleRate:             16000,
		NFFT:                   400,
		HopLength:              200,
		ValEveryNEpochs:        1,
		CheckpointEveryNEpochs: 1,
		BatchSizeTrain:         8,
		BatchSizeValidation:    8,
		KeepCheckpoints:        4,
		Seed:                   1,
		Distributed:            Distributed{WorldSize: 1, Host: "127.0.0.1", Port: 29500},
		TrainDS:                Dataset{Kind: "synthetic", Examples: 64, Window: 2048, Seed: 1},
	}
}

// Format of a config file
type Format int

const (
	YAML Format = iota
	TOML
)

// DetectFormat picks the format from the file extension, TOML by default
func DetectFormat(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return TOML
	}
}

// Load reads a file over Default and validates the result
func Load(path string) (Params, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Params{}, fmt.Errorf("failed to read config: %w", err)
	}
	p, err := Parse(content, DetectFormat(path))
	if err != nil {
		return Params{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes content over Default. Unknown keys are errors.
func Parse(content []byte, format Format) (Params, error) {
	p := Default()
	switch format {
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(content))
		dec.KnownFields(true)
		if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
			return Params{}, fmt.Errorf("YAML parse error: %w", err)
		}
	case TOML:
		md, err := toml.Decode(string(content), &p)
		if err != nil {
			return Params{}, fmt.Errorf("TOML parse error: %w", err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return Params{}, fmt.Errorf("%w: unknown keys %v", ErrInvalid, undecoded)
		}
	default:
		return Params{}, fmt.Errorf("unsupported format: %d", format)
	}
	return p, p.Validate()
}

package device

import "fmt"
import "strings"

import "github.com/klauspost/cpuid/v2"

// Device is a compute device holding arrays consumed by the training kernels.
type Device interface {
	// ID identifies the device; arrays cached per device are keyed by it.
	ID() string
	// Name is a human readable description for the startup log.
	Name() string
	// Workers is the goroutine budget of host-side kernels.
	Workers() int
	// Upload places data on the device and returns the host view kernels read.
	Upload(data []float32) ([]float32, error)
	// Close releases device memory.
	Close() error
}

type host struct {
	workers int
}

// Host returns the CPU device. The worker count follows the logical core
// count reported by cpuid.
func Host() Device {
	w := cpuid.CPU.LogicalCores
	if w < 1 {
		w = 1
	}
	return host{workers: w}
}

func (h host) ID() string { return "cpu" }

func (h host) Name() string {
	var features []string
	for _, f := range []struct {
		id   cpuid.FeatureID
		name string
	}{{cpuid.AVX2, "avx2"}, {cpuid.AVX512F, "avx512f"}, {cpuid.FMA3, "fma3"}} {
		if cpuid.CPU.Supports(f.id) {
			features = append(features, f.name)
		}
	}
	brand := cpuid.CPU.BrandName
	if brand == "" {
		brand = cpuid.CPU.VendorString
	}
	return fmt.Sprintf("cpu %q (%d threads) [%s]", brand, h.workers, strings.Join(features, ","))
}

func (h host) Workers() int { return h.workers }

func (h host) Upload(data []float32) ([]float32, error) {
	out := make([]float32, len(data))
	copy(out, data)
	return out, nil
}

func (h host) Close() error { return nil }

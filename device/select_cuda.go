//go:build cuda

package device

import "fmt"
import "sync"
import "unsafe"

import "gorgonia.org/cu"

type cudaDevice struct {
	mut     sync.Mutex
	ordinal int
	name    string
	mem     int64
	ctx     cu.CUContext
	buffers []cu.DevicePtr
	workers int
}

// Select returns CUDA device rank modulo the device count, falling back to
// the host when no device is visible.
func Select(rank int) (Device, error) {
	n, err := cu.NumDevices()
	if err != nil || n == 0 {
		return Host(), nil
	}
	ordinal := rank % n
	dev, err := cu.GetDevice(ordinal)
	if err != nil {
		return nil, fmt.Errorf("cuda device %d: %w", ordinal, err)
	}
	name, _ := dev.Name()
	total, _ := dev.TotalMem()
	ctx, err := dev.MakeContext(cu.SchedAuto)
	if err != nil {
		return nil, fmt.Errorf("cuda context on device %d: %w", ordinal, err)
	}
	return &cudaDevice{
		ordinal: ordinal,
		name:    name,
		mem:     int64(total),
		ctx:     ctx,
		workers: Host().Workers(),
	}, nil
}

func (d *cudaDevice) ID() string { return fmt.Sprintf("cuda:%d", d.ordinal) }

func (d *cudaDevice) Name() string {
	return fmt.Sprintf("cuda:%d %q (%d bytes)", d.ordinal, d.name, d.mem)
}

func (d *cudaDevice) Workers() int { return d.workers }

// Upload copies data to device memory and reads it back, so the host view
// equals what device kernels see.
func (d *cudaDevice) Upload(data []float32) ([]float32, error) {
	out := make([]float32, len(data))
	if len(data) == 0 {
		return out, nil
	}
	d.mut.Lock()
	defer d.mut.Unlock()
	if err := d.ctx.Lock(); err != nil {
		return nil, err
	}
	defer d.ctx.Unlock()

	size := int64(len(data)) * int64(unsafe.Sizeof(data[0]))
	ptr, err := cu.MemAlloc(size)
	if err != nil {
		return nil, fmt.Errorf("cuda alloc %d bytes: %w", size, err)
	}
	if err = cu.MemcpyHtoD(ptr, unsafe.Pointer(&data[0]), size); err != nil {
		cu.MemFree(ptr)
		return nil, err
	}
	if err = cu.MemcpyDtoH(unsafe.Pointer(&out[0]), ptr, size); err != nil {
		cu.MemFree(ptr)
		return nil, err
	}
	d.buffers = append(d.buffers, ptr)
	return out, nil
}

func (d *cudaDevice) Close() error {
	d.mut.Lock()
	defer d.mut.Unlock()
	var first error
	for _, ptr := range d.buffers {
		if err := cu.MemFree(ptr); err != nil && first == nil {
			first = err
		}
	}
	d.buffers = nil
	d.ctx.Destroy()
	return first
}

//go:build !cuda

package device

// Select returns the device for replica rank. Builds without the cuda tag
// always train on the host.
func Select(rank int) (Device, error) {
	return Host(), nil
}

// Package parallel contains bounded fan-out helpers used by the row-wise
// kernels of noising, loss and spectrogram computation.
package parallel

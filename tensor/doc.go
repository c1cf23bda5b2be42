// Package tensor implements the host-resident row-major matrices that carry
// audio batches, noise and predictions through the trainer.
package tensor

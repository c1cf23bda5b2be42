// Package trainer runs the diffusion training loop: noising, loss, gradient
// steps, validation, checkpoint selection and cross-replica averaging.
package trainer

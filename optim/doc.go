// Package optim implements the Adam optimizer and gradient-norm clipping
// over model parameters, with serialisable optimizer state for checkpoints.
package optim

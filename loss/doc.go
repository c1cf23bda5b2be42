// Package loss computes the denoising objective: plain L1 between target and
// predicted noise, the overlap-masked L1 that trains only samples not already
// covered by the previous window, and an optional log-mel spectral term.
//
// Every loss returns its gradient with respect to the prediction so the
// model can be updated without an autograd engine.
package loss

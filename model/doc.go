// Package model defines the contract between the trainer and the denoising
// network, plus a small affine reference network used by the demo command
// and the tests.
package model

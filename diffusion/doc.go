// Package diffusion implements the single forward noising step shared by
// training and validation: sample a timestep per window, draw Gaussian noise
// and blend it into the clean audio according to the retention curve.
package diffusion

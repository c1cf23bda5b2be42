// Package schedule derives the cumulative signal retention curve of a
// diffusion noise schedule and keeps device-resident copies of it.
package schedule

// Package main provides the diffar command line: training a diffusion
// waveform model on one or more replicas, printing the noise schedule and
// listing the checkpoint pools of a model directory.
package main

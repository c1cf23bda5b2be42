// Package device selects the compute device a training replica runs on and
// relocates device-resident arrays such as the noise retention curve.
package device

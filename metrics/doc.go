// Package metrics records scalar training series such as train/loss.
package metrics

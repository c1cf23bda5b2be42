// Package checkpoint persists and restores the full training state.
//
// A pool is a directory holding snapshots named weights-<step>.ckpt and an
// alias weights.ckpt that always points at the newest snapshot. Each pool
// keeps a bounded number of snapshots; older ones are pruned by step.
// Snapshots are zlib-compressed JSON.
package checkpoint

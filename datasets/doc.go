// Package datasets defines the batches the trainer consumes and an in-memory
// loader with distributed sharding. Producing the examples (manifests,
// phoneme tables, text grids) happens upstream; Synthetic generates stand-in
// examples for demos and tests.
package datasets

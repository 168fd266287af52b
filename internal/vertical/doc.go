// Package vertical provides the vertical classification registry: the
// Vertical domain model, a Store interface over a vector-capable point
// store, a stale-while-revalidate cache layer with deduplicated
// background refresh, the detection index builder, and the pure keyword
// and campaign-pattern matching engine.
package vertical

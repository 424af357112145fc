// Package pipeline runs one filtering pass: load the durable disposition sets
// and green list, drop green entries that are now owned, search upstream
// while excluding every known identity, normalize, apply each stage in
// order, merge the survivors into the green list, and write it back.
//
// Only a failure to write the green list (or to take the run lock) is fatal.
// Upstream errors yield zero new candidates; stage persistence errors are
// logged by the stage.
package pipeline

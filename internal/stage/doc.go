// Package stage defines the contract shared by the candidate filter stages
// and a Runner that applies a per-candidate evaluator while keeping the
// stage's rejection set durable.
package stage

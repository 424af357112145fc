// Package main hosts the reposift CLI entrypoint and command graph.
//
// The Cobra command tree loads configuration once, wires the search client,
// filter stages, durable sets, and run journal, then hands control to the
// pipeline. Inspection commands read the same durable files the pipeline
// writes so operators can review the green list and disposition sets without
// starting a run.
package main

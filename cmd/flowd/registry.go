package main

import "github.com/cuemby/flowd/pkg/topology"

// builtinRegistry returns the set of source, transform and sink types
// flowd ships with. Concrete network integrations (HTTP, Kafka, S3, ...)
// are out of scope here; a deployment that needs one registers its own
// factory the same way before calling topology.Build.
func builtinRegistry() *topology.Registry {
	reg := topology.NewRegistry()
	return reg
}

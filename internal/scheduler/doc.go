// Package scheduler evaluates a whole formula graph.
//
// # How It Works
//
// Evaluate follows a fixed sequence:
//  1. Validate that every formula only reads keys it declares as dependencies
//  2. Ask the graph for its layers and detached nodes
//  3. Record every detached node as an UnresolvedDependency failure
//  4. Evaluate the layers in order; the nodes of one layer run in parallel
//     on a bounded worker pool and the next layer starts only once every
//     result of the current one is in the store
//  5. Collect a Result per node into a Report
//
// A node whose dependency failed is not evaluated; it fails with
// UnresolvedDependency naming the dependency. Failures never abort the run:
// the Report always holds one Result per node.
//
// # Relationship with Other Components
//
//   - **depgraph:** supplies the layering and the outgoing edges
//   - **expr:** evaluates one formula against an environment
//   - **nodestore:** holds the per-node results while the run is in flight
//   - **metrics:** optional Prometheus collectors
package scheduler

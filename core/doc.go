// Package core defines the shared domain model of the zapdesk conversation
// engine: tenants, agent definitions with their persona configuration,
// conversations with ordered turns and a single mutable context record, audit
// events, and the collaborator interfaces (conversation store, entitlement
// source, audit sink) the orchestration layer depends on.
//
// The package deliberately contains no I/O. Concrete store implementations
// live in the store and entitlement packages; the orchestrator package wires
// everything together.
package core

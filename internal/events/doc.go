// Package events provides types and interfaces for reporting job results.
//
// The transport layer publishes a JobEvent when the worker resolves a
// dispatched job, without knowing which handlers will process it. This
// keeps the editor-facing layers decoupled from the wire protocol and
// avoids circular dependencies between the transport and its consumers.
//
// The primary components are:
// - JobEvent: The worker's completion or error report for one job
// - Handler: Interface for components that consume job events
// - Emitter: Interface for components that publish job events
package events

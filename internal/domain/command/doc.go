// Package command is the collaborator-facing entry point of the daemon.
//
// Each external call is a typed request variant. Transports (HTTP handlers
// and the extension bridge) decode their input into a Request and pass it
// to Dispatcher.Handle, which routes it with a type switch and records an
// operation metric.
package command

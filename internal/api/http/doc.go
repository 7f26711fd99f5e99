// Package http exposes the daemon's collaborator calls as a small JSON API.
//
// Every handler decodes its input into a command request and hands it to
// the dispatcher; domain errors map onto status codes in one place.
package http

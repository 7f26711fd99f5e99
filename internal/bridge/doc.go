// Package bridge connects the daemon to the browser extension over a
// WebSocket.
//
// The extension dials GET /bridge. The daemon sends Commands (list_tabs,
// navigate, content) each tagged with a uuid and waits for the reply with
// the same id. The extension pushes tab events which are decoded into
// command requests and handed to a Handler; events that carry an id get a
// Reply.
//
// Tabs in a list_tabs reply use the browser's own field names; lastAccessed
// may be milliseconds since the epoch or an RFC 3339 string.
//
// Hub implements suspension.TabHost and suspension.ContentMessenger.
// While no extension is connected every call fails with ErrDisconnected;
// content calls also wrap types.ErrUnreachable so the controller treats
// them like an unresponsive page.
package bridge

// Package server exposes the HTTP API: uploads, catalog reads, range
// streaming, the websocket progress feed, and daemon status. Every route
// is tenant-scoped through the bearer-token table in the config.
package server

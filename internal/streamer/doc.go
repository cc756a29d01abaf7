// Package streamer serves stored media over HTTP. It honors single
// byte-range requests for seeking, copies file windows incrementally
// instead of buffering them, and degrades malformed ranges to full-file
// responses rather than erroring.
package streamer

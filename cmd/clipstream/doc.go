// Package main hosts the clipstream CLI entrypoint and command graph.
//
// The Cobra-based command tree runs the processing daemon in the foreground,
// uploads media over the HTTP API, lists catalog items, reports daemon
// status, and scaffolds configuration files. It centralizes configuration
// resolution, server discovery, and token handling so subcommands can focus
// on user experience instead of wiring.
package main

// Package driving declares the inbound ports of the validation core. The
// CLI, HTTP API, MCP server and watcher TUI call these; core services
// implement them.
//
// This package imports only domain.
package driving

// Package services builds and owns the long-lived components of a genagent
// process.
//
// Build turns one config snapshot into a Registry: reasoning model, tool
// registry, memory service, conversation log, secret scrubber, event
// publisher and the workflow engine wired over all of them. The surfaces
// (HTTP API, MCP server, Temporal activities) are created from the registry
// so that every entry point shares one engine. Close releases everything
// Build opened.
package services

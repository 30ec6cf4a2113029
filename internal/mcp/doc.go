// Package mcp exposes genagent to MCP clients over stdio.
//
// It uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp) and
// registers three tools: run_goal, memory_search and list_tools. Final
// answers and memory content are scrubbed for secrets before they are
// returned to clients.
package mcp

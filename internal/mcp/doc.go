// Package mcp exposes report builds and follow-up questions as MCP tools.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// over stdio and registers three tools: build_report, ask_followup and
// collection_name. Each tool returns a text block for the model and the
// same result as structured content.
package mcp

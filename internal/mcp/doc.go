// Package mcp exposes focusfuel over the Model Context Protocol.
//
// The server uses the MCP SDK (github.com/modelcontextprotocol/go-sdk/mcp)
// and registers tools for on-demand tab classification, tab statistics,
// domain list management, stored events and notification responses. Every
// tool is also described in a ToolRegistry so clients can discover tools
// with tool_search instead of loading every definition up front.
package mcp

// Package mcp provides the Model Context Protocol (MCP) server for dirmcp using mcp-go.
//
// The server exposes the files of one configured directory to AI assistants,
// read-only, over stdin/stdout using JSON-RPC 2.0.
//
// # Resources
//
//   - files://list returns {"files": ["a.txt", ...]}
//   - files://read/{filename} returns {"name", "content", "sizeBytes", "lastModified"}
//
// The filename in a read URI is percent-decoded once before it reaches the
// catalog. Failures are returned as JSON-RPC errors.
//
// # Tools
//
// The same operations are offered as the list_files and read_file tools for
// clients that do not browse resources. Tool failures come back as error
// results with text of the form "<kind>: <message>", for example
// "PathTraversal: path traversal: \"../secret.txt\"".
//
// # Security
//
// All path handling lives in the catalog and fileops packages:
//   - names are validated and resolved against the canonical base directory
//   - symlinks that lead outside the directory are rejected
//   - hidden files are neither listed nor readable
//   - errors carry the client-supplied name only, never resolved paths
//
// # Usage
//
// The server is normally started as a subprocess by an MCP client:
//
//	dirmcp serve --dir ~/notes
//
// It reads requests until stdin is closed or the process is interrupted.
// Logs go to stderr (or dirmcp.log with DEBUG=1); stdout carries only protocol
// messages.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp

// Package server implements an MCP (Model Context Protocol) server that
// drives one upload controller.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - detect_select_file: Select an image by path
//   - detect_submit: Run detection on the selection, optionally saving the result
//   - detect_reset: Clear everything and cancel a running detection
//   - detect_state: Report the current state
//   - detect_health: Probe the detection service
//
// Tool results report state without the base64 images; use output_path on
// detect_submit to get the annotated JPEG.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The user-facing message and the underlying error
//
// # Usage
//
//	srv := server.New(ctrl, client, version)
//	if err := srv.Run(ctx, os.Stdin, os.Stdout); err != nil {
//	    log.Fatal(err)
//	}
package server

// Package server implements the MCP (Model Context Protocol) server for the
// contour counting tools.
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
// Basic Image Information:
//   - image_load: Load image and get metadata
//
// Object Counting:
//   - image_count_objects: Edge, binarize, close, contour and area filter
//   - image_count_objects_enhanced: The same after a contrast/brightness boost
//   - image_count_batch: Count several images on a worker pool
//   - image_percent_detected: Detected over expected as a percentage
//
// Pipeline Stages:
//   - image_edge_detect: Canny edge detection
//   - image_binarize: Fixed or Otsu threshold
//   - image_clean_mask: Morphological open then close
//
// Every parameter a call omits falls back to the config.Config the server was
// created with.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for a rejected parameter value, -32000 for any other tool
//     failure, or the standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string, which names the failing stage or field
//
// # Usage
//
//	srv := server.New(config.Default())
//	if err := srv.Run(); err != nil {
//	    log.Fatal().Err(err).Msg("server error")
//	}
package server

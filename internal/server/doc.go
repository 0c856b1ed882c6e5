// Package server implements the MCP (Model Context Protocol) server for
// screen condition detection.
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
// Screen Setup:
//   - condition_set_screen_metrics: Define the scale ratio for a screen size
//   - condition_set_screen: Load the screenshot to search
//
// Detection:
//   - condition_detect: Visual template match with color verification
//   - condition_detect_text: Template candidates confirmed by OCR
//
// Lifecycle:
//   - condition_release: Release the detector and clear cached conditions
//
// A typical session sets the metrics once per screen geometry, then
// alternates condition_set_screen with detection calls:
//
//	condition_set_screen_metrics {"path": "/shots/first.png", "quality": 480}
//	condition_set_screen         {"path": "/shots/now.png"}
//	condition_detect             {"condition_path": "/conds/victory.png", "threshold": 80}
//
// # Image Caching
//
// Condition images are cached by path and decoded again when the file changes.
// Screenshots are always read fresh since they change between calls.
//
// # Error Handling
//
// Bad arguments and unreadable files are JSON-RPC errors with code -32000.
// A detection that finds nothing is a successful call whose result has
// found=false and a reason.
package server

// Package server implements the MCP (Model Context Protocol) surface of snapsearch.
//
// It exposes the capture session as tools, so an MCP client can press the
// same buttons a person would: capture, crop, search, clear and focus.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Session:
//   - camera_status: State, current image, authorization and frame stats
//   - camera_capture: Freeze the live frame and recognize its text
//   - camera_search: Open a web search for the recognized text
//   - camera_clear: Return to the live preview
//
// Crop:
//   - camera_crop_begin: Start cropping; returns a crop ID and the image
//   - camera_crop_apply: Replace the image with a rotated, cropped region
//   - camera_crop_cancel: Leave cropping unchanged
//
// Camera and input:
//   - camera_focus: Focus at a point tapped in the preview
//   - image_open: Use an image file instead of a camera frame
//   - ocr_info: Recognition engine availability
//
// # Notifications
//
// Session notices (permission denied, nothing recognized, dark scene) are
// sent as notifications/message at level "warning".
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with
// code -32000. The error data holds the failure kind (for example
// "recognition-empty" or "stale-crop") and its message.
package server

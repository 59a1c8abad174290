package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func noArgs() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Session state
		{
			Name:        "camera_status",
			Description: "Report the session state (previewing, captured, cropping), the current captured image, camera authorization and frame statistics.",
			InputSchema: noArgs(),
		},

		// Capture and search
		{
			Name:        "camera_capture",
			Description: "Freeze the latest camera frame as the captured image and return the text lines recognized in it.",
			InputSchema: noArgs(),
		},
		{
			Name:        "camera_search",
			Description: "Recognize text in the captured image, join the lines with spaces and open a Google search for it in the browser. Returns the query and URL. Nothing is opened when no text is found.",
			InputSchema: noArgs(),
		},
		{
			Name:        "camera_clear",
			Description: "Discard the captured image and return to the live preview.",
			InputSchema: noArgs(),
		},

		// Crop
		{
			Name:        "camera_crop_begin",
			Description: "Start cropping the captured image. Returns a crop_id and the image as base64-encoded PNG so the region can be chosen. When text is found, suggested holds x1/y1/x2/y2 around it.",
			InputSchema: noArgs(),
		},
		{
			Name:        "camera_crop_apply",
			Description: "Replace the captured image with a region of it. The image is first rotated clockwise by angle degrees; the rectangle is in the coordinates of the rotated image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"crop_id": map[string]interface{}{
						"type":        "string",
						"description": "ID returned by camera_crop_begin",
					},
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate (exclusive)",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate (exclusive)",
					},
					"angle": map[string]interface{}{
						"type":        "number",
						"description": "Clockwise rotation in degrees applied before cropping. Default 0",
						"default":     0,
					},
				},
				"required": []string{"crop_id", "x1", "y1", "x2", "y2"},
			},
		},
		{
			Name:        "camera_crop_cancel",
			Description: "Leave cropping without changing the captured image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"crop_id": map[string]interface{}{
						"type":        "string",
						"description": "ID returned by camera_crop_begin",
					},
				},
				"required": []string{"crop_id"},
			},
		},

		// Camera control
		{
			Name:        "camera_focus",
			Description: "Ask the camera to focus at a point tapped in a preview of the given size. The preview shows the frame scaled to fill and center-cropped.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"x": map[string]interface{}{
						"type":        "integer",
						"description": "Tap X coordinate in the preview",
					},
					"y": map[string]interface{}{
						"type":        "integer",
						"description": "Tap Y coordinate in the preview",
					},
					"view_width": map[string]interface{}{
						"type":        "integer",
						"description": "Preview width in pixels",
					},
					"view_height": map[string]interface{}{
						"type":        "integer",
						"description": "Preview height in pixels",
					},
				},
				"required": []string{"x", "y", "view_width", "view_height"},
			},
		},

		// Library
		{
			Name:        "image_open",
			Description: "Load a PNG, JPEG or GIF file as the captured image instead of a camera frame.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},

		// Engine
		{
			Name:        "ocr_info",
			Description: "Report whether the Tesseract engine is available, its version and configured language.",
			InputSchema: noArgs(),
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

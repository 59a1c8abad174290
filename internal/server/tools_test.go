package server

import (
	"testing"
)

func TestGetToolDefinitions(t *testing.T) {
	tools := GetToolDefinitions()

	if len(tools) == 0 {
		t.Fatal("GetToolDefinitions returned empty slice")
	}

	expectedTools := []string{
		"camera_status",
		"camera_capture",
		"camera_search",
		"camera_clear",
		"camera_crop_begin",
		"camera_crop_apply",
		"camera_crop_cancel",
		"camera_focus",
		"image_open",
		"ocr_info",
	}

	toolMap := make(map[string]Tool)
	for _, tool := range tools {
		if _, dup := toolMap[tool.Name]; dup {
			t.Errorf("Duplicate tool %s", tool.Name)
		}
		toolMap[tool.Name] = tool
	}

	for _, name := range expectedTools {
		if _, ok := toolMap[name]; !ok {
			t.Errorf("Expected tool %s not found", name)
		}
	}
	if len(tools) != len(expectedTools) {
		t.Errorf("Tool count: got %d, want %d", len(tools), len(expectedTools))
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema == nil {
				t.Fatal("Tool InputSchema is nil")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}

			// Every required parameter must be declared.
			required, _ := tool.InputSchema["required"].([]string)
			for _, name := range required {
				if _, ok := props[name]; !ok {
					t.Errorf("required parameter %s is not declared", name)
				}
			}
		})
	}
}

func TestToolDefinitions_CropCoordinates(t *testing.T) {
	var apply *Tool
	for _, tool := range GetToolDefinitions() {
		if tool.Name == "camera_crop_apply" {
			tool := tool
			apply = &tool
		}
	}
	if apply == nil {
		t.Fatal("camera_crop_apply not defined")
	}

	props := apply.InputSchema["properties"].(map[string]interface{})
	for _, coord := range []string{"x1", "y1", "x2", "y2"} {
		prop, ok := props[coord].(map[string]interface{})
		if !ok {
			t.Errorf("%s not declared", coord)
			continue
		}
		if prop["type"] != "integer" {
			t.Errorf("%s type: got %v, want integer", coord, prop["type"])
		}
	}

	angle := props["angle"].(map[string]interface{})
	if angle["type"] != "number" || angle["default"] != 0 {
		t.Errorf("angle: got %v", angle)
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t, nil)
	req := &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
	}

	resp := s.handleToolsList(req)

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/snapsearch/internal/imaging"
	"github.com/ironsheep/snapsearch/internal/session"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "camera_capture", "camera_search").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000;
// the error data carries the failure kind and message.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", map[string]string{
			"kind":    session.Kind(err),
			"message": err.Error(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "camera_status":
		return s.sess.Status(ctx)

	case "camera_capture":
		return s.sess.Capture(ctx)
	case "camera_search":
		return s.sess.Search(ctx)
	case "camera_clear":
		return s.handleClear(ctx)

	case "camera_crop_begin":
		return s.handleCropBegin(ctx)
	case "camera_crop_apply":
		return s.handleCropApply(ctx, args)
	case "camera_crop_cancel":
		return s.handleCropCancel(ctx, args)

	case "camera_focus":
		return s.handleFocus(ctx, args)

	case "image_open":
		return s.handleImageOpen(ctx, args)

	case "ocr_info":
		return s.handleOCRInfo()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// unmarshalArgs decodes tool arguments, treating a missing object as empty.
func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) handleClear(ctx context.Context) (interface{}, error) {
	if err := s.sess.Clear(ctx); err != nil {
		return nil, err
	}
	return map[string]interface{}{"state": session.Previewing}, nil
}

// === Crop Handlers ===

type cropBeginResult struct {
	session.CropRequest
	Image *imaging.EncodedImage `json:"image"`
}

func (s *Server) handleCropBegin(ctx context.Context) (interface{}, error) {
	req, err := s.sess.BeginCrop(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := imaging.Encode(req.Image)
	if err != nil {
		// Leave the session as it was before the failed hand-off.
		_ = s.sess.CancelCrop(ctx, req.ID)
		return nil, err
	}
	return cropBeginResult{CropRequest: req, Image: encoded}, nil
}

type cropApplyArgs struct {
	CropID string  `json:"crop_id"`
	X1     int     `json:"x1"`
	Y1     int     `json:"y1"`
	X2     int     `json:"x2"`
	Y2     int     `json:"y2"`
	Angle  float64 `json:"angle"`
}

func (s *Server) handleCropApply(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropApplyArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.CropID == "" {
		return nil, errors.New("crop_id is required")
	}
	if a.X1 >= a.X2 || a.Y1 >= a.Y2 {
		return nil, fmt.Errorf("%w: x1 must be < x2, y1 must be < y2", session.ErrInvalidCrop)
	}

	return s.sess.CompleteCrop(ctx, a.CropID, image.Rect(a.X1, a.Y1, a.X2, a.Y2), a.Angle)
}

type cropCancelArgs struct {
	CropID string `json:"crop_id"`
}

func (s *Server) handleCropCancel(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropCancelArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if err := s.sess.CancelCrop(ctx, a.CropID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"state": session.Captured}, nil
}

// === Camera Handlers ===

type focusArgs struct {
	X          int `json:"x"`
	Y          int `json:"y"`
	ViewWidth  int `json:"view_width"`
	ViewHeight int `json:"view_height"`
}

func (s *Server) handleFocus(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a focusArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.ViewWidth <= 0 || a.ViewHeight <= 0 {
		return nil, errors.New("view_width and view_height must be positive")
	}

	if err := s.sess.Focus(ctx, image.Pt(a.X, a.Y), image.Pt(a.ViewWidth, a.ViewHeight)); err != nil {
		return nil, err
	}
	return map[string]interface{}{"requested": true}, nil
}

// === Library Handlers ===

type imageOpenArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageOpen(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageOpenArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return s.sess.OpenFile(ctx, a.Path)
}

// === Engine Handlers ===

func (s *Server) handleOCRInfo() (interface{}, error) {
	if s.opts.Engine == nil {
		return nil, errors.New("no recognition engine configured")
	}
	return s.opts.Engine.Info(), nil
}

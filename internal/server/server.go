package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/ironsheep/snapsearch/internal/log"
	"github.com/ironsheep/snapsearch/internal/ocr"
	"github.com/ironsheep/snapsearch/internal/session"
)

// EngineInfo reports the state of the text recognition engine.
type EngineInfo interface {
	Info() ocr.OCRInfo
}

// Options configures the MCP server.
type Options struct {
	// Version is reported in serverInfo.
	Version string

	// Engine is queried by the ocr_info tool. Optional.
	Engine EngineInfo
}

// Server handles MCP protocol communication
type Server struct {
	sess   *session.Session
	opts   Options
	logger *zap.SugaredLogger

	// mu serializes writes; notices arrive from the session goroutine.
	mu  sync.Mutex
	enc *json.Encoder
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance bound to sess
func New(sess *session.Session, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Server{
		sess:   sess,
		opts:   opts,
		logger: log.Named("mcp"),
	}
}

// Run reads requests from in and writes responses to out until in is
// exhausted or ctx is done. Session notices are forwarded as MCP log
// notifications.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.mu.Lock()
	s.enc = json.NewEncoder(out)
	s.mu.Unlock()

	s.sess.On(session.EventNotice, func(ev session.Event) {
		s.notify("notifications/message", map[string]interface{}{
			"level":  "warning",
			"logger": "snapsearch",
			"data":   ev,
		})
	})

	scanner := bufio.NewScanner(in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warnw("failed to parse request", "error", err)
			continue
		}

		if resp := s.handleRequest(ctx, &req); resp != nil {
			s.write(resp)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}
	return nil
}

func (s *Server) write(v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enc == nil {
		return
	}
	if err := s.enc.Encode(v); err != nil {
		s.logger.Warnw("failed to encode message", "error", err)
	}
}

func (s *Server) notify(method string, params interface{}) {
	s.write(&MCPNotification{JSONRPC: "2.0", Method: method, Params: params})
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"capabilities": map[string]interface{}{
				"tools":   map[string]interface{}{},
				"logging": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    "snapsearch",
				"version": s.opts.Version,
			},
		},
	}
}

package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
	"github.com/ironsheep/condition-detector-mcp/internal/logger"
)

// ServerName is reported in the initialize handshake.
const ServerName = "condition-detector-mcp"

// Server handles MCP protocol communication
type Server struct {
	cache   *imaging.ConditionCache
	log     *logrus.Entry
	version string

	in  io.Reader
	out io.Writer

	mu         sync.Mutex
	det        *detector.Detector
	detOpts    []detector.Option
	sink       detector.ResultSink
	quality    float64
	metricsTag string
	metricsSet bool
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

// Option configures a Server.
type Option func(*Server)

// WithDetectorOptions sets the options every detector instance is built with.
func WithDetectorOptions(opts ...detector.Option) Option {
	return func(s *Server) { s.detOpts = append(s.detOpts, opts...) }
}

// WithSink receives every detection result in addition to the tool response.
func WithSink(sink detector.ResultSink) Option {
	return func(s *Server) { s.sink = sink }
}

// WithScreenDefaults sets the metrics used when condition_set_screen is
// called before condition_set_screen_metrics.
func WithScreenDefaults(tag string, quality float64) Option {
	return func(s *Server) {
		s.metricsTag = tag
		s.quality = quality
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Server) { s.log = log }
}

// WithIO replaces stdin and stdout.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(s *Server) {
		s.in = in
		s.out = out
	}
}

func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// New creates a new MCP server instance
func New(opts ...Option) *Server {
	s := &Server{
		cache:      imaging.NewConditionCache(),
		log:        logger.Component("server"),
		version:    "dev",
		in:         os.Stdin,
		out:        os.Stdout,
		quality:    480,
		metricsTag: "default",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run reads requests until the input closes. The detector is released on
// return.
func (s *Server) Run() error {
	defer func() {
		if err := s.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to release detector")
		}
	}()

	scanner := bufio.NewScanner(s.in)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(s.out)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.WithError(err).Warn("Failed to parse request")
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.WithError(err).Error("Failed to encode response")
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// Close releases the detector, if one was created.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	s.log.WithField("method", req.Method).Trace("Request")

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
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
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    ServerName,
				"version": s.version,
			},
		},
	}
}

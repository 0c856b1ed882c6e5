package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/condition-detector-mcp/internal/detector"
	"github.com/ironsheep/condition-detector-mcp/internal/imaging"
)

// DefaultThreshold is used when condition_detect omits the threshold.
const DefaultThreshold = 80

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "condition_detect").
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
// Tool execution errors return a JSON-RPC error response with code -32000.
// A condition that is not found is a successful call with found=false.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.log.WithError(err).WithField("tool", params.Name).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
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
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	// Screen Setup
	case "condition_set_screen_metrics":
		return s.handleSetScreenMetrics(args)
	case "condition_set_screen":
		return s.handleSetScreen(args)

	// Detection
	case "condition_detect":
		return s.handleDetect(args)
	case "condition_detect_text":
		return s.handleDetectText(args)

	// Lifecycle
	case "condition_release":
		return s.handleRelease()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
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
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// detectorLocked returns the detector, creating and initializing it on
// first use.
func (s *Server) detectorLocked() (*detector.Detector, error) {
	if s.det != nil {
		return s.det, nil
	}
	d := detector.New(s.detOpts...)
	if err := d.Initialize(s.sink); err != nil {
		return nil, err
	}
	s.det = d
	return d, nil
}

func (s *Server) releaseLocked() error {
	if s.det == nil {
		return nil
	}
	err := s.det.Release()
	s.det = nil
	s.metricsSet = false
	return err
}

// regionArg is a full-size rectangle with exclusive right and bottom edges.
type regionArg struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (r *regionArg) rect() *image.Rectangle {
	if r == nil {
		return nil
	}
	// Not canonicalized; the detector rejects inverted rectangles.
	rect := image.Rectangle{Min: image.Pt(r.X1, r.Y1), Max: image.Pt(r.X2, r.Y2)}
	return &rect
}

// === Screen Setup Handlers ===

type setScreenMetricsArgs struct {
	Path    string  `json:"path"`
	Tag     string  `json:"tag"`
	Quality float64 `json:"quality"`
}

type screenMetricsResult struct {
	Tag          string  `json:"tag"`
	Ratio        float64 `json:"ratio"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	ScaledWidth  int     `json:"scaled_width"`
	ScaledHeight int     `json:"scaled_height"`
}

func (s *Server) handleSetScreenMetrics(args json.RawMessage) (interface{}, error) {
	var a setScreenMetricsArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Tag == "" {
		a.Tag = s.metricsTag
	}
	if a.Quality == 0 {
		a.Quality = s.quality
	}

	img, err := imaging.Open(a.Path)
	if err != nil {
		return nil, err
	}
	d, err := s.detectorLocked()
	if err != nil {
		return nil, err
	}

	ratio := d.SetScreenMetrics(a.Tag, img, a.Quality)
	if !imaging.ValidRatio(ratio) {
		return nil, fmt.Errorf("%w: quality %v for %v", detector.ErrDegenerateScale, a.Quality, img.Bounds().Size())
	}
	s.metricsSet = true

	size := img.Bounds().Size()
	return &screenMetricsResult{
		Tag:          a.Tag,
		Ratio:        ratio,
		Width:        size.X,
		Height:       size.Y,
		ScaledWidth:  imaging.ScaleLength(size.X, ratio),
		ScaledHeight: imaging.ScaleLength(size.Y, ratio),
	}, nil
}

type setScreenArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSetScreen(args json.RawMessage) (interface{}, error) {
	var a setScreenArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	// Screens change every call; only conditions are cached.
	img, err := imaging.Open(a.Path)
	if err != nil {
		return nil, err
	}
	d, err := s.detectorLocked()
	if err != nil {
		return nil, err
	}

	if !s.metricsSet {
		if r := d.SetScreenMetrics(s.metricsTag, img, s.quality); !imaging.ValidRatio(r) {
			return nil, fmt.Errorf("%w: default metrics for %v", detector.ErrDegenerateScale, img.Bounds().Size())
		}
		s.metricsSet = true
	}
	if err := d.SetScreenImage(img); err != nil {
		return nil, err
	}

	info, _ := d.Screen()
	return info, nil
}

// === Detection Handlers ===

type detectArgs struct {
	ConditionPath   string     `json:"condition_path"`
	Threshold       *int       `json:"threshold"`
	Region          *regionArg `json:"region"`
	IncludeSnapshot bool       `json:"include_snapshot"`
}

type detectResult struct {
	detector.Result
	Area     *regionArg              `json:"area,omitempty"`
	Snapshot *imaging.SnapshotResult `json:"snapshot,omitempty"`
}

func (s *Server) handleDetect(args json.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	threshold := DefaultThreshold
	if a.Threshold != nil {
		threshold = *a.Threshold
	}

	d, cond, err := s.prepareDetection(a.ConditionPath)
	if err != nil {
		return nil, err
	}

	res := d.DetectCondition(cond, a.Region.rect(), threshold)
	out := newDetectResult(res)
	if res.Found && a.IncludeSnapshot {
		snap, err := d.Snapshot(res.Area)
		if err != nil {
			s.log.WithError(err).Warn("Failed to snapshot matched area")
		} else {
			out.Snapshot = snap
		}
	}
	return out, nil
}

type detectTextArgs struct {
	ConditionPath string     `json:"condition_path"`
	Text          string     `json:"text"`
	Region        *regionArg `json:"region"`
}

func (s *Server) handleDetectText(args json.RawMessage) (interface{}, error) {
	var a detectTextArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	d, cond, err := s.prepareDetection(a.ConditionPath)
	if err != nil {
		return nil, err
	}
	return newDetectResult(d.DetectText(cond, a.Region.rect(), a.Text)), nil
}

func (s *Server) prepareDetection(conditionPath string) (*detector.Detector, image.Image, error) {
	if conditionPath == "" {
		return nil, nil, errors.New("condition_path is required")
	}
	cond, err := s.cache.Load(conditionPath)
	if err != nil {
		return nil, nil, err
	}
	d, err := s.detectorLocked()
	if err != nil {
		return nil, nil, err
	}
	return d, cond, nil
}

func newDetectResult(res detector.Result) *detectResult {
	out := &detectResult{Result: res}
	if !res.Area.Empty() {
		out.Area = &regionArg{X1: res.Area.Min.X, Y1: res.Area.Min.Y, X2: res.Area.Max.X, Y2: res.Area.Max.Y}
	}
	return out
}

// === Lifecycle Handlers ===

func (s *Server) handleRelease() (interface{}, error) {
	released := s.det != nil
	stats := s.cache.Stats()
	cached := s.cache.Len()
	s.cache.Clear()
	if err := s.releaseLocked(); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"released":          released,
		"conditions_cached": cached,
		"condition_cache":   stats,
	}, nil
}

package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// regionSchema describes an optional full-size search rectangle.
var regionSchema = map[string]interface{}{
	"type":        "object",
	"description": "Optional search area in full-size screen pixels. Defaults to the whole screen.",
	"properties": map[string]interface{}{
		"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
		"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
		"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
		"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
	},
	"required": []string{"x1", "y1", "x2", "y2"},
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Screen Setup
		{
			Name:        "condition_set_screen_metrics",
			Description: "Define the scale ratio for screens shaped like the given screenshot. Quality is the target length in pixels of the longer scaled side (100-10000); larger is more precise and slower. The tag names the screen geometry.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to a screenshot with the target screen size",
					},
					"tag": map[string]interface{}{
						"type":        "string",
						"description": "Name of the screen geometry. Default \"default\"",
					},
					"quality": map[string]interface{}{
						"type":        "number",
						"description": "Target scaled length of the longer side. Default 480",
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "condition_set_screen",
			Description: "Load the current screenshot as the screen that subsequent detections search. Uses the active screen metrics, or default metrics if none were set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the screenshot",
					},
				},
				"required": []string{"path"},
			},
		},

		// Detection
		{
			Name:        "condition_detect",
			Description: "Find a condition image on the current screen by template correlation. Returns found, the full-size center x/y and the confidence. Threshold is 0-100: a candidate must score above (100-threshold)/100 and its mean color must differ from the condition's by less than threshold percent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"condition_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the condition image, captured at full screen resolution",
					},
					"threshold": map[string]interface{}{
						"type":        "integer",
						"description": "Tolerance from 0 (exact) to 100 (anything). Default 80",
						"minimum":     0,
						"maximum":     100,
					},
					"region": regionSchema,
					"include_snapshot": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the matched screen area as base64 PNG. Default false",
					},
				},
				"required": []string{"condition_path"},
			},
		},
		{
			Name:        "condition_detect_text",
			Description: "Find a condition image on the current screen and confirm it by recognizing text on the screen. Succeeds when the recognized text contains the given text. Gives up after 100 recognition attempts. On success, words lists the recognized words of the text with their screen boxes when the recognizer provides them.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"condition_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the condition image",
					},
					"text": map[string]interface{}{
						"type":        "string",
						"description": "Text that must appear on the screen",
					},
					"region": regionSchema,
				},
				"required": []string{"condition_path", "text"},
			},
		},

		// Lifecycle
		{
			Name:        "condition_release",
			Description: "Release the detector, its text recognizer and cached condition images. The next call starts fresh.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
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

package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func emptySchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "detect_select_file",
			Description: "Select an image file for detection. Files over 10MB are rejected and the previous selection is kept. Selecting clears any earlier result.",
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
		{
			Name:        "detect_submit",
			Description: "Send the selected image to the detection service and wait for the annotated result. Optionally writes the result JPEG to output_path.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional path to write the annotated JPEG to",
					},
				},
			},
		},
		{
			Name:        "detect_reset",
			Description: "Clear the selection, preview, result and error. A running detection is cancelled and its outcome discarded.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "detect_state",
			Description: "Report the current selection, phase, error message and detection count.",
			InputSchema: emptySchema(),
		},
		{
			Name:        "detect_health",
			Description: "Check that the detection service is reachable and healthy.",
			InputSchema: emptySchema(),
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

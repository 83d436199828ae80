package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/ironsheep/golfball-detect/internal/imaging"
	"github.com/ironsheep/golfball-detect/internal/upload"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "detect_select_file").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// StateSummary is the controller state as reported to MCP clients. Data
// URIs are replaced by flags since clients read files, not base64.
type StateSummary struct {
	SelectedFile *upload.FileInfo `json:"selected_file"`
	Phase        upload.Phase     `json:"phase"`
	Loading      bool             `json:"loading"`
	Error        string           `json:"error,omitempty"`
	HasPreview   bool             `json:"has_preview"`
	HasResult    bool             `json:"has_result"`
	Detections   int              `json:"detections"`
	SubmissionID string           `json:"submission_id,omitempty"`

	// OutputPath is set when detect_submit wrote the result to disk.
	OutputPath string `json:"output_path,omitempty"`
}

func summarize(st upload.State) *StateSummary {
	return &StateSummary{
		SelectedFile: st.SelectedFile,
		Phase:        st.Phase,
		Loading:      st.Loading,
		Error:        st.ErrorMessage,
		HasPreview:   st.PreviewDataURI != "",
		HasResult:    st.ResultDataURI != "",
		Detections:   len(st.Detections),
		SubmissionID: st.SubmissionID,
	}
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
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "detect_select_file":
		return s.handleSelectFile(ctx, args)
	case "detect_submit":
		return s.handleSubmit(ctx, args)
	case "detect_reset":
		s.ctrl.Reset()
		return summarize(s.ctrl.State()), nil
	case "detect_state":
		return summarize(s.ctrl.State()), nil
	case "detect_health":
		return s.handleHealth(ctx)
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
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

type selectFileArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleSelectFile(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a selectFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}

	f, err := upload.OpenFile(a.Path)
	if err != nil {
		return nil, err
	}
	if err := s.ctrl.SelectFile(f); err != nil {
		return nil, err
	}
	if err := s.ctrl.WaitPreview(ctx); err != nil {
		return nil, err
	}
	return summarize(s.ctrl.State()), nil
}

type submitArgs struct {
	OutputPath string `json:"output_path"`
}

func (s *Server) handleSubmit(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a submitArgs
	if len(args) > 0 {
		if err := json.Unmarshal(args, &a); err != nil {
			return nil, err
		}
	}

	if err := s.ctrl.Submit(ctx); err != nil {
		if msg := s.ctrl.State().ErrorMessage; msg != "" {
			return nil, fmt.Errorf("%s: %w", msg, err)
		}
		return nil, err
	}

	st := s.ctrl.State()
	summary := summarize(st)
	if a.OutputPath != "" {
		_, data, err := imaging.DecodeDataURI(st.ResultDataURI)
		if err != nil {
			return nil, fmt.Errorf("invalid result image: %w", err)
		}
		if err := os.WriteFile(a.OutputPath, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", a.OutputPath, err)
		}
		summary.OutputPath = a.OutputPath
	}
	return summary, nil
}

func (s *Server) handleHealth(ctx context.Context) (interface{}, error) {
	if s.health == nil {
		return nil, errors.New("no detection service configured")
	}
	if err := s.health.Health(ctx); err != nil {
		return nil, err
	}
	return map[string]string{"status": "healthy"}, nil
}

package upload

import (
	"encoding/json"
	"fmt"
)

// Phase is the coarse position of the controller in its state machine.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhaseSelected
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseEmpty:      "empty",
	PhaseSelected:   "selected",
	PhaseSubmitting: "submitting",
	PhaseSucceeded:  "succeeded",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name written by MarshalText.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// State is a point-in-time copy of the controller's fields. Empty strings
// stand for "unset".
type State struct {
	// SelectedFile is nil when no file is selected.
	SelectedFile *FileInfo `json:"selected_file"`

	// PreviewDataURI is the local preview of the selected file.
	PreviewDataURI string `json:"preview,omitempty"`

	// ResultDataURI is the annotated image returned by the service.
	ResultDataURI string `json:"result,omitempty"`

	// Loading is true while a submit is in flight.
	Loading bool `json:"loading"`

	// ErrorMessage is the user-facing failure text.
	ErrorMessage string `json:"error,omitempty"`

	// Detections are the records of the last success, cleared with ResultDataURI.
	Detections []json.RawMessage `json:"detections,omitempty"`

	// SubmissionID identifies the in-flight or most recent submit.
	SubmissionID string `json:"submission_id,omitempty"`

	Phase Phase `json:"phase"`
}

// Empty reports whether s has no selection, preview, result or error.
func (s State) Empty() bool {
	return s.SelectedFile == nil && s.PreviewDataURI == "" &&
		s.ResultDataURI == "" && s.ErrorMessage == ""
}

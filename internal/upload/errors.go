package upload

import (
	"errors"
	"fmt"
)

// User-facing messages. They are fixed strings shown verbatim.
const (
	MsgFileTooLarge     = "File size must be less than 10MB"
	MsgProcessingFailed = "Failed to process image"
	MsgTryAgain         = "Error processing image. Please try again."
)

var (
	// ErrNoFileSelected is returned by Submit when there is nothing to send.
	ErrNoFileSelected = errors.New("upload: no file selected")

	// ErrSubmitInFlight is returned by Submit while another submit runs.
	ErrSubmitInFlight = errors.New("upload: a submit is already in flight")

	// ErrSuperseded is returned by Submit when a reset or a new selection
	// happened before the response arrived. The outcome was discarded.
	ErrSuperseded = errors.New("upload: submission superseded")

	// ErrProcessingFailed is returned by Submit when the service answered
	// with success=false.
	ErrProcessingFailed = errors.New("upload: detection service could not process the image")
)

// ValidationError reports a file rejected before any network call.
type ValidationError struct {
	Name  string
	Size  int64
	Limit int64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("file %s is %d bytes, limit is %d bytes", e.Name, e.Size, e.Limit)
}

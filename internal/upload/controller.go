package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ironsheep/golfball-detect/internal/detect"
	"github.com/ironsheep/golfball-detect/internal/imaging"
)

// MaxFileSize is the largest accepted upload: 10 MiB.
const MaxFileSize int64 = 10 * 1024 * 1024

// ResultMediaType labels every result image. The service always encodes
// its annotated output as JPEG regardless of the uploaded format.
const ResultMediaType = "image/jpeg"

// Detector is the part of the detection client the controller needs.
type Detector interface {
	Detect(ctx context.Context, up detect.Upload) (*detect.Response, error)
}

// Option configures a Controller.
type Option func(*Controller)

// WithIDGenerator replaces the submission id source (uuid by default).
func WithIDGenerator(gen func() string) Option {
	return func(c *Controller) { c.newID = gen }
}

// WithLogger sends the controller's log lines to l instead of the
// standard logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// Controller owns the upload state and its three operations: SelectFile,
// Submit and Reset. All methods are safe for concurrent use.
//
// Select and reset bump a generation counter. Asynchronous work (the
// preview decode and the network submit) captures the generation it
// started in and drops its outcome if the counter has moved on.
type Controller struct {
	detector Detector
	flight   *semaphore.Weighted
	newID    func() string
	logger   *log.Logger

	mu           sync.Mutex
	file         *File
	preview      string
	result       string
	detections   []json.RawMessage
	errMsg       string
	loading      bool
	phase        Phase
	submissionID string
	gen          uint64
	cancel       context.CancelFunc
	previewDone  chan struct{}
}

// NewController creates a controller in the Empty state.
func NewController(d Detector, opts ...Option) *Controller {
	c := &Controller{
		detector: d,
		flight:   semaphore.NewWeighted(1),
		newID:    uuid.NewString,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a snapshot of the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		PreviewDataURI: c.preview,
		ResultDataURI:  c.result,
		Loading:        c.loading,
		ErrorMessage:   c.errMsg,
		SubmissionID:   c.submissionID,
		Phase:          c.phase,
	}
	if c.file != nil {
		info := c.file.Info()
		s.SelectedFile = &info
	}
	if len(c.detections) > 0 {
		s.Detections = append([]json.RawMessage(nil), c.detections...)
	}
	return s
}

// SelectFile makes f the current selection.
//
// A file larger than MaxFileSize is rejected with *ValidationError: the
// error message is set and the previous selection and preview stay as they
// were. Otherwise the previous outcome is cleared, any in-flight submit is
// invalidated, and the preview is decoded in the background.
func (c *Controller) SelectFile(f *File) error {
	if f == nil {
		return fmt.Errorf("upload: nil file")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if f.Size > MaxFileSize {
		c.errMsg = MsgFileTooLarge
		// A message and a result are never shown together.
		c.clearResultLocked()
		if c.phase == PhaseSucceeded {
			c.phase = PhaseSelected
		}
		c.logger.Printf("Rejected %s: %d bytes exceeds %d", f.Name, f.Size, MaxFileSize)
		return &ValidationError{Name: f.Name, Size: f.Size, Limit: MaxFileSize}
	}

	if !f.IsImage() {
		c.logger.Printf("Warning: %s has non-image type %q", f.Name, f.Type)
	}

	c.invalidateLocked()
	c.file = f
	c.preview = ""
	c.clearResultLocked()
	c.errMsg = ""
	c.phase = PhaseSelected

	done := make(chan struct{})
	c.previewDone = done
	go c.decodePreview(c.gen, f, done)

	return nil
}

// WaitPreview blocks until the current selection's preview decode has
// finished, or ctx is done. It returns immediately when nothing is
// pending.
func (c *Controller) WaitPreview(ctx context.Context) error {
	c.mu.Lock()
	done := c.previewDone
	c.mu.Unlock()

	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) decodePreview(gen uint64, f *File, done chan struct{}) {
	defer close(done)

	uri, err := f.DataURI()

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if err != nil {
		c.logger.Printf("Preview decode failed for %s: %v", f.Name, err)
		return
	}
	c.preview = uri
}

// Submit sends the selected file for detection and blocks until the
// outcome is in state.
//
// Returns ErrNoFileSelected (state untouched) when nothing is selected and
// ErrSubmitInFlight (state untouched) while another submit runs. On
// failure the error message is set and the classified error returned:
// *detect.ServiceError, *detect.TransportError or ErrProcessingFailed.
// If Reset or SelectFile ran while waiting, the outcome is discarded and
// ErrSuperseded returned. Loading is false again when Submit returns.
func (c *Controller) Submit(ctx context.Context) error {
	sub, err := c.begin(ctx)
	if err != nil {
		return err
	}
	return sub.run()
}

// Start is Submit without the wait. The precondition checks run before it
// returns; the request runs in the background and its result is delivered
// once on the returned channel.
func (c *Controller) Start(ctx context.Context) (<-chan error, error) {
	sub, err := c.begin(ctx)
	if err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- sub.run() }()
	return done, nil
}

// submission is one accepted Submit between begin and run.
type submission struct {
	c      *Controller
	ctx    context.Context
	cancel context.CancelFunc
	file   *File
	gen    uint64
	id     string
}

// begin checks the preconditions, takes the single-flight slot and moves
// the state to Submitting.
func (c *Controller) begin(ctx context.Context) (*submission, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.file == nil {
		return nil, ErrNoFileSelected
	}
	if !c.flight.TryAcquire(1) {
		return nil, ErrSubmitInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	sub := &submission{
		c:      c,
		ctx:    ctx,
		cancel: cancel,
		file:   c.file,
		gen:    c.gen,
		id:     c.newID(),
	}

	c.cancel = cancel
	c.submissionID = sub.id
	c.loading = true
	c.errMsg = ""
	c.clearResultLocked()
	c.phase = PhaseSubmitting
	return sub, nil
}

func (s *submission) run() error {
	c := s.c
	defer func() {
		s.cancel()
		c.mu.Lock()
		if s.gen == c.gen {
			c.cancel = nil
		}
		c.loading = false
		c.mu.Unlock()
		c.flight.Release(1)
	}()

	resp, err := c.send(s.ctx, s.file, s.id)
	return c.finish(s.gen, s.id, resp, err)
}

func (c *Controller) send(ctx context.Context, f *File, id string) (*detect.Response, error) {
	body, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.Name, err)
	}
	defer body.Close()

	return c.detector.Detect(ctx, detect.Upload{
		Name:      f.Name,
		Type:      f.Type,
		Body:      body,
		RequestID: id,
	})
}

// finish applies a submit outcome if its generation is still current.
func (c *Controller) finish(gen uint64, id string, resp *detect.Response, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		c.logger.Printf("Discarding outcome of superseded submission %s", id)
		return ErrSuperseded
	}

	switch {
	case err != nil:
		c.errMsg = MsgTryAgain
		var se *detect.ServiceError
		if errors.As(err, &se) && se.Message != "" {
			c.errMsg = se.Message
		}
		c.clearResultLocked()
		c.phase = PhaseFailed
		c.logger.Printf("Submission %s failed: %v", id, err)
		return err

	case !resp.Success:
		c.errMsg = MsgProcessingFailed
		c.clearResultLocked()
		c.phase = PhaseFailed
		c.logger.Printf("Submission %s: service could not process image", id)
		return ErrProcessingFailed

	default:
		c.result = imaging.DataURIPrefix(ResultMediaType) + resp.Image
		c.detections = resp.Detections
		c.errMsg = ""
		c.phase = PhaseSucceeded
		c.logger.Printf("Submission %s: %d detections", id, len(resp.Detections))
		return nil
	}
}

// Reset returns the controller to Empty. It does not change Loading: an
// in-flight submit is cancelled and its outcome discarded, but Loading
// stays true until that submit has unwound.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.invalidateLocked()
	c.file = nil
	c.preview = ""
	c.clearResultLocked()
	c.errMsg = ""
	c.phase = PhaseEmpty
	c.previewDone = nil
}

// invalidateLocked starts a new generation and cancels the in-flight
// submit of the old one.
func (c *Controller) invalidateLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) clearResultLocked() {
	c.result = ""
	c.detections = nil
}

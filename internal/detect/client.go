package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DetectPath is the inference endpoint, relative to the base URL.
	DetectPath = "/detect/"

	// HealthPath is the liveness endpoint, relative to the base URL.
	HealthPath = "/health"

	// FileField is the multipart part name the service reads the image from.
	FileField = "file"

	// RequestIDHeader carries the submission id for log correlation.
	RequestIDHeader = "X-Request-ID"
)

// Response is the JSON body returned by the detection service.
type Response struct {
	Success bool `json:"success"`

	// Image is the annotated image as base64 JPEG, present iff Success.
	Image string `json:"image,omitempty"`

	// Detections are opaque per-object records, present iff Success.
	Detections []json.RawMessage `json:"detections,omitempty"`

	// Error is the service's failure message, present iff !Success.
	Error string `json:"error,omitempty"`
}

// Upload describes the file part of a detection request.
type Upload struct {
	// Name is the filename reported in the multipart header.
	Name string

	// Type is the part's Content-Type. Empty lets the client sniff it.
	Type string

	// Body yields the raw image bytes.
	Body io.Reader

	// RequestID, if set, is sent as X-Request-ID.
	RequestID string
}

// ServiceError reports a non-2xx answer from the service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("detection service returned status %d", e.Status)
	}
	return fmt.Sprintf("detection service returned status %d: %s", e.Status, e.Message)
}

// TransportError reports a request that produced no usable answer.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithHTTPClient swaps the underlying *http.Client, typically for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.hc = hc }
}

// Client talks to one detection service instance. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	hc      *http.Client
	http    *resty.Client
}

// NewClient creates a client rooted at baseURL (no trailing slash needed).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{baseURL: strings.TrimRight(baseURL, "/")}
	for _, opt := range opts {
		opt(c)
	}

	if c.hc != nil {
		c.http = resty.NewWithClient(c.hc)
	} else {
		c.http = resty.New()
	}
	c.http.SetBaseURL(c.baseURL)
	if c.timeout > 0 {
		c.http.SetTimeout(c.timeout)
	}
	return c
}

// BaseURL returns the service root this client posts to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Detect uploads one image and returns the decoded answer.
//
// A nil error means the service answered 2xx with a JSON body; the caller
// must still check Response.Success. Non-2xx answers return *ServiceError,
// everything else *TransportError.
func (c *Client) Detect(ctx context.Context, up Upload) (*Response, error) {
	if up.Body == nil {
		return nil, fmt.Errorf("detect: upload has no body")
	}
	name := up.Name
	if name == "" {
		name = "image"
	}

	req := c.http.R().SetContext(ctx)
	if up.Type != "" {
		req.SetMultipartField(FileField, name, up.Type, up.Body)
	} else {
		req.SetFileReader(FileField, name, up.Body)
	}
	if up.RequestID != "" {
		req.SetHeader(RequestIDHeader, up.RequestID)
	}

	resp, err := req.Post(DetectPath)
	if err != nil {
		return nil, &TransportError{Op: "post " + DetectPath, Err: err}
	}

	var body Response
	decodeErr := json.Unmarshal(resp.Body(), &body)

	if !resp.IsSuccess() {
		// The message is optional on failures, so an undecodable body
		// still counts as a service answer.
		return nil, &ServiceError{Status: resp.StatusCode(), Message: body.Error}
	}
	if decodeErr != nil {
		return nil, &TransportError{Op: "decode response", Err: decodeErr}
	}

	return &body, nil
}

// Health probes the service's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}

	resp, err := c.http.R().SetContext(ctx).Get(HealthPath)
	if err != nil {
		return &TransportError{Op: "get " + HealthPath, Err: err}
	}
	if !resp.IsSuccess() {
		return &ServiceError{Status: resp.StatusCode()}
	}
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return &TransportError{Op: "decode health", Err: err}
	}
	if body.Status != "healthy" {
		return fmt.Errorf("detection service reports status %q", body.Status)
	}
	return nil
}

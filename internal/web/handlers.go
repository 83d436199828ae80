package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/golfball-detect/internal/imaging"
	"github.com/ironsheep/golfball-detect/internal/upload"
)

const (
	// maxRequestBytes caps the upload request body. It leaves room above
	// MaxFileSize so that slightly oversized files still reach the
	// controller's own check and message.
	maxRequestBytes = 2 * upload.MaxFileSize

	defaultThumbnailSize = 256
	maxThumbnailSize     = 2048
)

type errorBody struct {
	Error string        `json:"error"`
	State *upload.State `json:"state,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleState(c *gin.Context) {
	c.JSON(http.StatusOK, s.ctrl.State())
}

// handleSelectFile accepts a multipart form with the image under "file".
// It answers once the preview is decoded.
func (s *Server) handleSelectFile(c *gin.Context) {
	if c.Request.ContentLength > maxRequestBytes {
		s.rejectOversizeBody(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxRequestBytes)

	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.rejectOversizeBody(c)
			return
		}
		c.JSON(http.StatusBadRequest, errorBody{Error: "No file uploaded"})
		return
	}

	f, err := fileFromHeader(fh)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: "Failed to read file"})
		return
	}

	var ve *upload.ValidationError
	if err := s.ctrl.SelectFile(f); errors.As(err, &ve) {
		s.rejectTooLarge(c)
		return
	} else if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	if err := s.ctrl.WaitPreview(c.Request.Context()); err != nil {
		// Client went away; the decode still completes in the background.
		return
	}
	c.JSON(http.StatusOK, s.ctrl.State())
}

// rejectOversizeBody reports a body too large to parse through the
// controller so its state carries the message.
func (s *Server) rejectOversizeBody(c *gin.Context) {
	size := c.Request.ContentLength
	if size <= upload.MaxFileSize {
		size = maxRequestBytes
	}
	_ = s.ctrl.SelectFile(&upload.File{Name: "upload", Size: size})
	s.rejectTooLarge(c)
}

func (s *Server) rejectTooLarge(c *gin.Context) {
	st := s.ctrl.State()
	c.JSON(http.StatusRequestEntityTooLarge, errorBody{Error: upload.MsgFileTooLarge, State: &st})
}

// fileFromHeader loads an accepted part into memory. Oversized parts are
// described without reading so the controller rejects them by size.
func fileFromHeader(fh *multipart.FileHeader) (*upload.File, error) {
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "application/octet-stream" {
		mimeType = ""
	}

	if fh.Size > upload.MaxFileSize {
		return &upload.File{Name: fh.Filename, Type: mimeType, Size: fh.Size}, nil
	}

	part, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return nil, err
	}
	return upload.NewFile(fh.Filename, mimeType, data), nil
}

// handleSubmit starts a submit and answers 202 without waiting for the
// service. Clients poll /api/state for the outcome.
func (s *Server) handleSubmit(c *gin.Context) {
	done, err := s.ctrl.Start(s.bg)
	switch {
	case errors.Is(err, upload.ErrNoFileSelected):
		c.JSON(http.StatusBadRequest, errorBody{Error: "No file selected"})
		return
	case errors.Is(err, upload.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, errorBody{Error: "A detection is already in progress"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := <-done; err != nil && !errors.Is(err, upload.ErrSuperseded) {
			s.logger.Printf("Background submit finished with error: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, s.ctrl.State())
}

func (s *Server) handleReset(c *gin.Context) {
	s.ctrl.Reset()
	c.JSON(http.StatusOK, s.ctrl.State())
}

func (s *Server) handleResultImage(c *gin.Context) {
	uri := s.ctrl.State().ResultDataURI
	if uri == "" {
		c.JSON(http.StatusNotFound, errorBody{Error: "No result available"})
		return
	}
	s.writeDataURI(c, uri)
}

func (s *Server) handlePreviewThumbnail(c *gin.Context) {
	size, err := strconv.Atoi(c.DefaultQuery("size", strconv.Itoa(defaultThumbnailSize)))
	if err != nil || size <= 0 || size > maxThumbnailSize {
		c.JSON(http.StatusBadRequest, errorBody{Error: "size must be between 1 and " + strconv.Itoa(maxThumbnailSize)})
		return
	}

	uri := s.ctrl.State().PreviewDataURI
	if uri == "" {
		c.JSON(http.StatusNotFound, errorBody{Error: "No preview available"})
		return
	}

	_, data, err := imaging.DecodeDataURI(uri)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody{Error: err.Error()})
		return
	}
	thumb, err := imaging.Thumbnail(data, size)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody{Error: "Preview is not a decodable image"})
		return
	}
	c.Data(http.StatusOK, thumb.MimeType, thumb.Data)
}

func (s *Server) writeDataURI(c *gin.Context, uri string) {
	mediaType, data, err := imaging.DecodeDataURI(uri)
	if err != nil {
		c.JSON(http.StatusBadGateway, errorBody{Error: "Result image is not valid base64"})
		return
	}
	c.Data(http.StatusOK, mediaType, data)
}

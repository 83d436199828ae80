package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ironsheep/golfball-detect/internal/detect"
	"github.com/ironsheep/golfball-detect/internal/upload"
)

// resultJPEG is "fakejpeg" in base64, which is enough for the byte
// round trip checked by the result endpoint.
const resultJPEG = "ZmFrZWpwZWc="

func init() {
	gin.SetMode(gin.TestMode)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{255, 255, 255, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return buf.Bytes()
}

// stubService answers /detect/ with handler, or with a canned success.
func stubService(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"success":true,"image":"`+resultJPEG+`","detections":[{"x":1}]}`)
		}
	}
	mux := http.NewServeMux()
	mux.HandleFunc(detect.DetectPath, handler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, svc *httptest.Server) *Server {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	ctrl := upload.NewController(detect.NewClient(svc.URL), upload.WithLogger(quiet))
	s := New(ctrl, quiet)
	t.Cleanup(s.Close)
	return s
}

func multipartBody(t *testing.T, name, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(map[string][]string)
	h["Content-Disposition"] = []string{`form-data; name="file"; filename="` + name + `"`}
	if contentType != "" {
		h["Content-Type"] = []string{contentType}
	}
	part, err := mw.CreatePart(h)
	if err != nil {
		t.Fatalf("failed to create part: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, s *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) upload.State {
	t.Helper()
	var st upload.State
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
		t.Fatalf("failed to decode state %q: %v", rec.Body.String(), err)
	}
	return st
}

func uploadPNG(t *testing.T, s *Server) upload.State {
	t.Helper()
	body, ct := multipartBody(t, "course.png", "image/png", pngBytes(t, 8, 6))
	rec := do(t, s, http.MethodPost, "/api/file", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: got %d, body %s", rec.Code, rec.Body.String())
	}
	return decodeState(t, rec)
}

// waitIdle polls /api/state until no submit is in flight.
func waitIdle(t *testing.T, s *Server) upload.State {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := decodeState(t, do(t, s, http.MethodGet, "/api/state", nil, ""))
		if !st.Loading && st.Phase != upload.PhaseSubmitting {
			return st
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("submit did not finish in time")
	return upload.State{}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	rec := do(t, s, http.MethodGet, "/healthz", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestStateStartsEmpty(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	st := decodeState(t, do(t, s, http.MethodGet, "/api/state", nil, ""))
	if st.SelectedFile != nil || st.PreviewDataURI != "" || st.ResultDataURI != "" || st.Loading || st.ErrorMessage != "" {
		t.Errorf("expected empty state, got %+v", st)
	}
}

func TestSelectFile_SetsPreview(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	st := uploadPNG(t, s)

	if st.SelectedFile == nil || st.SelectedFile.Name != "course.png" {
		t.Fatalf("selected file: got %+v", st.SelectedFile)
	}
	if !strings.HasPrefix(st.PreviewDataURI, "data:image/png;base64,") {
		t.Errorf("preview: got %.40q", st.PreviewDataURI)
	}
}

func TestSelectFile_SniffsOctetStream(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	body, ct := multipartBody(t, "blob", "application/octet-stream", pngBytes(t, 4, 4))
	rec := do(t, s, http.MethodPost, "/api/file", body, ct)
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	if st := decodeState(t, rec); st.SelectedFile == nil || st.SelectedFile.Type != "image/png" {
		t.Errorf("expected sniffed image/png, got %+v", st.SelectedFile)
	}
}

func TestSelectFile_MissingPart(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	rec := do(t, s, http.MethodPost, "/api/file", strings.NewReader(""), "text/plain")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestSelectFile_TooLarge(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	uploadPNG(t, s)

	big := make([]byte, upload.MaxFileSize+1)
	body, ct := multipartBody(t, "huge.png", "image/png", big)
	rec := do(t, s, http.MethodPost, "/api/file", body, ct)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("got %d, want 413", rec.Code)
	}
	var got errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error != upload.MsgFileTooLarge {
		t.Errorf("error: got %q", got.Error)
	}
	if got.State == nil || got.State.SelectedFile == nil || got.State.SelectedFile.Name != "course.png" {
		t.Errorf("previous selection should be kept, got %+v", got.State)
	}
}

func TestSubmit_NoFile(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	rec := do(t, s, http.MethodPost, "/api/submit", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("got %d, want 400", rec.Code)
	}
}

func TestSubmit_Success(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	uploadPNG(t, s)

	rec := do(t, s, http.MethodPost, "/api/submit", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("got %d, want 202", rec.Code)
	}

	st := waitIdle(t, s)
	if st.ResultDataURI != "data:image/jpeg;base64,"+resultJPEG {
		t.Errorf("result: got %q", st.ResultDataURI)
	}
	if st.ErrorMessage != "" {
		t.Errorf("unexpected error %q", st.ErrorMessage)
	}
	if len(st.Detections) != 1 {
		t.Errorf("detections: got %d, want 1", len(st.Detections))
	}

	img := do(t, s, http.MethodGet, "/api/result.jpg", nil, "")
	if img.Code != http.StatusOK {
		t.Fatalf("result.jpg: got %d", img.Code)
	}
	if img.Header().Get("Content-Type") != "image/jpeg" {
		t.Errorf("content type: got %q", img.Header().Get("Content-Type"))
	}
	if img.Body.String() != "fakejpeg" {
		t.Errorf("result bytes: got %q", img.Body.String())
	}
}

func TestSubmit_ServiceFailure(t *testing.T) {
	svc := stubService(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":false}`)
	})
	s := newTestServer(t, svc)
	uploadPNG(t, s)

	do(t, s, http.MethodPost, "/api/submit", nil, "")
	st := waitIdle(t, s)
	if st.ErrorMessage != upload.MsgProcessingFailed {
		t.Errorf("error: got %q", st.ErrorMessage)
	}
	if st.ResultDataURI != "" {
		t.Error("result should be empty on failure")
	}
}

func TestSubmit_InFlightConflict(t *testing.T) {
	release := make(chan struct{})
	svc := stubService(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"success":true,"image":"`+resultJPEG+`"}`)
	})
	s := newTestServer(t, svc)
	uploadPNG(t, s)

	if rec := do(t, s, http.MethodPost, "/api/submit", nil, ""); rec.Code != http.StatusAccepted {
		t.Fatalf("first submit: got %d", rec.Code)
	}
	if rec := do(t, s, http.MethodPost, "/api/submit", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("second submit: got %d, want 409", rec.Code)
	}
	close(release)
	waitIdle(t, s)
}

func TestReset(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	uploadPNG(t, s)

	rec := do(t, s, http.MethodPost, "/api/reset", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d", rec.Code)
	}
	st := decodeState(t, rec)
	if st.SelectedFile != nil || st.PreviewDataURI != "" || st.Phase != upload.PhaseEmpty {
		t.Errorf("expected empty state after reset, got %+v", st)
	}
}

func TestResultImage_NotFound(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	if rec := do(t, s, http.MethodGet, "/api/result.jpg", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}
}

func TestPreviewThumbnail(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))

	if rec := do(t, s, http.MethodGet, "/api/preview/thumbnail", nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("without preview: got %d, want 404", rec.Code)
	}

	body, ct := multipartBody(t, "wide.png", "image/png", pngBytes(t, 400, 100))
	if rec := do(t, s, http.MethodPost, "/api/file", body, ct); rec.Code != http.StatusOK {
		t.Fatalf("upload: got %d", rec.Code)
	}

	rec := do(t, s, http.MethodGet, "/api/preview/thumbnail?size=100", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("got %d, body %s", rec.Code, rec.Body.String())
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("thumbnail not decodable: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 25 {
		t.Errorf("thumbnail size: got %dx%d, want 100x25", cfg.Width, cfg.Height)
	}
}

func TestPreviewThumbnail_BadSize(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	for _, q := range []string{"abc", "0", "-5", "99999"} {
		rec := do(t, s, http.MethodGet, "/api/preview/thumbnail?size="+q, nil, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("size=%s: got %d, want 400", q, rec.Code)
		}
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, stubService(t, nil))
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errc:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

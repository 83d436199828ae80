package upload

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ironsheep/golfball-detect/internal/imaging"
)

// File is a user-chosen blob: a name, a declared size and MIME type, and a
// way to read its content. The content is only read when a preview is
// decoded or the file is submitted.
type File struct {
	Name string
	Type string
	Size int64

	open func() (io.ReadCloser, error)
}

// FileInfo is the display-safe part of a File.
type FileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// NewFile wraps in-memory content. An empty mimeType is sniffed from data.
func NewFile(name, mimeType string, data []byte) *File {
	if mimeType == "" {
		mimeType = mimetype.Detect(data).String()
	}
	return &File{
		Name: name,
		Type: mimeType,
		Size: int64(len(data)),
		open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// NewFileFunc wraps content behind an opener, such as an uploaded
// multipart part. size is the declared size; an empty mimeType is sniffed
// from the content's header.
func NewFileFunc(name, mimeType string, size int64, open func() (io.ReadCloser, error)) (*File, error) {
	if mimeType == "" {
		rc, err := open()
		if err != nil {
			return nil, fmt.Errorf("failed to open %s: %w", name, err)
		}
		mt, err := mimetype.DetectReader(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to detect type of %s: %w", name, err)
		}
		mimeType = mt.String()
	}
	return &File{Name: name, Type: mimeType, Size: size, open: open}, nil
}

// OpenFile describes the file at path. Its declared size comes from the
// filesystem and its type from the content's header; the body is read
// lazily.
func OpenFile(path string) (*File, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to detect file type: %w", err)
	}

	return &File{
		Name: filepath.Base(path),
		Type: mt.String(),
		Size: stat.Size(),
		open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Open returns a fresh reader over the file's content.
func (f *File) Open() (io.ReadCloser, error) {
	if f.open == nil {
		return nil, fmt.Errorf("file %s has no content", f.Name)
	}
	return f.open()
}

// IsImage reports whether the declared type is in the image/* category.
func (f *File) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(f.Type), "image/")
}

// Info returns the display-safe description of f.
func (f *File) Info() FileInfo {
	return FileInfo{Name: f.Name, Type: f.Type, Size: f.Size}
}

// DataURI reads the whole file and encodes it as a data-URI labelled with
// its declared type.
func (f *File) DataURI() (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return imaging.EncodeDataURI(f.Type, data), nil
}

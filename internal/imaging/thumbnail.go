package imaging

import (
	"bytes"
	"encoding/base64"
	"fmt"

	"github.com/disintegration/imaging"
)

// ThumbnailResult contains a downscaled preview of an image.
type ThumbnailResult struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Data     []byte `json:"-"`
	MimeType string `json:"mime_type"`
}

// DataURI returns the thumbnail as a data-URI usable as an image source.
func (r *ThumbnailResult) DataURI() string {
	return EncodeDataURI(r.MimeType, r.Data)
}

// Thumbnail decodes data and fits it inside a maxSide x maxSide box,
// preserving aspect ratio, then re-encodes it as JPEG.
//
// Images already within the box are re-encoded at their original size,
// never upscaled. maxSide must be positive.
func Thumbnail(data []byte, maxSide int) (*ThumbnailResult, error) {
	if maxSide <= 0 {
		return nil, fmt.Errorf("invalid thumbnail size %d: must be positive", maxSide)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > maxSide || bounds.Dy() > maxSide {
		img = imaging.Fit(img, maxSide, maxSide, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	return &ThumbnailResult{
		Width:    img.Bounds().Dx(),
		Height:   img.Bounds().Dy(),
		Data:     buf.Bytes(),
		MimeType: "image/jpeg",
	}, nil
}

// DecodeBase64 decodes a standard base64 payload as returned by the
// detection service.
func DecodeBase64(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 image: %w", err)
	}
	return data, nil
}

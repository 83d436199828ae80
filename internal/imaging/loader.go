package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// Info contains metadata about an encoded image.
type Info struct {
	// Width is the image width in pixels, after EXIF orientation.
	Width int `json:"width"`

	// Height is the image height in pixels, after EXIF orientation.
	Height int `json:"height"`

	// Format is the decoder that recognised the bytes: "png", "jpeg",
	// "gif", "bmp", "tiff" or "webp".
	// Detection is based on file contents, not on names or declared types.
	Format string `json:"format"`

	// SizeBytes is the length of the encoded data.
	SizeBytes int64 `json:"size_bytes"`
}

// Inspect decodes data and reports its dimensions and format.
//
// Returns an error if data is empty or no registered decoder recognises it.
func Inspect(data []byte) (*Info, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("failed to inspect image: no data")
	}

	// DecodeConfig names the format without decoding every pixel.
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image config: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	return &Info{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: int64(len(data)),
	}, nil
}

// Package imaging provides the image helpers used around an upload: data-URI
// encoding, metadata inspection, and preview thumbnails.
//
// Nothing in this package alters the bytes that are submitted for
// detection. Inspection and thumbnails decode a private copy; data-URI
// encoding is a lossless base64 wrapping.
//
// # Data-URIs
//
// A data-URI inlines binary content as text:
//
//	data:<media type>;base64,<payload>
//
// EncodeDataURI and DecodeDataURI handle only the base64 form, which is the
// only form the browser's FileReader and the detection service produce.
//
// # Supported Formats
//
// Inspect and Thumbnail decode PNG, JPEG, GIF, BMP, TIFF (through
// github.com/disintegration/imaging) and WebP (through golang.org/x/image).
// JPEG EXIF orientation is applied, so reported dimensions match what a
// browser displays.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package imaging

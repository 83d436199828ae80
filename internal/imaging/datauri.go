package imaging

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// DefaultMediaType labels content whose type is unknown.
const DefaultMediaType = "application/octet-stream"

// EncodeDataURI wraps data as "data:<mediaType>;base64,<payload>".
// Parameters after the base type (e.g. "; charset=utf-8") are dropped.
func EncodeDataURI(mediaType string, data []byte) string {
	return DataURIPrefix(mediaType) + base64.StdEncoding.EncodeToString(data)
}

// DataURIPrefix returns the "data:<mediaType>;base64," header.
func DataURIPrefix(mediaType string) string {
	return "data:" + baseMediaType(mediaType) + ";base64,"
}

// DecodeDataURI splits a base64 data-URI into its media type and bytes.
func DecodeDataURI(uri string) (mediaType string, data []byte, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("not a data-URI")
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("malformed data-URI: missing payload separator")
	}
	mediaType, ok = strings.CutSuffix(header, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("unsupported data-URI encoding: only base64 is accepted")
	}
	if mediaType == "" {
		mediaType = DefaultMediaType
	}

	data, err = DecodeBase64(payload)
	if err != nil {
		return "", nil, err
	}
	return mediaType, data, nil
}

func baseMediaType(mediaType string) string {
	base, _, _ := strings.Cut(mediaType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" {
		return DefaultMediaType
	}
	return base
}

package pipeline

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF for DecodeConfig
	_ "image/jpeg" // register JPEG for DecodeConfig
	_ "image/png"  // register PNG for DecodeConfig
	"net/http"
	"strings"

	_ "golang.org/x/image/bmp"  // register BMP for DecodeConfig
	_ "golang.org/x/image/tiff" // register TIFF for DecodeConfig
	_ "golang.org/x/image/webp" // register WebP for DecodeConfig
)

// DefaultImageType is assumed when the signature is not recognized.
// Every renderer shipped with this module produces PNG.
const DefaultImageType = "image/png"

// imageTypes maps image.DecodeConfig format names to MIME types.
var imageTypes = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"gif":  "image/gif",
	"bmp":  "image/bmp",
	"tiff": "image/tiff",
	"webp": "image/webp",
}

// SniffImageType returns the MIME type of data judged from its binary
// signature. Caller-supplied labels are never consulted.
func SniffImageType(data []byte) string {
	if _, format, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		if t, ok := imageTypes[format]; ok {
			return t
		}
	}

	// Truncated headers fail DecodeConfig but still carry a signature.
	if t := http.DetectContentType(data); strings.HasPrefix(t, "image/") {
		return t
	}

	if isSVG(data) {
		return "image/svg+xml"
	}
	return DefaultImageType
}

// isSVG reports whether data looks like an SVG document.
func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	head = bytes.TrimSpace(head)
	if bytes.HasPrefix(head, []byte("<svg")) {
		return true
	}
	return bytes.HasPrefix(head, []byte("<?xml")) && bytes.Contains(head, []byte("<svg"))
}

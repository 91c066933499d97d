// imageprocessor.go - Image preparation before transmission to Gemini

package processor

import (
	"bytes"
	"path/filepath"
	"strings"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/disintegration/imaging"
)

// DetectMIMEType maps a filename extension to a MIME type, defaulting to
// image/jpeg the way camera uploads usually are.
func DetectMIMEType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "image/jpeg"
	}
}

// PrepareForAnalysis downscales oversized images before they are sent to the
// model. Large phone photos burn input tokens without improving comparison
// quality. If the payload cannot be decoded, or preprocessing is disabled,
// the original bytes pass through untouched.
func PrepareForAnalysis(data []byte, filename string) ([]byte, string) {
	mimeType := DetectMIMEType(filename)

	if !configs.ENABLE_IMAGE_PREPROCESSING || len(data) == 0 {
		return data, mimeType
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return data, mimeType
	}

	maxDim := configs.MAX_IMAGE_DIMENSION
	bounds := img.Bounds()
	if bounds.Dx() <= maxDim && bounds.Dy() <= maxDim {
		return data, mimeType
	}

	resized := imaging.Fit(img, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}

package processor

import (
	"bytes"
	"image"
	"testing"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectMIMEType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.jpg", "image/jpeg"},
		{"photo.JPEG", "image/jpeg"},
		{"shelf.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"display.webp", "image/webp"},
		{"unknown.bin", "image/jpeg"},
		{"noextension", "image/jpeg"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, DetectMIMEType(tt.filename), tt.filename)
	}
}

func TestPrepareForAnalysisPassThroughWhenDisabled(t *testing.T) {
	configs.ENABLE_IMAGE_PREPROCESSING = false
	defer func() { configs.ENABLE_IMAGE_PREPROCESSING = false }()

	data := []byte("raw-bytes")
	got, mimeType := PrepareForAnalysis(data, "photo.png")
	assert.Equal(t, data, got)
	assert.Equal(t, "image/png", mimeType)
}

func TestPrepareForAnalysisPassThroughOnUndecodableInput(t *testing.T) {
	configs.ENABLE_IMAGE_PREPROCESSING = true
	configs.MAX_IMAGE_DIMENSION = 2000
	defer func() { configs.ENABLE_IMAGE_PREPROCESSING = false }()

	data := []byte("not an image at all")
	got, mimeType := PrepareForAnalysis(data, "photo.jpg")
	assert.Equal(t, data, got)
	assert.Equal(t, "image/jpeg", mimeType)
}

func TestPrepareForAnalysisKeepsSmallImages(t *testing.T) {
	configs.ENABLE_IMAGE_PREPROCESSING = true
	configs.MAX_IMAGE_DIMENSION = 2000
	defer func() { configs.ENABLE_IMAGE_PREPROCESSING = false }()

	data := encodePNG(t, 100, 80)
	got, mimeType := PrepareForAnalysis(data, "small.png")
	assert.Equal(t, data, got, "images within the limit are untouched")
	assert.Equal(t, "image/png", mimeType)
}

func TestPrepareForAnalysisDownscalesOversizedImages(t *testing.T) {
	configs.ENABLE_IMAGE_PREPROCESSING = true
	configs.MAX_IMAGE_DIMENSION = 500
	defer func() {
		configs.ENABLE_IMAGE_PREPROCESSING = false
		configs.MAX_IMAGE_DIMENSION = 0
	}()

	data := encodePNG(t, 1500, 600)
	got, mimeType := PrepareForAnalysis(data, "big.png")
	require.NotEqual(t, data, got)
	assert.Equal(t, "image/jpeg", mimeType, "resized output is re-encoded as JPEG")

	resized, err := imaging.Decode(bytes.NewReader(got))
	require.NoError(t, err)
	bounds := resized.Bounds()
	assert.LessOrEqual(t, bounds.Dx(), 500)
	assert.LessOrEqual(t, bounds.Dy(), 500)
	// Aspect ratio is preserved by fitting, not stretching.
	assert.Equal(t, 500, bounds.Dx())
	assert.Equal(t, 200, bounds.Dy())
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractStoreCode(t *testing.T) {
	tests := []struct {
		filename string
		want     string
		ok       bool
	}{
		{"bvi_aisle1.jpg", "BVI", true},
		{"S002_display.png", "S002", true},
		{"s002-front.jpeg", "S002", true},
		{"12.jpg", "12", true},
		{"store7 photo.jpg", "STORE7", true},
		{"photos/bvi_1.jpg", "BVI", true}, // only the base name matters
		{"_leading_sep.jpg", "", false},
		{"-dash.jpg", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractStoreCode(tt.filename)
		assert.Equal(t, tt.ok, ok, "filename %q", tt.filename)
		assert.Equal(t, tt.want, got, "filename %q", tt.filename)
	}
}

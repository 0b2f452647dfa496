package web

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vbonduro/nutritionist/internal/analysis"
)

func TestImageMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00}
	png := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 'I', 'H', 'D', 'R'}
	webp := append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), make([]byte, 10)...)

	tests := []struct {
		name         string
		declared     string
		data         []byte
		wantMIME     string
		wantDetected bool
	}{
		{
			name:         "JPEG without declared type",
			data:         jpeg,
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "JPEG declared as octet-stream",
			declared:     "application/octet-stream",
			data:         jpeg,
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "nonstandard image/jpg falls back to detected",
			declared:     "image/jpg",
			data:         jpeg,
			wantMIME:     "image/jpeg",
			wantDetected: true,
		},
		{
			name:         "declared type passed through",
			declared:     "image/png",
			data:         png,
			wantMIME:     "image/png",
			wantDetected: true,
		},
		{
			name:         "declared type with parameters",
			declared:     "image/webp; charset=binary",
			data:         webp,
			wantMIME:     "image/webp",
			wantDetected: true,
		},
		{
			name:         "GIF not accepted",
			data:         []byte("GIF89a\x01\x00\x01\x00"),
			wantDetected: false,
		},
		{
			name:         "RIFF but not WebP",
			data:         append([]byte("RIFF\x00\x00\x00\x00WAVEfmt "), make([]byte, 10)...),
			wantDetected: false,
		},
		{
			name:         "PDF disguised as image",
			declared:     "image/jpeg",
			data:         []byte("%PDF-1.4 malicious content"),
			wantDetected: false,
		},
		{
			name:         "empty",
			data:         []byte{},
			wantDetected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotMIME, gotDetected := imageMIME(tt.declared, tt.data)
			assert.Equal(t, tt.wantDetected, gotDetected)
			assert.Equal(t, tt.wantMIME, gotMIME)
		})
	}
}

func TestNewReportView(t *testing.T) {
	ok := newReportView(analysis.Success("# Report"))
	assert.True(t, ok.Submitted)
	assert.True(t, ok.OK)
	assert.Equal(t, "# Report", ok.Report)

	noImage := newReportView(analysis.Failure(analysis.InputError, analysis.ErrNoImage))
	assert.False(t, noImage.OK)
	assert.Equal(t, "Please upload an image before submitting.", noImage.Error)

	upstream := newReportView(analysis.Failure(analysis.UpstreamError, errors.New("quota exceeded")))
	assert.Equal(t, "quota exceeded", upstream.Error)
}

func TestRenderMarkdown(t *testing.T) {
	html := string(renderMarkdown("## Items\n\n| Food | Calories |\n|---|---|\n| Apple | 95 |\n"))
	assert.Contains(t, html, "<h2>Items</h2>")
	assert.Contains(t, html, "<table>")
	assert.Contains(t, html, "<td>Apple</td>")
}

func TestRenderMarkdownDropsRawHTML(t *testing.T) {
	html := string(renderMarkdown("Hello <script>alert(1)</script>"))
	assert.NotContains(t, html, "<script>")
	assert.Contains(t, html, "Hello")
}

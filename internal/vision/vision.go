package vision

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyReply is returned by every Generator whose model answered with no
// text. An empty report is never a success.
var ErrEmptyReply = errors.New("model returned an empty reply")

// IsEmptyReply reports whether text carries nothing to show the user.
func IsEmptyReply(text string) bool {
	return strings.TrimSpace(text) == ""
}

// NutritionistPrompt is the fixed instruction sent as the last part of every
// analysis request. Whether the photo shows raw ingredients or a prepared dish
// is left to the model; nothing here classifies the image.
const NutritionistPrompt = `You are an expert nutritionist. When shown an image of food, analyze it to:

1. List each food item with its estimated calorie count.
2. Create a table with all food items and their calories.
3. If the user uploads vegetables or ingredients and asks for a recipe, do a Google search and return a high-nutrition recipe suggestion.

Answer clearly and in structured format.`

// Generator sends an ordered list of parts to a hosted multimodal model and
// returns the text of its reply.
type Generator interface {
	Generate(ctx context.Context, parts []Part) (string, error)
}

// Part is one element of a multimodal request: either text or an image.
type Part struct {
	Text  string
	Image *Image
}

// Image is raw image bytes plus the MIME type the model needs to decode them.
type Image struct {
	MIMEType string
	Data     []byte
}

func TextPart(text string) Part {
	return Part{Text: text}
}

func ImagePart(mimeType string, data []byte) Part {
	return Part{Image: &Image{MIMEType: mimeType, Data: data}}
}

// IsImage reports whether p carries image data rather than text.
func (p Part) IsImage() bool {
	return p.Image != nil
}

// JoinText concatenates the non-empty text parts, separated by blank lines.
// Used by backends whose API takes a single prompt string.
func JoinText(parts []Part) string {
	texts := make([]string, 0, len(parts))
	for _, p := range parts {
		if p.IsImage() || strings.TrimSpace(p.Text) == "" {
			continue
		}
		texts = append(texts, p.Text)
	}
	return strings.Join(texts, "\n\n")
}

// Images returns the image payloads of parts in order.
func Images(parts []Part) []*Image {
	var imgs []*Image
	for _, p := range parts {
		if p.IsImage() {
			imgs = append(imgs, p.Image)
		}
	}
	return imgs
}

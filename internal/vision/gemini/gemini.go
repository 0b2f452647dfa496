package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/vbonduro/nutritionist/internal/vision"
)

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	return newGeminiGenerator(ctx, apiKey, model, "")
}

// newGeminiGenerator allows tests to point the client at a fake server.
func newGeminiGenerator(ctx context.Context, apiKey, model, baseURL string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

// buildContents maps the ordered parts onto a single user turn. Empty text
// parts are dropped because the Gemini API rejects them.
func buildContents(parts []vision.Part) []*genai.Content {
	gparts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsImage():
			gparts = append(gparts, genai.NewPartFromBytes(p.Image.Data, p.Image.MIMEType))
		case p.Text != "":
			gparts = append(gparts, genai.NewPartFromText(p.Text))
		}
	}
	return []*genai.Content{genai.NewContentFromParts(gparts, genai.RoleUser)}
}

func (g *GeminiGenerator) Generate(ctx context.Context, parts []vision.Part) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(parts), nil)
	if err != nil {
		return "", fmt.Errorf("failed to call gemini: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked the request: %s", resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini returned no candidates")
	}

	text := resp.Text()
	if vision.IsEmptyReply(text) {
		return "", fmt.Errorf("gemini: %w (finish reason %s)", vision.ErrEmptyReply, resp.Candidates[0].FinishReason)
	}
	return text, nil
}

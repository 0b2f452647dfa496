package claude

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/vbonduro/nutritionist/internal/vision"
)

// maxTokens leaves room for an itemised list, a summary table and a recipe.
const maxTokens = 2048

type ClaudeGenerator struct {
	client *anthropic.Client
	model  string
}

func NewClaudeGenerator(apiKey, model string, opts ...anthropic.ClientOption) *ClaudeGenerator {
	return &ClaudeGenerator{
		client: anthropic.NewClient(apiKey, opts...),
		model:  model,
	}
}

// buildMessages maps the ordered parts onto a single user message. Empty text
// blocks are rejected by the Messages API, so they are dropped.
func buildMessages(parts []vision.Part) []anthropic.Message {
	content := make([]anthropic.MessageContent, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.IsImage():
			content = append(content, anthropic.NewImageMessageContent(
				anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					normaliseMIME(p.Image.MIMEType),
					base64.StdEncoding.EncodeToString(p.Image.Data),
				),
			))
		case p.Text != "":
			content = append(content, anthropic.NewTextMessageContent(p.Text))
		}
	}
	return []anthropic.Message{{Role: anthropic.RoleUser, Content: content}}
}

func (g *ClaudeGenerator) Generate(ctx context.Context, parts []vision.Part) (string, error) {
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(g.model),
		MaxTokens: maxTokens,
		Messages:  buildMessages(parts),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	for _, blk := range resp.Content {
		if blk.Type == anthropic.MessagesContentTypeText && !vision.IsEmptyReply(blk.GetText()) {
			return blk.GetText(), nil
		}
	}
	return "", fmt.Errorf("claude: %w", vision.ErrEmptyReply)
}

// normaliseMIME maps browser MIME types to the values the Anthropic API accepts.
// The Anthropic API accepts only jpeg, png, gif, and webp. Unknown types are
// coerced to jpeg as the most universally supported lossy fallback.
func normaliseMIME(mimeType string) string {
	switch mimeType {
	case "image/png", "image/gif", "image/webp":
		return mimeType
	default:
		return "image/jpeg"
	}
}

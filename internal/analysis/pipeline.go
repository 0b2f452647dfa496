package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/nutritionist/internal/vision"
)

// Image is an uploaded photo: raw bytes and the MIME type it was declared with.
type Image struct {
	MIMEType string
	Data     []byte
}

// Pipeline turns one submission into one Result. It holds no per-request
// state and is safe for concurrent use.
type Pipeline struct {
	generator   vision.Generator
	instruction string
	logger      *slog.Logger
}

type Option func(*Pipeline)

// WithInstruction replaces the instruction template sent as the last part.
func WithInstruction(instruction string) Option {
	return func(p *Pipeline) { p.instruction = instruction }
}

func NewPipeline(generator vision.Generator, logger *slog.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		generator:   generator,
		instruction: vision.NutritionistPrompt,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze gates on the image, sends query, image and instruction to the model
// in that order, and wraps the reply. It never returns an error: every failure
// is reported as a Failure result.
func (p *Pipeline) Analyze(ctx context.Context, img *Image, query string) Result {
	if img == nil || len(img.Data) == 0 {
		p.logger.Info("analysis rejected", "reason", ErrNoImage.Error())
		return Failure(InputError, ErrNoImage)
	}

	parts := BuildParts(img, query, p.instruction)

	p.logger.Info("analysis started", "mime_type", img.MIMEType, "bytes", len(img.Data), "query_len", len(query))
	start := time.Now()

	text, err := p.generate(ctx, parts)
	if err != nil {
		p.logger.Error("analysis failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return Failure(UpstreamError, err)
	}

	p.logger.Info("analysis complete", "duration_ms", time.Since(start).Milliseconds(), "response_len", len(text))
	return Success(text)
}

// generate calls the model once, converting a panic in the adapter into an
// error so a single bad call cannot take the process down.
func (p *Pipeline) generate(ctx context.Context, parts []vision.Part) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model call panicked: %v", r)
		}
	}()
	return p.generator.Generate(ctx, parts)
}

// BuildParts returns the three request parts in their fixed order: the user's
// query, the image, the instruction. The image bytes are shared, not copied.
func BuildParts(img *Image, query, instruction string) []vision.Part {
	return []vision.Part{
		vision.TextPart(query),
		vision.ImagePart(img.MIMEType, img.Data),
		vision.TextPart(instruction),
	}
}

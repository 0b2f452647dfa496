package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/nutritionist/internal/vision"
)

type capturedRequest struct {
	Path    string
	APIKey  string
	Payload struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text       string `json:"text"`
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"contents"`
	}
}

func newFakeGemini(t *testing.T, status int, body any, got *capturedRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got != nil {
			got.Path = r.URL.Path
			got.APIKey = r.Header.Get("x-goog-api-key")
			_ = json.NewDecoder(r.Body).Decode(&got.Payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if err := json.NewEncoder(w).Encode(body); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}))
}

func textResponse(text string) map[string]any {
	return map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	}
}

func TestGeminiGenerate(t *testing.T) {
	var got capturedRequest
	server := newFakeGemini(t, http.StatusOK, textResponse("| Apple | 95 kcal |"), &got)
	defer server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", server.URL)
	require.NoError(t, err)

	img := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x01, 0x02}
	text, err := gen.Generate(context.Background(), []vision.Part{
		vision.TextPart("How many calories?"),
		vision.ImagePart("image/jpeg", img),
		vision.TextPart(vision.NutritionistPrompt),
	})
	require.NoError(t, err)
	assert.Equal(t, "| Apple | 95 kcal |", text)

	assert.True(t, strings.HasSuffix(got.Path, "/models/gemini-2.5-flash:generateContent"), got.Path)
	assert.Equal(t, "test-key", got.APIKey)
	require.Len(t, got.Payload.Contents, 1)
	assert.Equal(t, "user", got.Payload.Contents[0].Role)

	parts := got.Payload.Contents[0].Parts
	require.Len(t, parts, 3)
	assert.Equal(t, "How many calories?", parts[0].Text)
	require.NotNil(t, parts[1].InlineData)
	assert.Equal(t, "image/jpeg", parts[1].InlineData.MIMEType)
	decoded, err := base64.StdEncoding.DecodeString(parts[1].InlineData.Data)
	require.NoError(t, err)
	assert.Equal(t, img, decoded)
	assert.Equal(t, vision.NutritionistPrompt, parts[2].Text)
}

func TestGeminiGenerateSkipsEmptyQuery(t *testing.T) {
	var got capturedRequest
	server := newFakeGemini(t, http.StatusOK, textResponse("report"), &got)
	defer server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", server.URL)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []vision.Part{
		vision.TextPart(""),
		vision.ImagePart("image/png", []byte{0x89, 'P', 'N', 'G'}),
		vision.TextPart("prompt"),
	})
	require.NoError(t, err)

	parts := got.Payload.Contents[0].Parts
	require.Len(t, parts, 2)
	require.NotNil(t, parts[0].InlineData)
	assert.Equal(t, "prompt", parts[1].Text)
}

func TestGeminiGenerateAPIError(t *testing.T) {
	server := newFakeGemini(t, http.StatusTooManyRequests, map[string]any{
		"error": map[string]any{"code": 429, "message": "quota exceeded", "status": "RESOURCE_EXHAUSTED"},
	}, nil)
	defer server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", server.URL)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []vision.Part{vision.ImagePart("image/jpeg", []byte{0xFF, 0xD8})})
	assert.Error(t, err)
}

func TestGeminiGenerateBlocked(t *testing.T) {
	server := newFakeGemini(t, http.StatusOK, map[string]any{
		"promptFeedback": map[string]any{"blockReason": "SAFETY"},
	}, nil)
	defer server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", server.URL)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []vision.Part{vision.ImagePart("image/jpeg", []byte{0xFF, 0xD8})})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SAFETY")
}

func TestGeminiGenerateNetworkError(t *testing.T) {
	server := newFakeGemini(t, http.StatusOK, textResponse("unused"), nil)
	url := server.URL
	server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", url)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []vision.Part{vision.ImagePart("image/jpeg", []byte{0xFF, 0xD8})})
	assert.Error(t, err)
}

func TestGeminiGenerateEmptyReply(t *testing.T) {
	server := newFakeGemini(t, http.StatusOK, textResponse(" "), nil)
	defer server.Close()

	gen, err := newGeminiGenerator(context.Background(), "test-key", "gemini-2.5-flash", server.URL)
	require.NoError(t, err)

	_, err = gen.Generate(context.Background(), []vision.Part{vision.ImagePart("image/jpeg", []byte{0xFF, 0xD8})})
	require.Error(t, err)
	assert.ErrorIs(t, err, vision.ErrEmptyReply)
}

// client.go - Gemini client wrapper for display comparison calls

package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/bosocmputer/display_audit_gemini/configs"
	"github.com/bosocmputer/display_audit_gemini/internal/common"
	"github.com/bosocmputer/display_audit_gemini/internal/ratelimit"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ImagePayload is one inline image ready for transmission. Data may be empty
// for the standard-image placeholder when a task has no reference image; the
// slot is still submitted so image roles keep their fixed order.
type ImagePayload struct {
	Data     []byte
	MIMEType string
}

// Client wraps the Gemini SDK. It is created once at process start and
// injected into the audit pipeline; tests substitute their own Generator.
type Client struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewClient connects to the Gemini API using process configuration.
func NewClient(ctx context.Context) (*Client, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(configs.GEMINI_API_KEY))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Client{
		client:  client,
		model:   configs.MODEL_NAME,
		timeout: time.Duration(configs.AI_TIMEOUT_SECONDS) * time.Second,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// Generate submits the prompt plus image payloads and returns the raw
// response text. It enforces the configured timeout and performs a single
// attempt: a failed upload is retried by the user, not inside the pipeline.
func (c *Client) Generate(ctx context.Context, prompt string, images []ImagePayload) (string, *common.TokenUsage, error) {
	model := c.client.GenerativeModel(c.model)
	model.SetTemperature(0.2)

	parts := make([]genai.Part, 0, len(images)+1)
	parts = append(parts, genai.Text(prompt))
	for _, img := range images {
		mimeType := img.MIMEType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, genai.Blob{MIMEType: mimeType, Data: img.Data})
	}

	// Free-tier RPM protection; blocks, does not fail.
	ratelimit.WaitForRateLimit()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := model.GenerateContent(callCtx, parts...)
	if err != nil {
		return "", nil, classifyError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", nil, &APIError{
			Category: "empty_response",
			Message:  "no candidates returned from Gemini API",
		}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text = string(t)
			break
		}
	}
	if text == "" {
		return "", nil, &APIError{
			Category: "empty_response",
			Message:  "empty text response from Gemini API",
		}
	}

	var usage *common.TokenUsage
	if resp.UsageMetadata != nil {
		usage = &common.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return text, usage, nil
}

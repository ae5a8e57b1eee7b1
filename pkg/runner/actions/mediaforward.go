package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const maxMediaForwardBytes = 12_000

// MediaForwardConfig is the shared shape for the image_to_text and
// voice_to_text actions: both forward to a configured JSON endpoint with a
// bearer token and differ only in request body and the endpoint itself.
type MediaForwardConfig struct {
	Endpoint    string
	BearerToken string
}

// ForwardImageToText posts {imageUrl, prompt?} to the configured endpoint
// and returns its response body, truncated.
func ForwardImageToText(ctx context.Context, cfg MediaForwardConfig, imageURL, prompt string, timeout time.Duration) (string, error) {
	body := map[string]string{"imageUrl": imageURL}
	if prompt != "" {
		body["prompt"] = prompt
	}
	return forwardJSON(ctx, cfg, body, timeout)
}

// ForwardVoiceToText posts {audioUrl, language} to the configured endpoint
// and returns its response body, truncated.
func ForwardVoiceToText(ctx context.Context, cfg MediaForwardConfig, audioURL, language string, timeout time.Duration) (string, error) {
	body := map[string]string{"audioUrl": audioURL}
	if language != "" {
		body["language"] = language
	}
	return forwardJSON(ctx, cfg, body, timeout)
}

func forwardJSON(ctx context.Context, cfg MediaForwardConfig, body map[string]string, timeout time.Duration) (string, error) {
	client := resty.New().SetTimeout(timeout)

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("authorization", "Bearer "+cfg.BearerToken).
		SetHeader("content-type", "application/json").
		SetBody(body).
		Post(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("media forward to %s: %w", cfg.Endpoint, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("media forward to %s returned %d", cfg.Endpoint, resp.StatusCode())
	}

	out := string(resp.Body())
	if len(out) > maxMediaForwardBytes {
		out = out[:maxMediaForwardBytes]
	}
	return out, nil
}

package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// OpencodeConfig is where the opencode_serve action's endpoint lives.
type OpencodeConfig struct {
	Endpoint string
}

// CallOpencode posts {task, cwd, executionMode} to the configured endpoint
// and returns its raw response body. Foreground callers await this
// directly; background callers run it inside their own goroutine and
// interpret ctx cancellation as an abort request.
func CallOpencode(ctx context.Context, cfg OpencodeConfig, task, cwd, executionMode string, timeout time.Duration) (string, error) {
	client := resty.New().SetTimeout(timeout)

	resp, err := client.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(map[string]string{
			"task":          task,
			"cwd":           cwd,
			"executionMode": executionMode,
		}).
		Post(cfg.Endpoint)
	if err != nil {
		return "", fmt.Errorf("opencode_serve call to %s: %w", cfg.Endpoint, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("opencode_serve call to %s returned %d", cfg.Endpoint, resp.StatusCode())
	}
	return string(resp.Body()), nil
}

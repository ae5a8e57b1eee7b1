package actions

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html"
)

const (
	maxFetchBodyBytes = 12_000
	userAgent         = "nanoclaw-runner/1.0"
)

// WebFetchResult is the outcome of an http or browser-mode fetch.
type WebFetchResult struct {
	URL         string
	Status      int
	ContentType string
	Title       string
	Body        string
}

// FetchHTTP performs a single GET, following redirects, bounded by timeout.
// It returns the first maxFetchBodyBytes of the response body alongside a
// short metadata header.
func FetchHTTP(ctx context.Context, url string, timeout time.Duration) (WebFetchResult, error) {
	client := resty.New().SetTimeout(timeout).SetHeader("user-agent", userAgent)

	resp, err := client.R().SetContext(ctx).SetDoNotParseResponse(true).Get(url)
	if err != nil {
		return WebFetchResult{}, fmt.Errorf("web fetch %s: %w", url, err)
	}
	defer resp.RawBody().Close()

	body, err := io.ReadAll(io.LimitReader(resp.RawBody(), maxFetchBodyBytes))
	if err != nil {
		return WebFetchResult{}, fmt.Errorf("read web fetch body for %s: %w", url, err)
	}

	return WebFetchResult{
		URL:         url,
		Status:      resp.StatusCode(),
		ContentType: resp.Header().Get("content-type"),
		Body:        string(body),
	}, nil
}

// FetchBrowser navigates a headless browser to url, waits until the body
// element is visible, and captures the page title plus the first
// maxFetchBodyBytes of rendered text. If the browser driver itself is
// unavailable, the caller should fall back to FetchReadableMirror; this
// function surfaces that case as an error rather than returning empty
// content silently.
func FetchBrowser(ctx context.Context, url string, timeout time.Duration) (WebFetchResult, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, chromedp.DefaultExecAllocatorOptions[:]...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeoutCtx, cancelTimeout := context.WithTimeout(browserCtx, timeout)
	defer cancelTimeout()

	var title, text string
	err := chromedp.Run(timeoutCtx,
		chromedp.Navigate(url),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.Title(&title),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return WebFetchResult{}, fmt.Errorf("headless browser unavailable for %s: %w", url, err)
	}

	if len(text) > maxFetchBodyBytes {
		text = text[:maxFetchBodyBytes]
	}

	return WebFetchResult{URL: url, Status: 200, Title: title, Body: text}, nil
}

// FetchReadableMirror is the fallback path when the browser driver is
// unavailable: a plain GET whose HTML body is stripped of markup with
// golang.org/x/net/html, approximating what the rendered page would have
// shown. If this also fails, the caller must surface an error rather than
// silently succeed with empty content.
func FetchReadableMirror(ctx context.Context, url string, timeout time.Duration) (WebFetchResult, error) {
	res, err := FetchHTTP(ctx, url, timeout)
	if err != nil {
		return WebFetchResult{}, fmt.Errorf("readable mirror fallback failed for %s: %w", url, err)
	}

	text, title, err := extractReadableText(res.Body)
	if err != nil {
		return WebFetchResult{}, fmt.Errorf("readable mirror parse failed for %s: %w", url, err)
	}
	if strings.TrimSpace(text) == "" {
		return WebFetchResult{}, fmt.Errorf("readable mirror produced no content for %s", url)
	}

	res.Title = title
	res.Body = text
	return res, nil
}

func extractReadableText(body string) (text, title string, err error) {
	doc, err := html.Parse(strings.NewReader(body))
	if err != nil {
		return "", "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.ElementNode && n.Data == "title" && n.FirstChild != nil {
			title = n.FirstChild.Data
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				sb.WriteString(trimmed)
				sb.WriteString(" ")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	out := sb.String()
	if len(out) > maxFetchBodyBytes {
		out = out[:maxFetchBodyBytes]
	}
	return out, title, nil
}

package spec

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxDocumentSize caps a fetched description or documentation page.
const maxDocumentSize = 20 << 20 // 20MB

type fetchResult struct {
	body        []byte
	contentType string
	// url is the final URL after redirects.
	url string
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, unavailable("build request for %s: %v", rawURL, err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, text/html;q=0.8, */*;q=0.5")

	start := time.Now()
	resp, err := l.client.Do(req)
	duration := time.Since(start)
	if err != nil {
		l.logger.Debug().Str("url", rawURL).Int64("duration_ms", duration.Milliseconds()).Str("error", err.Error()).Msg("spec fetch failed")
		return nil, unavailable("fetch %s: %v", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, unavailable("read %s: %v", rawURL, err)
	}

	l.logger.Debug().Str("url", rawURL).Int("status", resp.StatusCode).Int64("duration_ms", duration.Milliseconds()).Msg("spec fetch")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, unavailable("fetch %s: status %d", rawURL, resp.StatusCode)
	}

	final := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		final = resp.Request.URL.String()
	}
	return &fetchResult{body: body, contentType: resp.Header.Get("Content-Type"), url: final}, nil
}

func looksLikeHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	if len(head) > 64 {
		head = head[:64]
	}
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

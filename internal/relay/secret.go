package relay

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/valyala/fastjson"
)

// LazyURL resolves the webhook URL on first use and keeps it once a
// non-empty value was found. Empty or failed lookups are retried next call.
type LazyURL struct {
	fetch func(ctx context.Context) (string, error)

	mu     sync.Mutex
	cached string
}

func NewLazyURL(fetch func(ctx context.Context) (string, error)) *LazyURL {
	return &LazyURL{fetch: fetch}
}

// NewWebhookURL prefers a configured URL and falls back to the secret file,
// a JSON document with a "webhook_url" field.
func NewWebhookURL(configured, secretFile string) *LazyURL {
	if configured != "" {
		return NewLazyURL(func(context.Context) (string, error) { return configured, nil })
	}
	return NewLazyURL(func(context.Context) (string, error) { return readSecretFile(secretFile) })
}

func (l *LazyURL) WebhookURL(ctx context.Context) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cached != "" {
		return l.cached
	}
	url, err := l.fetch(ctx)
	if err != nil {
		return ""
	}
	l.cached = strings.TrimSpace(url)
	return l.cached
}

func readSecretFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	v, err := fastjson.ParseBytes(b)
	if err != nil {
		return "", fmt.Errorf("parse secret file: %w", err)
	}
	return string(v.GetStringBytes("webhook_url")), nil
}

// Package relay forwards chat messages to the external automation webhook.
package relay

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/valyala/fastjson"

	"github.com/ZWieseDev/TaskSenseiOverview/internal/logger"
)

const (
	DefaultTimeout = 10 * time.Second

	ReplyMissingURL    = "Error: Missing Webhook URL"
	ReplyRequestError  = "Request Error"
	ReplySuccess       = "Success"
	ReplyNoResponse    = "No response from relay"
	maxReplyBodyLength = 1 << 20
)

var errNoResponseField = errors.New("relay reply has no response field")

// URLSource resolves the webhook URL. An empty result means not configured.
type URLSource interface {
	WebhookURL(ctx context.Context) string
}

type Client struct {
	URL    URLSource
	Client *http.Client
	log    logger.Interface
}

func NewClient(url URLSource, timeout time.Duration, log logger.Interface) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		log:    log,
	}
}

// Forward posts payload to the webhook and returns the text to push back to
// the user. Failures never surface as errors; they become fixed reply texts.
func (c *Client) Forward(ctx context.Context, payload []byte) string {
	url := c.URL.WebhookURL(ctx)
	if url == "" {
		c.log.Warnw("relay webhook url not configured")
		return ReplyMissingURL
	}

	reply, err := c.post(ctx, url, payload)
	switch {
	case errors.Is(err, errNoResponseField):
		return ReplyNoResponse
	case err != nil:
		c.log.Warnw("relay request failed", "error", err)
		return ReplyRequestError
	}
	return reply
}

func (c *Client) post(ctx context.Context, url string, payload []byte) (string, error) {
	if c.Client == nil {
		return "", errors.New("relay: http client is nil")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("relay: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBodyLength))
	if err != nil {
		return "", err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return ReplySuccess, nil
	}

	v, err := fastjson.ParseBytes(body)
	if err != nil {
		return "", fmt.Errorf("relay: decode reply: %w", err)
	}
	if v.Type() != fastjson.TypeObject {
		return "", errNoResponseField
	}
	field := v.Get("response")
	if field == nil || field.Type() == fastjson.TypeNull {
		return "", errNoResponseField
	}
	if field.Type() == fastjson.TypeString {
		return string(field.GetStringBytes()), nil
	}
	return field.String(), nil
}

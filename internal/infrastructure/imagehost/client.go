// Package imagehost uploads images to the external image host and returns
// their public URLs.
package imagehost

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gabriel-vasile/mimetype"
	"github.com/go-resty/resty/v2"

	"pomegranate/internal/core/apperror"
	"pomegranate/pkg/logger"
)

// MaxImageBytes is the largest accepted upload.
const MaxImageBytes = 5 << 20

var (
	// ErrNotImage is returned when the payload is not an image.
	ErrNotImage = errors.New("only image files may be uploaded")
	// ErrTooLarge is returned when the payload exceeds MaxImageBytes.
	ErrTooLarge = errors.New("image exceeds 5MB")
	// ErrBadDataURL is returned for malformed data:image/...;base64 strings.
	ErrBadDataURL = errors.New("malformed base64 image")
)

// Config holds image host connection settings.
type Config struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	MaxRetries uint64
}

// Client talks to the image host over HTTP.
type Client struct {
	http       *resty.Client
	maxRetries uint64
	initial    time.Duration
}

// New creates a client for cfg.Endpoint.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := resty.New().
		SetBaseURL(strings.TrimRight(cfg.Endpoint, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")
	if cfg.Token != "" {
		c.SetAuthToken(cfg.Token)
	}
	return &Client{http: c, maxRetries: cfg.MaxRetries, initial: 200 * time.Millisecond}
}

// uploadResponse covers both response shapes the host has used.
type uploadResponse struct {
	Success *bool  `json:"success"`
	URL     string `json:"url"`
	Message string `json:"message"`
	Data    struct {
		URL string `json:"url"`
	} `json:"data"`
}

func (r *uploadResponse) url() string {
	if r.URL != "" {
		return r.URL
	}
	return r.Data.URL
}

// Detect sniffs data and checks it is an image within the size limit.
func Detect(data []byte) (*mimetype.MIME, error) {
	if len(data) > MaxImageBytes {
		return nil, ErrTooLarge
	}
	m := mimetype.Detect(data)
	if !strings.HasPrefix(m.String(), "image/") {
		return nil, ErrNotImage
	}
	return m, nil
}

// Upload stores data under filename and returns its URL. Network failures
// and 5xx responses are retried with exponential backoff.
func (c *Client) Upload(ctx context.Context, data []byte, filename string) (string, error) {
	m, err := Detect(data)
	if err != nil {
		return "", apperror.NewValidation(err.Error())
	}
	if filename == "" {
		filename = "image" + m.Extension()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initial
	b.MaxElapsedTime = time.Minute
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx)

	attempt := 0
	url, err := backoff.RetryWithData(func() (string, error) {
		attempt++
		return c.post(ctx, data, filename, m.String())
	}, policy)
	if err != nil {
		logger.Warn(ctx, "image upload failed", "filename", filename, "attempts", attempt, "error", err)
		return "", apperror.NewUpstream("imagehost", err)
	}
	logger.Debug(ctx, "image uploaded", "filename", filename, "bytes", len(data), "attempts", attempt)
	return url, nil
}

func (c *Client) post(ctx context.Context, data []byte, filename, contentType string) (string, error) {
	var out uploadResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetMultipartField("file", filename, contentType, bytes.NewReader(data)).
		SetResult(&out).
		Post("/upload")
	if err != nil {
		return "", fmt.Errorf("image host request: %w", err)
	}
	if resp.StatusCode() >= http.StatusInternalServerError {
		return "", fmt.Errorf("image host status %d", resp.StatusCode())
	}
	if resp.StatusCode() != http.StatusOK {
		return "", backoff.Permanent(fmt.Errorf("image host status %d: %s", resp.StatusCode(), resp.String()))
	}
	if out.Success != nil && !*out.Success {
		return "", backoff.Permanent(fmt.Errorf("image host rejected upload: %s", out.Message))
	}
	if out.url() == "" {
		return "", backoff.Permanent(errors.New("image host returned no url"))
	}
	return out.url(), nil
}

// UploadDataURL decodes a data:image/...;base64 string and uploads it.
func (c *Client) UploadDataURL(ctx context.Context, dataURL string) (string, error) {
	data, err := DecodeDataURL(dataURL)
	if err != nil {
		return "", apperror.NewValidation(err.Error())
	}
	return c.Upload(ctx, data, "")
}

// DecodeDataURL extracts the payload of a data:image/<type>;base64,<data> string.
func DecodeDataURL(s string) ([]byte, error) {
	header, payload, ok := strings.Cut(s, ",")
	if !ok || !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, ErrBadDataURL
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadDataURL, err)
	}
	return data, nil
}

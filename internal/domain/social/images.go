package social

import (
	"context"
	"slices"
	"strings"

	"pomegranate/internal/domain/crud"
	"pomegranate/pkg/logger"
)

const dataImagePrefix = "data:image/"

// pendingMarkers prefix placeholders the editor sends for images that never
// finished uploading.
var pendingMarkers = []string{"[待上传", "[pending"}

// imageURLProps are the object keys that may carry an image URL, in priority order.
var imageURLProps = []string{"url", "preview", "src", "path", "link"}

// hasImages reports whether the request carries image data at all. An empty
// array still counts: it clears the post's images.
func hasImages(data crud.Record) bool {
	_, a := data["images"]
	_, b := data["image_urls"]
	return a || b
}

// splitImages sorts the request's images into stored URLs and base64 payloads
// awaiting upload. URLs are cleaned and deduplicated in first-seen order.
func splitImages(data crud.Record) (urls, payloads []string) {
	seen := make(map[string]bool)
	addURL := func(raw string) {
		u := cleanURL(raw)
		if u == "" || seen[u] || strings.HasPrefix(u, dataImagePrefix) {
			return
		}
		seen[u] = true
		urls = append(urls, u)
	}
	add := func(s string) {
		switch {
		case strings.HasPrefix(s, dataImagePrefix):
			payloads = append(payloads, s)
		case isPending(s):
		default:
			addURL(s)
		}
	}

	for _, v := range asSlice(data["image_urls"]) {
		if s, ok := v.(string); ok {
			add(s)
		}
	}
	for _, v := range asSlice(data["images"]) {
		switch t := v.(type) {
		case string:
			add(t)
		case map[string]any:
			for _, prop := range imageURLProps {
				if s, ok := t[prop].(string); ok && s != "" {
					add(s)
					break
				}
			}
		}
	}
	return urls, payloads
}

// resolveImages uploads base64 payloads and returns the final URL list.
// Failed uploads are logged and skipped.
func resolveImages(ctx context.Context, uploader ImageUploader, data crud.Record) []string {
	urls, payloads := splitImages(data)
	if len(payloads) == 0 {
		return urls
	}
	if uploader == nil {
		logger.Warn(ctx, "base64 images dropped: no image host configured", "count", len(payloads))
		return urls
	}

	uploaded := 0
	for _, p := range payloads {
		u, err := uploader.UploadDataURL(ctx, p)
		if err != nil {
			logger.Warn(ctx, "image upload failed", "error", err)
			continue
		}
		if u = cleanURL(u); u != "" && !slices.Contains(urls, u) {
			urls = append(urls, u)
			uploaded++
		}
	}
	logger.Info(ctx, "base64 images uploaded", "uploaded", uploaded, "requested", len(payloads))
	return urls
}

// cleanURL drops whitespace and backticks pasted around URLs.
func cleanURL(s string) string {
	s = strings.ReplaceAll(s, "`", "")
	return strings.Join(strings.Fields(s), "")
}

func isPending(s string) bool {
	for _, m := range pendingMarkers {
		if strings.HasPrefix(s, m) {
			return true
		}
	}
	return false
}

func asSlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	}
	return nil
}

package request

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Download fetches u and writes the payload to a uniquely named file inside
// dir. data: URIs are decoded in memory without touching the network.
// Payloads smaller than minSize bytes are rejected, since several asset
// providers serve error pages or placeholder blobs with a 200 status.
// Returns the path of the written file.
func (c *Client) Download(ctx context.Context, u, dir, prefix, ext string, minSize int64) (string, error) {
	var body []byte
	var err error

	if strings.HasPrefix(u, "data:") {
		body, err = decodeDataURI(u)
	} else {
		body, err = c.Get(ctx, u, "")
	}
	if err != nil {
		return "", err
	}

	if int64(len(body)) < minSize {
		return "", fmt.Errorf("payload too small: %d bytes (min %d)", len(body), minSize)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download dir: %w", err)
	}

	name := fmt.Sprintf("%s_%d_%s.%s", prefix, time.Now().UnixMilli(), uuid.NewString()[:8], strings.TrimPrefix(ext, "."))
	path := filepath.Join(dir, name)

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("failed to write download: %w", err)
	}
	return path, nil
}

// decodeDataURI extracts the payload of a data: URI. Both base64 and
// percent-encoded payloads are handled.
func decodeDataURI(u string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("malformed data URI")
	}

	if strings.HasSuffix(meta, ";base64") {
		body, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to decode data URI: %w", err)
		}
		return body, nil
	}

	decoded, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode data URI: %w", err)
	}
	return []byte(decoded), nil
}

package fetch

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
)

// ResolveFilename asks the endpoint for the archive name with a HEAD
// request. The server renames the archive per release and only reveals
// the name in Content-Disposition. Without that header the default file
// name is returned. Network failures are returned as errors; the status
// code is not checked.
func (c *Client) ResolveFilename(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("head request failed: %w", err)
	}
	_ = resp.Body.Close()

	disposition := resp.Header.Get("Content-Disposition")
	name := FilenameFromDisposition(disposition, c.defaultFilename)
	c.logger.Debug("resolved archive name",
		"content_disposition", disposition,
		"status", resp.StatusCode,
		"filename", name,
	)
	return name, nil
}

// FilenameFromDisposition extracts the file name from a Content-Disposition
// value. The value is split on "filename=" and the last part is trimmed of
// quotes, spaces and semicolons. Any directory component is dropped so the
// name cannot leave the cache directory. An empty header or an empty
// result yields fallback.
func FilenameFromDisposition(disposition, fallback string) string {
	if disposition == "" {
		return fallback
	}

	parts := strings.Split(disposition, "filename=")
	name := strings.Trim(parts[len(parts)-1], "\" ;\t")
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))

	switch name {
	case "", ".", "..", "/":
		return fallback
	}
	return name
}

// Built-in tools: HTTP fetch and file read.
//
// Information Hiding:
// - HTTP client configuration and timeout handling
// - Path and domain allow-list checks

package tools

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spindleworks/spindle/schema"
)

const defaultHTTPTimeout = 30 * time.Second

// NewHTTPGetTool returns a tool that fetches a URL over HTTP GET.
// An empty allow-list permits every domain.
func NewHTTPGetTool(allowedDomains ...string) *Tool {
	client := &http.Client{Timeout: defaultHTTPTimeout}

	return &Tool{
		Name:        "http_get",
		Description: "Fetch the contents of a URL over HTTP GET",
		Params: schema.Object(
			schema.F("url", schema.String().Desc("The URL to fetch")),
		),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			rawURL, _ := args["url"].(string)
			if rawURL == "" {
				return nil, fmt.Errorf("url cannot be empty")
			}
			if !domainAllowed(rawURL, allowedDomains) {
				return nil, fmt.Errorf("access to domain in %q is not allowed", rawURL)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := client.Do(req)
			if err != nil {
				return nil, fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
			if err != nil {
				return nil, fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("request returned status %d", resp.StatusCode)
			}
			return string(body), nil
		},
	}
}

// NewReadFileTool returns a tool that reads a file from the local
// filesystem. An empty allow-list permits every path.
func NewReadFileTool(maxSizeBytes int64, allowedPaths ...string) *Tool {
	return &Tool{
		Name:        "read_file",
		Description: "Read the contents of a file from the filesystem",
		Params: schema.Object(
			schema.F("path", schema.String().Desc("Path to the file to read")),
		),
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			path, _ := args["path"].(string)
			if path == "" {
				return nil, fmt.Errorf("path cannot be empty")
			}
			if !pathAllowed(path, allowedPaths) {
				return nil, fmt.Errorf("access to path %q is not allowed", path)
			}

			info, err := os.Stat(path)
			if err != nil {
				return nil, fmt.Errorf("failed to stat file: %w", err)
			}
			if maxSizeBytes > 0 && info.Size() > maxSizeBytes {
				return nil, fmt.Errorf("file is %d bytes, exceeds limit of %d", info.Size(), maxSizeBytes)
			}

			content, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("failed to read file: %w", err)
			}
			return string(content), nil
		},
	}
}

func domainAllowed(rawURL string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := parsed.Hostname()
	for _, domain := range allowed {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

func pathAllowed(path string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, prefix := range allowed {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

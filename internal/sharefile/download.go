package sharefile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ErrNoDownloadURL is returned when a download specification carries no
// URL.
var ErrNoDownloadURL = errors.New("sharefile: item has no download URL")

// maxErrorBody bounds how much of a failed download body is read for
// classification.
const maxErrorBody = 64 << 10

func downloadQuery(allVersions, redirect bool) *Query {
	return new(Query).
		Set("includeallversions", allVersions).
		Set("redirect", redirect)
}

// GetItemDownloadURL prepares a download and returns its specification.
// With allVersions a folder download includes every file version.
func (c *Client) GetItemDownloadURL(ctx context.Context, itemID string, allVersions bool) (*DownloadSpecification, error) {
	c.logger.Debug("getting download url",
		slog.String("item_id", itemID),
		slog.Bool("all_versions", allVersions),
	)

	return decodeInto[DownloadSpecification](c.get(ctx,
		withQuery(fmt.Sprintf("Items(%s)/Download", itemID), downloadQuery(allVersions, false))))
}

// GetItemContents fetches the item's content through the API's redirect.
// The whole body is buffered; use DownloadItem for large files.
func (c *Client) GetItemContents(ctx context.Context, itemID string, allVersions bool) (*Response, error) {
	c.logger.Debug("getting item contents",
		slog.String("item_id", itemID),
		slog.Bool("all_versions", allVersions),
	)

	return c.get(ctx, withQuery(fmt.Sprintf("Items(%s)/Download", itemID), downloadQuery(allVersions, true)))
}

// DownloadItem prepares a download and streams the content to w. Returns
// the number of bytes written.
func (c *Client) DownloadItem(ctx context.Context, itemID string, w io.Writer) (int64, error) {
	c.logger.Info("downloading item", slog.String("item_id", itemID))

	spec, err := c.GetItemDownloadURL(ctx, itemID, false)
	if err != nil {
		return 0, fmt.Errorf("sharefile: preparing download: %w", err)
	}

	if spec.DownloadURL == "" {
		c.logger.Warn("item has no download URL", slog.String("item_id", itemID))

		return 0, ErrNoDownloadURL
	}

	n, err := c.downloadFromURL(ctx, spec.DownloadURL, w)
	if err != nil {
		return n, err
	}

	c.logger.Debug("download complete",
		slog.String("item_id", itemID),
		slog.Int64("bytes_written", n),
	)

	return n, nil
}

// downloadFromURL streams a pre-authenticated URL to w. The URL carries its
// own credentials and is never logged.
func (c *Client) downloadFromURL(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("sharefile: creating download request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("sharefile: download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Warn("download returned error status", slog.Int("status", resp.StatusCode))

		return 0, classifyResponse(resp.StatusCode, resp.Status, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		c.logger.Error("streaming download content failed",
			slog.String("error", err.Error()),
			slog.Int64("bytes_before_error", n),
		)

		return n, fmt.Errorf("sharefile: streaming download content: %w", err)
	}

	return n, nil
}

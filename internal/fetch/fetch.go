package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/boardaid/internal/site"
)

// FetchDocument downloads and parses an HTML page. Pages larger than the
// configured maximum are truncated before parsing.
func (c *Client) FetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	resp, err := c.get(ctx, pageURL, "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: pageURL, Code: resp.StatusCode}
	}

	doc, err := site.ParseDocument(io.LimitReader(resp.Body, c.maxPageSize), pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", pageURL, err)
	}
	return doc, nil
}

// FetchBinary downloads a payload of at most maxSize bytes.
// A larger payload fails with ErrBodyTooLarge.
func (c *Client) FetchBinary(ctx context.Context, fileURL string, maxSize int64) ([]byte, error) {
	resp, err := c.get(ctx, fileURL, "*/*")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: fileURL, Code: resp.StatusCode}
	}
	if maxSize > 0 && resp.ContentLength > maxSize {
		return nil, fmt.Errorf("%s: %w", fileURL, ErrBodyTooLarge)
	}

	var buf bytes.Buffer
	reader := io.Reader(resp.Body)
	if maxSize > 0 {
		reader = io.LimitReader(resp.Body, maxSize+1)
	}
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileURL, err)
	}
	if maxSize > 0 && int64(buf.Len()) > maxSize {
		return nil, fmt.Errorf("%s: %w", fileURL, ErrBodyTooLarge)
	}
	return buf.Bytes(), nil
}

// Status requests pageURL and returns the HTTP status code without
// keeping the body.
func (c *Client) Status(ctx context.Context, pageURL string) (int, error) {
	resp, err := c.get(ctx, pageURL, "*/*")
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, c.maxPageSize)) //nolint:errcheck // body is discarded
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, target, accept string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", accept)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	return resp, nil
}

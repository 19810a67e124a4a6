// Package previewclient is the client side of note link previews: a small
// HTTP client for the preview endpoint and a per-note Controller that finds
// the first URL in note text, keeps at most one retrieval in flight,
// supersedes it when the text changes, and maps outcomes to display states.
package previewclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patattzel/memos/linkpreview"
)

// ErrUnavailable is the single failure the display layer sees: any non-2xx
// answer from the server means "no preview available". The server already
// collapses safety rejections and transport failures into one opaque 400,
// and the client keeps that property rather than re-deriving detail.
var ErrUnavailable = errors.New("previewclient: no preview available")

// Client calls the server's preview endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient builds a Client for the given server base URL. token, when
// non-empty, is sent as a Bearer token; cookie-based sessions work through
// a custom http.Client with a jar.
func NewClient(baseURL, token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client (e.g. to add a cookie
// jar or shorten the timeout).
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// GetPreview fetches metadata for rawURL. Cancellation is cooperative: the
// request aborts as soon as ctx is done, so a superseded retrieval stops
// consuming server and client resources.
func (c *Client) GetPreview(ctx context.Context, rawURL string) (*linkpreview.Meta, error) {
	endpoint := c.baseURL + "/api/link/preview?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("previewclient: new request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("previewclient: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w (status %d)", ErrUnavailable, resp.StatusCode)
	}

	var meta linkpreview.Meta
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("previewclient: decode: %w", err)
	}
	return &meta, nil
}

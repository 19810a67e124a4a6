package linkpreview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patattzel/memos/linksafe"
)

// Config configures the fetcher.
type Config struct {
	// Timeout is the total wall-clock budget for one fetch, redirects
	// included. Default: 10s.
	Timeout time.Duration
	// MaxBodyBytes caps the response body read. Default: 1 MiB.
	MaxBodyBytes int64
	// MaxRedirects caps the number of redirect hops followed. Default: 5.
	MaxRedirects int
	// UserAgent sent with requests.
	UserAgent string
	// Validator validates the original URL and every redirect target
	// before it is followed. Default: linksafe.ValidateURL.
	Validator func(string) error
}

func (c *Config) defaults() {
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20 // 1 MiB
	}
	if c.MaxRedirects <= 0 {
		c.MaxRedirects = 5
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; memos-linkpreview/1.0)"
	}
	if c.Validator == nil {
		c.Validator = linksafe.ValidateURL
	}
}

// FetchResult is the outcome of a successful fetch: a capped body, the
// declared content type, and the final URL after redirects (needed to
// resolve relative image references). Owned by the caller; never shared.
type FetchResult struct {
	Body        []byte
	ContentType string
	StatusCode  int
	FinalURL    *url.URL
}

// Fetcher performs bounded HTTP GETs with SSRF re-validation on redirects.
type Fetcher struct {
	client *http.Client
	config Config
}

// NewFetcher builds a Fetcher. The underlying client has no cookie jar and
// never attaches caller credentials: the fetch happens on a user's behalf
// but must not leak their session material to third-party hosts.
func NewFetcher(cfg Config) *Fetcher {
	cfg.defaults()
	validate := cfg.Validator
	maxHops := cfg.MaxRedirects
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// via holds the requests already issued, so hop N of the
				// chain sees len(via) == N. Exactly maxHops hops are
				// followed; hop maxHops+1 fails.
				if len(via) > maxHops {
					return ErrTooManyRedirects
				}
				// The whole chain fails on a disallowed hop; stopping
				// silently at the last safe response would hand back
				// content the user never linked to.
				if err := validate(req.URL.String()); err != nil {
					return fmt.Errorf("%w: %w", ErrBlocked, err)
				}
				return nil
			},
		},
		config: cfg,
	}
}

// Fetch GETs rawURL under the configured limits. The URL is validated before
// the connection is opened and again at every redirect hop.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.config.Validator(rawURL); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBlocked, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("linkpreview: new request: %w", err)
	}
	req.Header.Set("User-Agent", f.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		switch {
		case errors.Is(err, ErrBlocked), errors.Is(err, ErrTooManyRedirects):
			return nil, err // redirect policy errors, unwrapped through *url.Error
		case isTimeout(err):
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		default:
			return nil, fmt.Errorf("linkpreview: http get: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, resp.StatusCode)
	}

	body, err := linksafe.LimitedReadAll(resp.Body, f.config.MaxBodyBytes)
	if err != nil {
		if errors.Is(err, linksafe.ErrResponseTooLarge) {
			return nil, fmt.Errorf("%w: %v", ErrBodyTooLarge, err)
		}
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return nil, fmt.Errorf("linkpreview: read body: %w", err)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		StatusCode:  resp.StatusCode,
		FinalURL:    resp.Request.URL,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var nerr interface{ Timeout() bool }
	return errors.As(err, &nerr) && nerr.Timeout()
}

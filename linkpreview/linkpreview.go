// Package linkpreview implements the server side of note link previews:
// finding the first URL in note text, fetching the target page under strict
// limits, and extracting Open Graph style metadata from whatever comes back.
//
// The pipeline sits at a trust boundary. Every URL is attacker-influenced
// (anything a user can type into a note), so the fetch path is gated by
// linksafe on the original URL and on every redirect target, bounded in
// time and size, and carries no caller credentials. Extraction is tolerant:
// malformed or non-HTML content degrades to empty fields, never an error.
//
// Requests are handled independently and statelessly; there is no cache or
// shared mutable state, so the pipeline is safe under one goroutine per
// incoming request.
package linkpreview

import (
	"context"
	"log/slog"
)

// Service runs the preview pipeline for one URL at a time.
type Service struct {
	fetcher *Fetcher
	log     *slog.Logger
}

// NewService builds a Service on top of a bounded fetcher.
func NewService(cfg Config) *Service {
	return &Service{
		fetcher: NewFetcher(cfg),
		log:     slog.With("component", "linkpreview"),
	}
}

// Preview fetches rawURL and extracts its metadata. The returned Meta always
// echoes rawURL. Fetch failures (blocked target, timeout, oversized body,
// bad status) are returned as typed errors for the caller to log; content
// that merely fails to parse as HTML is not an error and yields a Meta with
// only the URL set.
func (s *Service) Preview(ctx context.Context, rawURL string) (*Meta, error) {
	res, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	meta := ExtractMeta(res.Body, res.ContentType, res.FinalURL)
	meta.URL = rawURL

	s.log.Debug("preview extracted",
		"url", rawURL,
		"final_url", res.FinalURL.String(),
		"has_title", meta.Title != "",
		"has_description", meta.Description != "",
		"has_image", meta.Image != "")

	return &meta, nil
}

package linkpreview

import (
	"bytes"
	"html"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyatlov/go-opengraph/opengraph"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html/charset"
)

// MaxFieldLen caps every extracted metadata field, in runes. Local design
// choice to bound downstream rendering cost; not part of any protocol.
const MaxFieldLen = 256

// Meta is the extracted preview metadata. URL is filled in by the caller
// (the Service echoes the requested URL); the other fields are empty strings
// when absent, never an error.
type Meta struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

var stripPolicy = bluemonday.StrictPolicy()

// ExtractMeta scans body for title/description/image signals. It never fails:
// malformed, truncated, or non-HTML input degrades to empty fields. Each
// field follows an ordered strategy chain, first hit wins:
//
//	title:       og:title -> twitter:title -> <title>
//	description: og:description -> twitter:description -> meta[name=description]
//	image:       og:image -> twitter:image -> <link rel="image_src">
//
// Relative image URLs are resolved against finalURL (the post-redirect
// document URL). Image URLs with non-http(s) schemes (data:, javascript:)
// are discarded: embedded URLs get no more trust than typed ones.
func ExtractMeta(body []byte, contentType string, finalURL *url.URL) Meta {
	var m Meta

	decoded := decodeCharset(body, contentType)

	og := opengraph.NewOpenGraph()
	_ = og.ProcessHTML(bytes.NewReader(decoded)) // tolerant: partial data is fine

	// goquery never fails on garbage input; html.Parse is total.
	doc, docErr := goquery.NewDocumentFromReader(bytes.NewReader(decoded))

	metaContent := func(sel string) func() string {
		return func() string {
			if docErr != nil {
				return ""
			}
			v, _ := doc.Find(sel).First().Attr("content")
			return v
		}
	}

	m.Title = firstOf(
		func() string { return og.Title },
		metaContent(`meta[name='twitter:title'], meta[property='twitter:title']`),
		func() string {
			if docErr != nil {
				return ""
			}
			return doc.Find("title").First().Text()
		},
	)

	m.Description = firstOf(
		func() string { return og.Description },
		metaContent(`meta[name='twitter:description'], meta[property='twitter:description']`),
		metaContent(`meta[name='description']`),
	)

	img := firstOf(
		func() string {
			if len(og.Images) > 0 {
				return og.Images[0].URL
			}
			return ""
		},
		metaContent(`meta[name='twitter:image'], meta[property='twitter:image']`),
		func() string {
			if docErr != nil {
				return ""
			}
			v, _ := doc.Find(`link[rel='image_src']`).First().Attr("href")
			return v
		},
	)
	m.Image = resolveImageURL(img, finalURL)

	return m
}

// firstOf runs extractor strategies in order and returns the first one that
// yields a non-empty cleaned value.
func firstOf(strategies ...func() string) string {
	for _, s := range strategies {
		if v := cleanField(s()); v != "" {
			return v
		}
	}
	return ""
}

// cleanField strips markup, unescapes entities, collapses whitespace,
// removes control characters, and caps the length.
func cleanField(s string) string {
	s = html.UnescapeString(stripPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
	s = strings.Join(strings.Fields(s), " ")
	if runes := []rune(s); len(runes) > MaxFieldLen {
		s = strings.TrimSpace(string(runes[:MaxFieldLen]))
	}
	return s
}

// resolveImageURL makes an extracted image reference absolute and drops
// anything that is not plain http(s).
func resolveImageURL(img string, base *url.URL) string {
	if img == "" {
		return ""
	}
	ref, err := url.Parse(img)
	if err != nil {
		return ""
	}
	if base != nil {
		ref = base.ResolveReference(ref)
	}
	if ref.Scheme != "http" && ref.Scheme != "https" {
		return ""
	}
	return ref.String()
}

// decodeCharset converts body to UTF-8 using the declared content type and
// in-document hints. On any failure the raw bytes are used as-is; the Go
// HTML parsers replace invalid sequences rather than erroring.
func decodeCharset(body []byte, contentType string) []byte {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return body
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return body
	}
	return decoded
}

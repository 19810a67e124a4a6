package linkpreview

import "strings"

// Characters that disqualify a token from being treated as a URL candidate.
// Quoting and bracketing characters almost always mean the token is prose
// or markup, not a bare link.
const disqualifying = "\"'`<>()[]{}"

// Punctuation commonly stuck to the end of a URL in prose ("see example.com.").
const trailingPunct = ".,;:!?"

// FirstURL returns the first URL-like token in free text: a whitespace-
// delimited token that contains a dot and none of the disqualifying
// characters. Pure and total; the second return is false when no candidate
// exists. Whether the token actually parses as a URL is the caller's problem.
func FirstURL(text string) (string, bool) {
	for _, tok := range strings.Fields(text) {
		tok = strings.TrimRight(tok, trailingPunct)
		if tok == "" || !strings.Contains(tok, ".") {
			continue
		}
		if strings.ContainsAny(tok, disqualifying) {
			continue
		}
		return tok, true
	}
	return "", false
}

// NormalizeURL returns the absolute form of a candidate token: tokens that
// already carry an explicit http:// or https:// scheme pass through
// unchanged, everything else is prefixed with https://. Idempotent.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

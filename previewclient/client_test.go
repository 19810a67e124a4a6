package previewclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGetPreview_Success(t *testing.T) {
	// WHAT: A 200 answer decodes into the four-field metadata shape and the
	// request carries the bearer token and the escaped target URL.
	var gotAuth, gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotURL = r.URL.Query().Get("url")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"url":"https://example.com/a?b=1","title":"T","description":"D","image":""}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok123")
	meta, err := c.GetPreview(context.Background(), "https://example.com/a?b=1")
	if err != nil {
		t.Fatal(err)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotURL != "https://example.com/a?b=1" {
		t.Errorf("url param = %q", gotURL)
	}
	if meta.Title != "T" || meta.Description != "D" {
		t.Errorf("meta = %+v", meta)
	}
}

func TestGetPreview_NonOKIsUnavailable(t *testing.T) {
	// WHAT: Every non-2xx answer maps to ErrUnavailable.
	// WHY: The server deliberately keeps failures opaque; the client must
	// not invent distinctions the protocol does not carry.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"failed to fetch metadata"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "").GetPreview(context.Background(), "https://example.com")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestGetPreview_ContextCancelAborts(t *testing.T) {
	// WHAT: Cancelling the context aborts an in-flight request.
	started := make(chan struct{})
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		close(started)
		<-release
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := NewClient(srv.URL, "").GetPreview(ctx, "https://example.com")
		done <- err
	}()

	<-started
	cancel()
	err := <-done
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

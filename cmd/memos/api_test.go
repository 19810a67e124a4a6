package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/patattzel/memos/dbopen"
	"github.com/patattzel/memos/linkpreview"
	"github.com/patattzel/memos/linksafe"
	"github.com/patattzel/memos/store"
)

// stubPreviewer returns canned results per URL.
type stubPreviewer struct {
	metas map[string]*linkpreview.Meta
	errs  map[string]error
}

func (s *stubPreviewer) Preview(_ context.Context, rawURL string) (*linkpreview.Meta, error) {
	if err := s.errs[rawURL]; err != nil {
		return nil, err
	}
	if m := s.metas[rawURL]; m != nil {
		return m, nil
	}
	return &linkpreview.Meta{URL: rawURL}, nil
}

type testAPI struct {
	router http.Handler
	store  *store.Store
	token  string
}

func newTestAPI(t *testing.T, previews previewer) *testAPI {
	t.Helper()
	st, err := store.New(dbopen.OpenMemory(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := st.CreateUser(context.Background(), "a@example.com", "Ana", "s3cret-pass", "user"); err != nil {
		t.Fatal(err)
	}

	secret := sha256.Sum256([]byte("test-secret"))
	api := &testAPI{router: newRouter(st, previews, secret[:]), store: st}

	// Log in to get a token for authenticated calls.
	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"email":"a@example.com","password":"s3cret-pass"}`)
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))
	if rec.Code != 200 {
		t.Fatalf("login failed: %d %s", rec.Code, rec.Body)
	}
	var loginResp struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &loginResp); err != nil {
		t.Fatal(err)
	}
	api.token = loginResp.Token
	return api
}

func (a *testAPI) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_PreviewRequiresAuth(t *testing.T) {
	// WHAT: /api/link/preview answers 401 without a session.
	api := newTestAPI(t, &stubPreviewer{})
	rec := httptest.NewRecorder()
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/link/preview?url=https%3A%2F%2Fexample.com", nil))
	if rec.Code != 401 {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAPI_PreviewMissingURL(t *testing.T) {
	// WHAT: Missing url parameter is a 400.
	api := newTestAPI(t, &stubPreviewer{})
	if rec := api.do(t, http.MethodGet, "/api/link/preview", ""); rec.Code != 400 {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestAPI_PreviewSuccess(t *testing.T) {
	// WHAT: A successful pipeline run returns the metadata JSON with all
	// four fields present (empty strings allowed, never missing keys).
	previews := &stubPreviewer{metas: map[string]*linkpreview.Meta{
		"https://example.com": {URL: "https://example.com", Title: "Example"},
	}}
	api := newTestAPI(t, previews)

	rec := api.do(t, http.MethodGet, "/api/link/preview?url=https%3A%2F%2Fexample.com", "")
	if rec.Code != 200 {
		t.Fatalf("status = %d %s", rec.Code, rec.Body)
	}
	var got map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"url", "title", "description", "image"} {
		if _, ok := got[key]; !ok {
			t.Errorf("missing key %q in %v", key, got)
		}
	}
	if got["title"] != "Example" {
		t.Errorf("title = %q", got["title"])
	}
}

func TestAPI_PreviewFailuresAreOpaque(t *testing.T) {
	// WHAT: A blocked target and a plain network failure produce the
	// identical 400 body.
	// WHY: Any difference in client-visible messaging would give an
	// attacker an oracle for mapping internal network topology.
	previews := &stubPreviewer{errs: map[string]error{
		"https://internal.example": fmt.Errorf("%w: %w", linkpreview.ErrBlocked, linksafe.ErrDisallowedRange),
		"https://down.example":     fmt.Errorf("%w: connect refused", linkpreview.ErrBadStatus),
	}}
	api := newTestAPI(t, previews)

	blocked := api.do(t, http.MethodGet, "/api/link/preview?url=https%3A%2F%2Finternal.example", "")
	failed := api.do(t, http.MethodGet, "/api/link/preview?url=https%3A%2F%2Fdown.example", "")

	if blocked.Code != 400 || failed.Code != 400 {
		t.Fatalf("status: blocked=%d failed=%d", blocked.Code, failed.Code)
	}
	if blocked.Body.String() != failed.Body.String() {
		t.Errorf("bodies differ: %q vs %q", blocked.Body, failed.Body)
	}
}

func TestAPI_NoteLifecycleAndPrefs(t *testing.T) {
	// WHAT: Notes CRUD and the per-note hide preference over HTTP.
	api := newTestAPI(t, &stubPreviewer{})

	rec := api.do(t, http.MethodPost, "/api/notes", `{"content":"see example.com"}`)
	if rec.Code != 201 {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var note struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &note); err != nil {
		t.Fatal(err)
	}

	if rec := api.do(t, http.MethodGet, "/api/notes", ""); rec.Code != 200 {
		t.Errorf("list: %d", rec.Code)
	}

	// Hide preference defaults to false, then round-trips.
	rec = api.do(t, http.MethodGet, "/api/notes/"+note.ID+"/link-pref", "")
	if rec.Code != 200 || rec.Body.String() != "{\"hidden\":false}\n" {
		t.Errorf("pref default: %d %q", rec.Code, rec.Body)
	}
	rec = api.do(t, http.MethodPost, "/api/notes/"+note.ID+"/link-pref", `{"hidden":true}`)
	if rec.Code != 200 {
		t.Errorf("pref set: %d", rec.Code)
	}
	rec = api.do(t, http.MethodGet, "/api/notes/"+note.ID+"/link-pref", "")
	if rec.Body.String() != "{\"hidden\":true}\n" {
		t.Errorf("pref get: %q", rec.Body)
	}

	// Preference for a foreign or absent note is a 404.
	if rec := api.do(t, http.MethodGet, "/api/notes/note_missing/link-pref", ""); rec.Code != 404 {
		t.Errorf("missing note pref: %d", rec.Code)
	}

	if rec := api.do(t, http.MethodDelete, "/api/notes/"+note.ID, ""); rec.Code != 200 {
		t.Errorf("delete: %d", rec.Code)
	}
	if rec := api.do(t, http.MethodGet, "/api/notes/"+note.ID, ""); rec.Code != 404 {
		t.Errorf("get after delete: %d", rec.Code)
	}
}

func TestAPI_LoginRejectsBadPassword(t *testing.T) {
	// WHAT: Wrong credentials are a 401, not a 400 or 500.
	api := newTestAPI(t, &stubPreviewer{})
	rec := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"email":"a@example.com","password":"wrong"}`)
	api.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))
	if rec.Code != 401 {
		t.Errorf("status = %d", rec.Code)
	}
}

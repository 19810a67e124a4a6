package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/patattzel/memos/auth"
	"github.com/patattzel/memos/linkpreview"
	"github.com/patattzel/memos/shield"
	"github.com/patattzel/memos/store"
)

// previewer is what the API needs from the link-preview pipeline.
type previewer interface {
	Preview(ctx context.Context, rawURL string) (*linkpreview.Meta, error)
}

// newRouter wires the full HTTP API: security middleware, soft JWT parsing
// on all routes, public health and auth endpoints, and the authenticated
// notes + link-preview API.
func newRouter(st *store.Store, previews previewer, jwtSecret []byte) chi.Router {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack() {
		r.Use(mw)
	}
	r.Use(auth.Middleware(jwtSecret)) // soft: parses but does not enforce

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Public auth endpoints.
	r.Post("/api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, 400, err)
			return
		}
		u, err := st.Authenticate(r.Context(), req.Email, req.Password)
		if err != nil {
			writeJSON(w, 401, map[string]string{"error": "invalid credentials"})
			return
		}
		token, err := auth.GenerateToken(jwtSecret, &auth.Claims{
			UserID:   u.ID,
			Username: u.Name,
			Role:     u.Role,
		}, 30*24*time.Hour)
		if err != nil {
			writeError(w, 500, err)
			return
		}
		secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
		auth.SetTokenCookie(w, token, secure)
		writeJSON(w, 200, map[string]string{"id": u.ID, "name": u.Name, "role": u.Role, "token": token})
	})

	r.Post("/api/auth/logout", func(w http.ResponseWriter, _ *http.Request) {
		auth.ClearTokenCookie(w)
		writeJSON(w, 200, map[string]string{"status": "ok"})
	})

	// Everything below requires a valid session.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/api/auth/me", func(w http.ResponseWriter, r *http.Request) {
			c := auth.GetClaims(r.Context())
			writeJSON(w, 200, map[string]string{"id": c.UserID, "name": c.Username, "role": c.Role})
		})

		r.Route("/api/notes", func(r chi.Router) {
			r.Get("/", func(w http.ResponseWriter, r *http.Request) {
				notes, err := st.ListNotes(r.Context(), userID(r))
				if err != nil {
					writeError(w, 500, err)
					return
				}
				if notes == nil {
					notes = []*store.Note{}
				}
				writeJSON(w, 200, notes)
			})

			r.Post("/", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Content string `json:"content"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				n, err := st.CreateNote(r.Context(), userID(r), req.Content)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 201, n)
			})

			r.Get("/{noteID}", func(w http.ResponseWriter, r *http.Request) {
				n, err := st.GetNote(r.Context(), userID(r), chi.URLParam(r, "noteID"))
				if err != nil {
					writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, n)
			})

			r.Patch("/{noteID}", func(w http.ResponseWriter, r *http.Request) {
				var req struct {
					Content string `json:"content"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				n, err := st.UpdateNote(r.Context(), userID(r), chi.URLParam(r, "noteID"), req.Content)
				if err != nil {
					writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, n)
			})

			r.Delete("/{noteID}", func(w http.ResponseWriter, r *http.Request) {
				if err := st.DeleteNote(r.Context(), userID(r), chi.URLParam(r, "noteID")); err != nil {
					writeStoreError(w, err)
					return
				}
				writeJSON(w, 200, map[string]string{"status": "deleted"})
			})

			// Per-note link-preview hide preference.
			r.Get("/{noteID}/link-pref", func(w http.ResponseWriter, r *http.Request) {
				noteID := chi.URLParam(r, "noteID")
				if _, err := st.GetNote(r.Context(), userID(r), noteID); err != nil {
					writeStoreError(w, err)
					return
				}
				hidden, err := st.GetLinkHidden(r.Context(), userID(r), noteID)
				if err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]bool{"hidden": hidden})
			})

			r.Post("/{noteID}/link-pref", func(w http.ResponseWriter, r *http.Request) {
				noteID := chi.URLParam(r, "noteID")
				if _, err := st.GetNote(r.Context(), userID(r), noteID); err != nil {
					writeStoreError(w, err)
					return
				}
				var req struct {
					Hidden bool `json:"hidden"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					writeError(w, 400, err)
					return
				}
				if err := st.SetLinkHidden(r.Context(), userID(r), noteID, req.Hidden); err != nil {
					writeError(w, 500, err)
					return
				}
				writeJSON(w, 200, map[string]bool{"hidden": req.Hidden})
			})
		})

		// Link preview. Fetches happen server-side to dodge browser CORS
		// limits and so the SSRF gate actually has something to protect.
		r.Get("/api/link/preview", func(w http.ResponseWriter, r *http.Request) {
			rawURL := strings.TrimSpace(r.URL.Query().Get("url"))
			if rawURL == "" {
				writeJSON(w, 400, map[string]string{"error": "url is required"})
				return
			}

			meta, err := previews.Preview(r.Context(), rawURL)
			if err != nil {
				// Full detail server-side; one opaque message on the wire.
				// Distinguishing "blocked" from "unreachable" would hand an
				// attacker an oracle for probing internal topology.
				shield.GetLogger(r.Context()).Warn("link preview failed",
					"url", rawURL,
					"error", err,
					"blocked", errors.Is(err, linkpreview.ErrBlocked))
				writeJSON(w, 400, map[string]string{"error": "failed to fetch metadata"})
				return
			}
			writeJSON(w, 200, meta)
		})
	})

	return r
}

// userID returns the authenticated user's ID. Only valid under RequireAuth.
func userID(r *http.Request) string {
	return auth.GetClaims(r.Context()).UserID
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeJSON(w, 404, map[string]string{"error": "not found"})
		return
	}
	writeError(w, 500, err)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

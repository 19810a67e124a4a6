package auth

import (
	"crypto/sha256"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testSecret() []byte {
	h := sha256.Sum256([]byte("test-session-secret"))
	return h[:]
}

func TestTokenRoundTrip(t *testing.T) {
	// WHAT: A generated token validates back to the same claims.
	secret := testSecret()
	token, err := GenerateToken(secret, &Claims{UserID: "usr_1", Username: "ana", Role: "user"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	claims, err := ValidateToken(secret, token)
	if err != nil {
		t.Fatal(err)
	}
	if claims.UserID != "usr_1" || claims.Username != "ana" || claims.Role != "user" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestGenerateToken_ShortSecretRejected(t *testing.T) {
	// WHAT: Secrets under MinSecretLen are refused at signing time.
	// WHY: A weak HMAC key silently weakens every session.
	_, err := GenerateToken([]byte("short"), &Claims{UserID: "u"}, time.Hour)
	if !errors.Is(err, ErrSecretTooShort) {
		t.Errorf("got %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	// WHAT: A token signed with one secret fails under another.
	token, err := GenerateToken(testSecret(), &Claims{UserID: "u"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	other := sha256.Sum256([]byte("other"))
	if _, err := ValidateToken(other[:], token); err == nil {
		t.Error("expected validation failure")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	// WHAT: Expired tokens are rejected.
	secret := testSecret()
	token, err := GenerateToken(secret, &Claims{UserID: "u"}, -time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ValidateToken(secret, token); err == nil {
		t.Error("expected expiry failure")
	}
}

func TestMiddleware_CookieAndBearer(t *testing.T) {
	// WHAT: Claims flow into context from either the session cookie or
	// the Bearer header; bad tokens leave the context empty.
	secret := testSecret()
	token, err := GenerateToken(secret, &Claims{UserID: "usr_1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	var got *Claims
	h := Middleware(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetClaims(r.Context())
	}))

	// Cookie.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: token})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.UserID != "usr_1" {
		t.Errorf("cookie: claims = %+v", got)
	}

	// Bearer.
	got = nil
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got == nil || got.UserID != "usr_1" {
		t.Errorf("bearer: claims = %+v", got)
	}

	// Garbage token.
	got = &Claims{}
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if got != nil {
		t.Errorf("garbage: claims = %+v", got)
	}
}

func TestRequireAuth(t *testing.T) {
	// WHAT: RequireAuth returns 401 JSON without claims and passes with.
	secret := testSecret()
	token, err := GenerateToken(secret, &Claims{UserID: "usr_1"}, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	h := Middleware(secret)(RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated: status %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("authenticated: status %d", rec.Code)
	}
}

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Internal server error") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestRequestID(t *testing.T) {
	h := RequestID(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Fatal("no generated request ID")
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-supplied")
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "client-supplied" {
		t.Fatalf("request ID = %q, want client-supplied", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS(okHandler())

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/accounts", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS headers")
	}
}

type fakeAuthenticator struct {
	tokens []string
	err    error
}

func (f *fakeAuthenticator) Authenticate(token string) error {
	f.tokens = append(f.tokens, token)
	return f.err
}

func TestAuthBearerToken(t *testing.T) {
	fa := &fakeAuthenticator{}
	h := Auth(fa, zerolog.Nop())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok123")
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(fa.tokens) != 1 || fa.tokens[0] != "tok123" {
		t.Fatalf("authenticated tokens = %v", fa.tokens)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	fa := &fakeAuthenticator{err: errors.New("bad token")}
	h := Auth(fa, zerolog.Nop())(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer forged")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAuthPassThroughWithoutToken(t *testing.T) {
	fa := &fakeAuthenticator{err: errors.New("bad token")}
	h := Auth(fa, zerolog.Nop())(okHandler())

	// No Authorization header: the request proceeds signed out.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want pass-through 200", rec.Code)
	}
	if len(fa.tokens) != 0 {
		t.Fatalf("authenticator called %d times, want 0", len(fa.tokens))
	}

	// Nil authenticator disables token handling entirely.
	h = Auth(nil, zerolog.Nop())(okHandler())
	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer whatever")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("nil authenticator status = %d, want 200", rec.Code)
	}
}

package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt"
)

func TestStaticImmediateDelivery(t *testing.T) {
	p := NewStatic(&Session{UID: "u1", Name: "A"})

	var got *Session
	cancel := p.OnSessionChange(func(s *Session) { got = s })
	defer cancel()

	if got == nil || got.UID != "u1" {
		t.Fatalf("immediate delivery = %+v, want session u1", got)
	}
}

func TestStaticSessionChanges(t *testing.T) {
	p := NewStatic(nil)

	var events []*Session
	cancel := p.OnSessionChange(func(s *Session) { events = append(events, s) })
	defer cancel()

	p.SetSession(&Session{UID: "u1"})
	if err := p.SignOut(context.Background()); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("events = %d, want 3 (initial nil, session, sign-out nil)", len(events))
	}
	if events[0] != nil || events[1] == nil || events[1].UID != "u1" || events[2] != nil {
		t.Fatalf("event sequence = %+v", events)
	}
}

func TestStaticCancelStopsDelivery(t *testing.T) {
	p := NewStatic(nil)

	calls := 0
	cancel := p.OnSessionChange(func(*Session) { calls++ })
	cancel()
	cancel() // second cancel is a no-op

	p.SetSession(&Session{UID: "u1"})
	if calls != 1 {
		t.Fatalf("calls = %d, want only the immediate delivery", calls)
	}
}

const testSecret = "sync-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestTokenProviderAuthenticate(t *testing.T) {
	p := NewTokenProvider(testSecret)

	var got *Session
	cancel := p.OnSessionChange(func(s *Session) { got = s })
	defer cancel()

	token := signToken(t, testSecret, jwt.MapClaims{
		"sub":     "user-42",
		"name":    "Chen Li",
		"email":   "chen@example.com",
		"picture": "https://example.com/a.png",
	})
	if err := p.Authenticate(token); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	want := Session{UID: "user-42", Name: "Chen Li", Email: "chen@example.com", Avatar: "https://example.com/a.png"}
	if got == nil || *got != want {
		t.Fatalf("session = %+v, want %+v", got, want)
	}
}

func TestTokenProviderRejectsBadSignature(t *testing.T) {
	p := NewTokenProvider(testSecret)

	// An established session is torn down by a failed authentication.
	good := signToken(t, testSecret, jwt.MapClaims{"sub": "u1"})
	if err := p.Authenticate(good); err != nil {
		t.Fatalf("Authenticate: %v", err)
	}

	var got *Session
	cancel := p.OnSessionChange(func(s *Session) { got = s })
	defer cancel()

	bad := signToken(t, "other-secret", jwt.MapClaims{"sub": "u1"})
	if err := p.Authenticate(bad); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Authenticate bad signature = %v, want ErrInvalidToken", err)
	}
	if got != nil {
		t.Fatalf("session after failed auth = %+v, want nil", got)
	}
}

func TestTokenProviderRejectsMissingSubject(t *testing.T) {
	p := NewTokenProvider(testSecret)
	token := signToken(t, testSecret, jwt.MapClaims{"name": "Nobody"})
	if err := p.Authenticate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Authenticate without sub = %v, want ErrInvalidToken", err)
	}
}

func TestTokenProviderClaimFallbacks(t *testing.T) {
	cases := []struct {
		name      string
		claims    jwt.MapClaims
		wantName  string
		wantEmail string
	}{
		{
			name:      "name from email local part",
			claims:    jwt.MapClaims{"sub": "u1", "email": "pat@example.com"},
			wantName:  "pat",
			wantEmail: "pat@example.com",
		},
		{
			name:      "malformed email dropped",
			claims:    jwt.MapClaims{"sub": "u1", "email": "not-an-email"},
			wantName:  "User",
			wantEmail: "",
		},
		{
			name:     "no claims at all",
			claims:   jwt.MapClaims{"sub": "u1"},
			wantName: "User",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := NewTokenProvider(testSecret)
			var got *Session
			cancel := p.OnSessionChange(func(s *Session) { got = s })
			defer cancel()

			if err := p.Authenticate(signToken(t, testSecret, tc.claims)); err != nil {
				t.Fatalf("Authenticate: %v", err)
			}
			if got.Name != tc.wantName || got.Email != tc.wantEmail {
				t.Fatalf("session = %+v, want name %q email %q", got, tc.wantName, tc.wantEmail)
			}
		})
	}
}

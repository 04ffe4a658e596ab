package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/golang-jwt/jwt"
)

var (
	// ErrInvalidToken is returned when a presented token fails signature or
	// claim validation.
	ErrInvalidToken = errors.New("identity token is invalid")
)

// TokenProvider derives the session from HS256 ID tokens signed with a
// shared secret. It keeps at most one active session; presenting a new valid
// token replaces it, and invalid tokens leave the provider signed out rather
// than erroring to subscribers.
type TokenProvider struct {
	secret string
	inner  *Static
}

// NewTokenProvider creates a signed-out token provider.
func NewTokenProvider(secret string) *TokenProvider {
	return &TokenProvider{
		secret: secret,
		inner:  NewStatic(nil),
	}
}

// Authenticate validates tokenString and, on success, starts a session built
// from its claims. On failure the provider signs out and reports
// ErrInvalidToken.
func (p *TokenProvider) Authenticate(tokenString string) error {
	session, err := p.sessionFromToken(tokenString)
	if err != nil {
		p.inner.SetSession(nil)
		return err
	}
	p.inner.SetSession(session)
	return nil
}

// OnSessionChange implements Provider.
func (p *TokenProvider) OnSessionChange(h SessionHandler) CancelFunc {
	return p.inner.OnSessionChange(h)
}

// SignOut implements Provider.
func (p *TokenProvider) SignOut(ctx context.Context) error {
	return p.inner.SignOut(ctx)
}

func (p *TokenProvider) sessionFromToken(tokenString string) (*Session, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(p.secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	uid, _ := claims["sub"].(string)
	if uid == "" {
		return nil, ErrInvalidToken
	}

	email, _ := claims["email"].(string)
	if email != "" {
		// A malformed email claim is dropped, not fatal; the rest of the
		// session is still usable.
		if err := checkmail.ValidateFormat(email); err != nil {
			email = ""
		}
	}

	name, _ := claims["name"].(string)
	if name == "" {
		if at := strings.Index(email, "@"); at > 0 {
			name = email[:at]
		} else {
			name = "User"
		}
	}

	avatar, _ := claims["picture"].(string)

	return &Session{UID: uid, Name: name, Email: email, Avatar: avatar}, nil
}

// Ensure TokenProvider implements Provider.
var _ Provider = (*TokenProvider)(nil)

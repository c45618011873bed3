// utils/session.go
package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidSession = errors.New("invalid session token")
	ErrSessionExpired = errors.New("session token expired")
)

// SessionClaims identify a broadcast subscriber.
type SessionClaims struct {
	UserID    string   `json:"sub"`
	Roles     []string `json:"roles,omitempty"`
	ExpiresAt int64    `json:"exp"`
}

// SessionSigner issues and verifies HMAC-SHA256 signed session tokens of the
// form base64url(claims).base64url(signature).
type SessionSigner struct {
	secret []byte
	now    func() time.Time
}

func NewSessionSigner(secret string) *SessionSigner {
	return &SessionSigner{secret: []byte(secret), now: time.Now}
}

func (s *SessionSigner) sign(payload string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// Issue returns a token for userID valid for ttl.
func (s *SessionSigner) Issue(userID string, roles []string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: empty user id", ErrInvalidSession)
	}
	claims := SessionClaims{
		UserID:    userID,
		Roles:     roles,
		ExpiresAt: s.now().Add(ttl).Unix(),
	}
	raw, err := json.Marshal(claims)
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + s.sign(payload), nil
}

// Verify checks signature and expiry.
func (s *SessionSigner) Verify(token string) (*SessionClaims, error) {
	payload, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || payload == "" || sig == "" {
		return nil, ErrInvalidSession
	}
	if !hmac.Equal([]byte(sig), []byte(s.sign(payload))) {
		return nil, ErrInvalidSession
	}
	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, ErrInvalidSession
	}
	var claims SessionClaims
	if err := json.Unmarshal(raw, &claims); err != nil || claims.UserID == "" {
		return nil, ErrInvalidSession
	}
	if s.now().Unix() >= claims.ExpiresAt {
		return nil, ErrSessionExpired
	}
	return &claims, nil
}

// Authenticate satisfies broadcast.Authenticator.
func (s *SessionSigner) Authenticate(token string) (string, error) {
	claims, err := s.Verify(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

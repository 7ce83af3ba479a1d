// Package token issues and verifies the two capability token kinds: session
// tokens identifying a logged-in user and share tokens granting time-boxed
// access to a single document. Both are self-contained HMAC-signed JWTs; no
// server-side state is kept.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Kind string

const (
	KindSession Kind = "session"
	KindShare   Kind = "share"
)

const (
	SessionTTL = 7 * 24 * time.Hour
	ShareTTL   = 30 * 24 * time.Hour
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	// ErrWrongKind is returned when a share token is presented where a
	// session token is expected, or vice versa.
	ErrWrongKind = errors.New("wrong token kind")
)

// Claims is the payload for both kinds. Session tokens carry UserID+Email,
// share tokens carry DocumentID; Kind tags which is which so one can never
// be replayed as the other.
type Claims struct {
	UserID     string `json:"uid,omitempty"`
	Email      string `json:"email,omitempty"`
	DocumentID string `json:"doc,omitempty"`
	Kind       Kind   `json:"kind"`
	jwt.RegisteredClaims
}

type Service struct {
	secret     []byte
	sessionTTL time.Duration
	shareTTL   time.Duration
}

func NewService(secret string) *Service {
	return &Service{
		secret:     []byte(secret),
		sessionTTL: SessionTTL,
		shareTTL:   ShareTTL,
	}
}

func (s *Service) IssueSessionToken(userID, email string) (string, error) {
	return s.sign(Claims{UserID: userID, Email: email, Kind: KindSession}, s.sessionTTL)
}

func (s *Service) IssueShareToken(documentID string) (string, error) {
	return s.sign(Claims{DocumentID: documentID, Kind: KindShare}, s.shareTTL)
}

func (s *Service) sign(claims Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifySession validates tokenString as a session token.
func (s *Service) VerifySession(tokenString string) (*Claims, error) {
	return s.verify(tokenString, KindSession)
}

// VerifyShare validates tokenString as a share token.
func (s *Service) VerifyShare(tokenString string) (*Claims, error) {
	return s.verify(tokenString, KindShare)
}

func (s *Service) verify(tokenString string, want Kind) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Kind != want {
		return nil, ErrWrongKind
	}
	return claims, nil
}

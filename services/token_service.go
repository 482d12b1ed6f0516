package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

const (
	claimUserID    = "user_id"
	claimTokenType = "typ"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenVerifier is the part of TokenService the auth middleware needs.
type TokenVerifier interface {
	ParseAccess(token string) (int, error)
}

type TokenService interface {
	TokenVerifier
	IssueAccess(userID int) (string, error)
	IssueRefresh(userID int) (string, error)
	ParseRefresh(token string) (int, error)
}

type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type jwtTokenService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) TokenService {
	return &jwtTokenService{cfg: cfg, now: time.Now}
}

func (s *jwtTokenService) IssueAccess(userID int) (string, error) {
	return s.sign(userID, tokenTypeAccess, s.cfg.AccessSecret, s.cfg.AccessTTL)
}

func (s *jwtTokenService) IssueRefresh(userID int) (string, error) {
	return s.sign(userID, tokenTypeRefresh, s.cfg.RefreshSecret, s.cfg.RefreshTTL)
}

func (s *jwtTokenService) ParseAccess(token string) (int, error) {
	return s.parse(token, tokenTypeAccess, s.cfg.AccessSecret)
}

func (s *jwtTokenService) ParseRefresh(token string) (int, error) {
	return s.parse(token, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *jwtTokenService) sign(userID int, typ, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		claimUserID:    userID,
		claimTokenType: typ,
		"iat":          now.Unix(),
		"exp":          now.Add(ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *jwtTokenService) parse(raw, typ, secret string) (int, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidToken
	}
	if claims[claimTokenType] != typ {
		return 0, ErrInvalidToken
	}
	return userIDFromClaims(claims)
}

// userIDFromClaims accepts the float64 encoding/json produces for numbers.
func userIDFromClaims(claims jwt.MapClaims) (int, error) {
	raw, ok := claims[claimUserID]
	if !ok {
		return 0, ErrInvalidToken
	}
	f, ok := raw.(float64)
	if !ok || f != float64(int(f)) || f <= 0 {
		return 0, errors.Join(ErrInvalidToken, fmt.Errorf("bad %s claim %v", claimUserID, raw))
	}
	return int(f), nil
}

package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"

	"github.com/medstargenx/accounts/internal/core/domain"
	"github.com/medstargenx/accounts/internal/core/ports"
)

const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// TokenConfig configures the JWT issuer. Access and refresh tokens are signed
// with different secrets so one can never be replayed as the other.
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
}

type tokenClaims struct {
	jwt.RegisteredClaims
	Type string      `json:"typ"`
	Role domain.Role `json:"role,omitempty"`
}

// JWTService issues HS256 access/refresh tokens. Tokens are stateless: there
// is no server-side revocation.
type JWTService struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenService(cfg TokenConfig) *JWTService {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTokenTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTokenTTL
	}
	return &JWTService{cfg: cfg, now: time.Now}
}

func (s *JWTService) IssuePair(acc *domain.Account) (ports.TokenPair, error) {
	access, err := s.IssueAccess(acc)
	if err != nil {
		return ports.TokenPair{}, err
	}
	refresh, err := s.sign(acc, tokenTypeRefresh, s.cfg.RefreshTTL, s.cfg.RefreshSecret)
	if err != nil {
		return ports.TokenPair{}, err
	}
	return ports.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *JWTService) IssueAccess(acc *domain.Account) (string, error) {
	return s.sign(acc, tokenTypeAccess, s.cfg.AccessTTL, s.cfg.AccessSecret)
}

func (s *JWTService) ParseAccess(raw string) (string, error) {
	return s.parse(raw, tokenTypeAccess, s.cfg.AccessSecret)
}

func (s *JWTService) ParseRefresh(raw string) (string, error) {
	return s.parse(raw, tokenTypeRefresh, s.cfg.RefreshSecret)
}

func (s *JWTService) sign(acc *domain.Account, typ string, ttl time.Duration, secret string) (string, error) {
	now := s.now().UTC()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   acc.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        ulid.Make().String(),
		},
		Type: typ,
		Role: acc.Role,
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", typ, err)
	}
	return signed, nil
}

func (s *JWTService) parse(raw, typ, secret string) (string, error) {
	if raw == "" {
		return "", domain.ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.Issuer))
	}

	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil || !tkn.Valid {
		return "", domain.ErrInvalidToken
	}
	if claims.Type != typ || claims.Subject == "" {
		return "", domain.ErrInvalidToken
	}
	return claims.Subject, nil
}

// Package auth issues and verifies the signed bearer tokens used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Audience is the only audience accepted by Parse.
const Audience = "conduit-client"

var (
	ErrInvalidToken = errors.New("invalid or expired token")
	ErrWrongType    = errors.New("wrong token type")
	ErrRevoked      = errors.New("token has been revoked")
)

// Claims are the registered JWT claims plus the token type.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// UserID returns the subject as a user ID.
func (c *Claims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad subject", ErrInvalidToken)
	}
	return uint(id), nil
}

// Pair is an access token together with the refresh token issued alongside it.
type Pair struct {
	Access  string
	Refresh string
}

// Manager signs and verifies HS256 tokens. A nil redis client disables revocation.
type Manager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	redis      *redis.Client
	now        func() time.Time
}

// NewManager builds a Manager; an empty issuer defaults to "conduit-api".
func NewManager(secret, issuer string, accessTTL, refreshTTL time.Duration, rdb *redis.Client) *Manager {
	if issuer == "" {
		issuer = "conduit-api"
	}
	return &Manager{
		secret:     []byte(secret),
		issuer:     issuer,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		redis:      rdb,
		now:        time.Now,
	}
}

// Issue signs a token of the given type for userID.
func (m *Manager) Issue(userID uint, typ string) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("JWT secret not configured")
	}

	ttl := m.accessTTL
	if typ == TypeRefresh {
		ttl = m.refreshTTL
	}

	now := m.now()
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        newJTI(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// IssuePair signs an access and a refresh token for userID.
func (m *Manager) IssuePair(userID uint) (Pair, error) {
	access, err := m.Issue(userID, TypeAccess)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := m.Issue(userID, TypeRefresh)
	if err != nil {
		return Pair{}, err
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

func newJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.NewString())
}

// Parse verifies signature, issuer, audience, expiry and the expected type,
// then checks the revocation list.
func (m *Manager) Parse(ctx context.Context, tokenString, expectedType string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != expectedType {
		return nil, ErrWrongType
	}
	if _, err := claims.UserID(); err != nil {
		return nil, err
	}

	// A Redis outage does not lock every user out.
	if revoked, err := m.IsRevoked(ctx, claims.ID); err == nil && revoked {
		return nil, ErrRevoked
	}
	return claims, nil
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}

// IsRevoked reports whether jti is on the blacklist. Without Redis nothing is revoked.
func (m *Manager) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if m.redis == nil || jti == "" {
		return false, nil
	}
	n, err := m.redis.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return n > 0, nil
}

// Revoke blacklists the token until it would have expired anyway.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.redis == nil || claims.ID == "" {
		return nil
	}
	ttl := time.Minute
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Sub(m.now()); remaining > 0 {
			ttl = remaining
		}
	}
	return m.redis.Set(ctx, blacklistKey(claims.ID), "1", ttl).Err()
}

// ExtractBearer pulls the token out of an Authorization header. Both the
// "Bearer" and "Token" schemes are accepted.
func ExtractBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	if strings.EqualFold(scheme, "Bearer") || strings.EqualFold(scheme, "Token") {
		return token, true
	}
	return "", false
}

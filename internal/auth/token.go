package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/vedran77/relay/internal/domain"
)

// Claims is the verified identity extracted from a credential. UserID is
// the one canonical identifier representation used everywhere downstream:
// the presence registry, the message store and the HTTP layer all key on
// the same uuid.UUID, whether the credential arrived on an API call or a
// WebSocket handshake.
type Claims struct {
	UserID   uuid.UUID
	Username string
}

type tokenClaims struct {
	Username string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
}

// TokenManager issues and verifies the short-lived access credential and
// the longer-lived refresh credential. The two are signed with separate
// secrets, so one can never pass as the other.
type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (m *TokenManager) GenerateTokenPair(user *domain.User) (*TokenPair, error) {
	access, err := m.sign(user.ID, user.Username, m.accessSecret, m.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := m.sign(user.ID, "", m.refreshSecret, m.refreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccess validates an access credential and returns the identity it
// carries. Fails with domain.ErrInvalidCredential when the signature does
// not verify, the token is malformed, or it is expired. No side effects.
func (m *TokenManager) VerifyAccess(credential string) (*Claims, error) {
	return m.verify(credential, m.accessSecret)
}

// VerifyRefresh validates a refresh credential.
func (m *TokenManager) VerifyRefresh(credential string) (*Claims, error) {
	return m.verify(credential, m.refreshSecret)
}

func (m *TokenManager) RefreshTTL() time.Duration {
	return m.refreshTTL
}

func (m *TokenManager) sign(userID uuid.UUID, username string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &tokenClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "relay",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (m *TokenManager) verify(credential string, secret []byte) (*Claims, error) {
	token, err := jwt.ParseWithClaims(credential, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, domain.ErrInvalidCredential
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok {
		return nil, domain.ErrInvalidCredential
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domain.ErrInvalidCredential
	}

	return &Claims{UserID: userID, Username: claims.Username}, nil
}

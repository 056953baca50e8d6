package security

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the token fields the application cares about: the subject
// username and the revocable device session the token was issued for.
type Claims struct {
	Username  string
	SessionID string
}

// TokenService wraps JWT creation and validation.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	return &TokenService{
		secret:    []byte(secret),
		expiresIn: expiresIn,
	}
}

// Create issues a token for the given username bound to a device session.
func (t *TokenService) Create(username, sessionID string) (string, error) {
	return t.CreateWithTTL(username, sessionID, t.expiresIn)
}

// CreateWithTTL issues a token with an explicit TTL (remember-me logins).
func (t *TokenService) CreateWithTTL(username, sessionID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": username,
		"sid": sessionID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates a token and returns its claims.
func (t *TokenService) Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenMalformed
	}
	sub, _ := mapClaims["sub"].(string)
	sid, _ := mapClaims["sid"].(string)
	return &Claims{Username: sub, SessionID: sid}, nil
}

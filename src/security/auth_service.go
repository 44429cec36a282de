// backend/src/security/auth_service.go
package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/username/vertex/backend/src/models"
)

var ErrInvalidToken = errors.New("invalid token")

// PrincipalClaims is the access-token payload issued by the backoffice login.
type PrincipalClaims struct {
	UserID    int64  `json:"id"`
	Perm      string `json:"perm"`
	PermID    int64  `json:"perm_id"`
	Hierarchy *int   `json:"hierarchy"`
	EntityID  int64  `json:"entity_id"`
	jwt.RegisteredClaims
}

type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(jwtSecret string) *AuthService {
	return &AuthService{jwtSecret: []byte(jwtSecret)}
}

// GenerateToken signs an HS256 access token for p valid for ttl.
func (s *AuthService) GenerateToken(p models.Principal, ttl time.Duration) (string, error) {
	hierarchy := p.Hierarchy
	now := time.Now()
	claims := PrincipalClaims{
		UserID:    p.ID,
		Perm:      p.Permission,
		PermID:    p.PermID,
		Hierarchy: &hierarchy,
		EntityID:  p.EntityID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies signature and expiry and returns the typed caller.
func (s *AuthService) ValidateToken(tokenString string) (models.Principal, error) {
	claims := &PrincipalClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return models.Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if claims.Subject == "" || claims.UserID == 0 {
		return models.Principal{}, fmt.Errorf("%w: missing subject or user id", ErrInvalidToken)
	}
	if claims.Hierarchy == nil {
		return models.Principal{}, fmt.Errorf("%w: missing permission hierarchy", ErrInvalidToken)
	}

	return models.Principal{
		ID:         claims.UserID,
		Email:      claims.Subject,
		Permission: claims.Perm,
		PermID:     claims.PermID,
		Hierarchy:  *claims.Hierarchy,
		EntityID:   claims.EntityID,
	}, nil
}

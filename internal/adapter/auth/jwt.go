package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"github.com/YelzhanWeb/foodorder/internal/domain"
	"github.com/YelzhanWeb/foodorder/internal/interfaces"
)

// JWTProvider verifies HS256 bearer tokens whose subject is the user id.
type JWTProvider struct {
	secret []byte
	users  interfaces.UserRepository
}

func NewJWTProvider(secret string, users interfaces.UserRepository) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), users: users}
}

var _ interfaces.AuthProvider = (*JWTProvider)(nil)

func (p *JWTProvider) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return nil, domain.Wrap(domain.ErrUnauthorized, err)
	}

	userID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return nil, domain.Wrap(domain.ErrUnauthorized, fmt.Errorf("invalid subject %q", claims.Subject))
	}

	user, err := p.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrForbidden
	}
	return user, nil
}

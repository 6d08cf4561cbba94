package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mhrk404/m88-dev-tracker-sub000/internal/logger"
	"github.com/mhrk404/m88-dev-tracker-sub000/internal/requestdata"
)

// AuthService validates access tokens minted by the external session provider
// and loads the asserted identity into the request context. The workflow
// engine trusts the claims; it never issues tokens or manages accounts.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
}

type identityClaims struct {
	Username string `json:"username"`
	FullName string `json:"full_name"`
	RoleCode string `json:"role_code"`
	Region   string `json:"region"`
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
}

func NewAuthService(baseLog *logger.Logger, jwtSecretKey string) AuthService {
	return &authService{
		log:          baseLog.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
	}
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}

	claims := &identityClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil {
		return ctx, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return ctx, fmt.Errorf("invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject")
	}
	if strings.TrimSpace(claims.RoleCode) == "" {
		return ctx, fmt.Errorf("token missing role_code")
	}

	rd := &requestdata.RequestData{
		UserID:   userID,
		Username: claims.Username,
		FullName: claims.FullName,
		RoleCode: strings.ToUpper(strings.TrimSpace(claims.RoleCode)),
		Region:   claims.Region,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

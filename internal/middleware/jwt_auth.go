package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anonto42/nano-midea/comments/internal/models"
	"github.com/anonto42/nano-midea/comments/internal/requestctx"
	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
)

// ErrNoCaller is returned when a verified token carries no usable user id.
var ErrNoCaller = errors.New("token carries no user_id")

// Authenticator resolves the calling user from a bearer token.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (int64, error)
}

// RequireUser rejects requests without a valid bearer token and stores the
// caller's id in the request context.
func RequireUser(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing Authorization header")
			}

			// Expecting "Bearer <token>"
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid Authorization header format")
			}

			req := c.Request()
			userID, err := auth.Authenticate(req.Context(), parts[1])
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token").SetInternal(err)
			}

			c.SetRequest(req.WithContext(requestctx.WithUserID(req.Context(), userID)))
			return next(c)
		}
	}
}

// JWTAuthenticator verifies HS256 tokens issued with JwtCustomClaims.
type JWTAuthenticator struct {
	secret []byte
}

// NewJWTAuthenticator creates a JWTAuthenticator for the shared secret.
func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(_ context.Context, tokenString string) (int64, error) {
	claims := &models.JwtCustomClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid {
		return 0, errors.New("invalid token")
	}
	if claims.UserID <= 0 {
		return 0, ErrNoCaller
	}
	return claims.UserID, nil
}

// JWTAuthMiddleware checks for a valid JWT and extracts the caller.
func JWTAuthMiddleware(secret string) echo.MiddlewareFunc {
	return RequireUser(NewJWTAuthenticator(secret))
}

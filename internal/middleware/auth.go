package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"photo-studio-backend/internal/config"
	"photo-studio-backend/internal/models"
)

const (
	UserIDKey    = "user_id"
	AuthTokenKey = "auth_token"
)

// AuthMiddleware verifies the Supabase access token (HS256) and stores the
// user id and the raw token in the context. The raw token is forwarded to the
// job proxy as the caller's bearer token.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, "missing authorization header", "")
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c, "invalid authorization header format", "")
			return
		}

		tokenString := strings.TrimSpace(parts[1])
		if tokenString == "" {
			abortUnauthorized(c, "empty token", "")
			return
		}

		// Try URL decoding in case the token was URL-encoded
		decodedToken, err := url.QueryUnescape(tokenString)
		if err == nil && decodedToken != tokenString {
			tokenString = decodedToken
		}

		if len(strings.Split(tokenString, ".")) != 3 {
			abortUnauthorized(c, "invalid token format", "JWT token must have 3 parts separated by dots")
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			if cfg.SupabaseJWTSecret == "" {
				return nil, jwt.ErrSignatureInvalid
			}
			// Supabase JWT secret is used directly as the signing key
			return []byte(cfg.SupabaseJWTSecret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil {
			abortUnauthorized(c, "invalid token", describeTokenError(err))
			return
		}

		if !token.Valid {
			abortUnauthorized(c, "invalid token", "")
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			abortUnauthorized(c, "invalid token claims", "")
			return
		}

		sub, ok := claims["sub"].(string)
		if !ok || sub == "" {
			abortUnauthorized(c, "missing user id in token", "")
			return
		}

		c.Set(UserIDKey, sub)
		c.Set(AuthTokenKey, tokenString)
		c.Next()
	}
}

func describeTokenError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "signature is invalid"):
		return "token signature is invalid - check JWT secret"
	case strings.Contains(msg, "token is expired"):
		return "token has expired"
	case strings.Contains(msg, "could not JSON decode"):
		return "token is malformed - ensure you're using a valid Supabase JWT token"
	case strings.Contains(msg, "signing method"):
		return "token must use HS256 algorithm"
	}
	return msg
}

func abortUnauthorized(c *gin.Context, errMsg, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{Error: errMsg, Message: message})
}

// UserID returns the authenticated user id set by AuthMiddleware.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

// AuthToken returns the verified bearer token set by AuthMiddleware.
func AuthToken(c *gin.Context) string {
	return c.GetString(AuthTokenKey)
}

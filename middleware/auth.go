// Package middleware holds the gin middleware guarding the assistant routes.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"pharmassist-backend/logging"
	"pharmassist-backend/models"
)

const callerKey = "caller"

var (
	ErrMissingToken = errors.New("no token, authorization denied")
	ErrInvalidToken = errors.New("token is not valid")
)

// UserLookup resolves the account behind a token
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// SignToken issues an HS256 token whose claims carry user.id
func SignToken(userID uuid.UUID, secret []byte, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user": map[string]any{"id": userID.String()},
		"iat":  time.Now().Unix(),
		"exp":  time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken verifies the token and returns the user ID it carries
func ParseToken(token string, secret []byte) (uuid.UUID, error) {
	parsed, err := jwt.Parse(token, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !parsed.Valid {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	user, ok := claims["user"].(map[string]any)
	if !ok {
		return uuid.Nil, ErrInvalidToken
	}
	raw, _ := user["id"].(string)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad user id", ErrInvalidToken)
	}
	return id, nil
}

// Auth verifies the request token and stores the caller in the gin context.
// The token is read from x-auth-token, then Authorization: Bearer.
func Auth(secret []byte, users UserLookup, logger *zap.Logger) gin.HandlerFunc {
	logger = logging.OrNop(logger)
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrMissingToken.Error())
			return
		}

		userID, err := ParseToken(token, secret)
		if err != nil {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrInvalidToken.Error())
			return
		}

		user, err := users.GetByID(c.Request.Context(), userID)
		if err != nil {
			logger.Debug("token user lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrInvalidToken.Error())
			return
		}

		c.Set(callerKey, &models.CallerContext{
			UserID:    user.ID,
			IsPremium: user.IsPremium(),
		})
		c.Next()
	}
}

// RequirePremium rejects callers without a premium plan. It must run after Auth.
func RequirePremium() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := Caller(c)
		if !ok {
			abort(c, http.StatusUnauthorized, "UNAUTHORIZED", ErrMissingToken.Error())
			return
		}
		if !caller.IsPremium {
			abort(c, http.StatusForbidden, "PREMIUM_REQUIRED", "This feature is for premium users only")
			return
		}
		c.Next()
	}
}

// Caller returns the caller stored by Auth
func Caller(c *gin.Context) (*models.CallerContext, bool) {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil, false
	}
	caller, ok := v.(*models.CallerContext)
	return caller, ok
}

func extractToken(c *gin.Context) string {
	if tok := strings.TrimSpace(c.GetHeader("x-auth-token")); tok != "" {
		return tok
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	})
}

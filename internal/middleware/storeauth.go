package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/shopmind/shopmind-backend/internal/logger"
)

// StoreIDKey is where RequireStore leaves the authenticated tenant id.
const StoreIDKey = "store_id"

type StoreAuthMiddleware struct {
	log    *logger.Logger
	secret []byte
}

func NewStoreAuthMiddleware(log *logger.Logger) *StoreAuthMiddleware {
	return &StoreAuthMiddleware{
		log:    log.With("Middleware", "StoreAuthMiddleware"),
		secret: []byte(os.Getenv("JWT_SECRET")),
	}
}

// RequireStore authenticates the tenant: a bearer token carrying a store_id
// claim, or the X-Store-ID header when no JWT secret is configured (local
// development only).
func (m *StoreAuthMiddleware) RequireStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		storeID, err := m.resolveStore(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(StoreIDKey, storeID)
		c.Next()
	}
}

func (m *StoreAuthMiddleware) resolveStore(c *gin.Context) (uuid.UUID, error) {
	if token := extractBearer(c); token != "" && len(m.secret) > 0 {
		return m.storeFromToken(token)
	}
	if len(m.secret) == 0 {
		if header := strings.TrimSpace(c.GetHeader("X-Store-ID")); header != "" {
			return uuid.Parse(header)
		}
	}
	return uuid.Nil, fmt.Errorf("missing or invalid credentials")
}

func (m *StoreAuthMiddleware) storeFromToken(tokenString string) (uuid.UUID, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	raw, ok := claims["store_id"].(string)
	if !ok || raw == "" {
		return uuid.Nil, fmt.Errorf("token has no store_id claim")
	}
	return uuid.Parse(raw)
}

// GetStoreID reads the tenant id RequireStore stored on the context.
func GetStoreID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(StoreIDKey)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

func extractBearer(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return header[7:]
	}
	return ""
}

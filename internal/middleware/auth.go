package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	tokenIssuer = "number-warming-service"

	ctxTenantID = "tenant_id"
	ctxRole     = "role"
	ctxClaims   = "claims"

	// TenantHeader names the tenant when token checks are disabled.
	TenantHeader = "X-Tenant-ID"
)

var errNoTenant = errors.New("no tenant in request context")

type Claims struct {
	UserID   string `json:"user_id"`
	TenantID string `json:"tenant_id,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates bearer tokens signed with a shared HMAC secret. Tokens
// are issued elsewhere; GenerateToken exists for tooling and tests.
type JWTAuth struct {
	secret   []byte
	required bool
}

func NewJWTAuth(secret string, required bool) *JWTAuth {
	return &JWTAuth{secret: []byte(secret), required: required}
}

func (a *JWTAuth) GenerateToken(userID, tenantID, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func (a *JWTAuth) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, fmt.Errorf("invalid token")
}

// Middleware resolves the calling tenant. With auth required the tenant
// comes from the token claims (tenant_id, else user_id); otherwise the
// X-Tenant-ID header is trusted.
func (a *JWTAuth) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.required {
			a.trustHeader(c)
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims, err := a.ValidateToken(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token", "details": err.Error()})
			return
		}

		subject := claims.TenantID
		if subject == "" {
			subject = claims.UserID
		}
		tenantID, err := uuid.Parse(subject)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token carries no valid tenant"})
			return
		}

		c.Set(ctxTenantID, tenantID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func (a *JWTAuth) trustHeader(c *gin.Context) {
	tenantID, err := uuid.Parse(c.GetHeader(TenantHeader))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": TenantHeader + " header required"})
		return
	}
	role := RoleUser
	if c.GetHeader("X-Role") == RoleAdmin {
		role = RoleAdmin
	}
	c.Set(ctxTenantID, tenantID)
	c.Set(ctxRole, role)
	c.Next()
}

// AdminOnlyMiddleware ensures only admin users can access the endpoint.
func AdminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !IsAdmin(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// TenantID returns the tenant resolved by the auth middleware.
func TenantID(c *gin.Context) (uuid.UUID, error) {
	v, ok := c.Get(ctxTenantID)
	if !ok {
		return uuid.Nil, errNoTenant
	}
	id, ok := v.(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, errNoTenant
	}
	return id, nil
}

func IsAdmin(c *gin.Context) bool {
	return c.GetString(ctxRole) == RoleAdmin
}

// SetIdentity stores a tenant and role on the context, for handlers
// mounted behind a different authenticator and for tests.
func SetIdentity(c *gin.Context, tenantID uuid.UUID, role string) {
	c.Set(ctxTenantID, tenantID)
	c.Set(ctxRole, role)
}

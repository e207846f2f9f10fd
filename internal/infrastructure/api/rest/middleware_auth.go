package rest

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gridflow/gridflow/internal/application/auth"
	"github.com/gridflow/gridflow/internal/application/servicekey"
	"github.com/gridflow/gridflow/pkg/models"
	pkgmodels "github.com/gridflow/gridflow/pkg/models"
)

const (
	ContextKeyUserID       = "user_id"
	ContextKeyUser         = "user"
	ContextKeyClaims       = "claims"
	ContextKeyToken        = "token"
	ContextKeyIsAdmin      = "is_admin"
	ContextKeyPermissions  = "permissions"
	ContextKeyAuthMethod   = "auth_method"
	ContextKeyServiceKeyID = "service_key_id"
)

// AuthMiddleware provides authentication and authorization middleware.
type AuthMiddleware struct {
	providerManager   *auth.ProviderManager
	authService       *auth.Service
	serviceKeyService *servicekey.Service
}

// NewAuthMiddleware creates a new authentication middleware.
func NewAuthMiddleware(pm *auth.ProviderManager, authService *auth.Service, serviceKeyService *servicekey.Service) *AuthMiddleware {
	return &AuthMiddleware{
		providerManager:   pm,
		authService:       authService,
		serviceKeyService: serviceKeyService,
	}
}

// RequireAuth middleware that requires valid authentication.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}

		if strings.HasPrefix(token, "sk_") && m.serviceKeyService != nil {
			serviceKey, err := m.serviceKeyService.ValidateKey(c.Request.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, models.ErrServiceKeyRevoked):
					respondError(c, http.StatusUnauthorized, "service key has been revoked")
				case errors.Is(err, models.ErrServiceKeyExpired):
					respondError(c, http.StatusUnauthorized, "service key has expired")
				default:
					respondError(c, http.StatusUnauthorized, "invalid service key")
				}
				c.Abort()
				return
			}

			c.Set(ContextKeyUserID, serviceKey.UserID)
			c.Set(ContextKeyIsAdmin, false)
			c.Set(ContextKeyAuthMethod, "service_key")
			c.Set(ContextKeyServiceKeyID, serviceKey.ID)

			c.Next()
			return
		}

		claims, err := m.providerManager.ValidateToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, auth.ErrExpiredToken) {
				respondError(c, http.StatusUnauthorized, "token expired")
			} else {
				respondError(c, http.StatusUnauthorized, "invalid token")
			}
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)
		c.Set(ContextKeyAuthMethod, "jwt")

		c.Next()
	}
}

// OptionalAuth middleware allows unauthenticated requests but sets user context if present.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c)
		if err != nil {
			c.Next()
			return
		}

		claims, err := m.providerManager.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.Next()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// RequireAdmin middleware requires admin privileges.
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}

		claims, err := m.providerManager.ValidateToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		if !claims.IsAdmin {
			respondError(c, http.StatusForbidden, "admin privileges required")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIsAdmin, true)

		c.Next()
	}
}

// RequireRole middleware requires one of the given roles; admins bypass the check.
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}

		claims, err := m.providerManager.ValidateToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		if claims.IsAdmin {
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyToken, token)
			c.Set(ContextKeyIsAdmin, true)
			c.Next()
			return
		}

		hasRole := false
		for _, requiredRole := range roles {
			for _, userRole := range claims.Roles {
				if strings.EqualFold(userRole, requiredRole) {
					hasRole = true
					break
				}
			}
			if hasRole {
				break
			}
		}

		if !hasRole {
			respondError(c, http.StatusForbidden, "insufficient privileges")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// RequirePermission middleware requires a specific permission; admins bypass the check.
func (m *AuthMiddleware) RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := m.extractToken(c)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}

		claims, err := m.providerManager.ValidateToken(c.Request.Context(), token)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		if claims.IsAdmin {
			c.Set(ContextKeyUserID, claims.UserID)
			c.Set(ContextKeyClaims, claims)
			c.Set(ContextKeyToken, token)
			c.Set(ContextKeyIsAdmin, true)
			c.Next()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid user ID")
			c.Abort()
			return
		}

		hasPermission, err := m.authService.HasPermission(c.Request.Context(), userID, permission)
		if err != nil || !hasPermission {
			respondError(c, http.StatusForbidden, "permission denied")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyClaims, claims)
		c.Set(ContextKeyToken, token)
		c.Set(ContextKeyIsAdmin, claims.IsAdmin)

		c.Next()
	}
}

// extractToken reads a service key or JWT from header, cookie, or query param.
func (m *AuthMiddleware) extractToken(c *gin.Context) (string, error) {
	if serviceKey := c.GetHeader("X-Service-Key"); serviceKey != "" {
		return serviceKey, nil
	}

	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1], nil
		}
	}

	token, err := c.Cookie("auth_token")
	if err == nil && token != "" {
		return token, nil
	}

	token = c.Query("token")
	if token != "" {
		return token, nil
	}

	return "", errors.New("no token provided")
}

// GetUserID extracts the authenticated user ID from the gin context.
func GetUserID(c *gin.Context) (string, bool) {
	userID, exists := c.Get(ContextKeyUserID)
	if !exists {
		return "", false
	}
	return userID.(string), true
}

// GetUserIDAsUUID extracts the authenticated user ID as a UUID.
func GetUserIDAsUUID(c *gin.Context) (uuid.UUID, bool) {
	userIDStr, ok := GetUserID(c)
	if !ok {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}

// GetClaims extracts JWT claims from the gin context.
func GetClaims(c *gin.Context) (*auth.JWTClaims, bool) {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil, false
	}
	return claims.(*auth.JWTClaims), true
}

// GetToken extracts the raw bearer token from the gin context.
func GetToken(c *gin.Context) (string, bool) {
	token, exists := c.Get(ContextKeyToken)
	if !exists {
		return "", false
	}
	return token.(string), true
}

// IsAdmin reports whether the current request is authenticated as an admin.
func IsAdmin(c *gin.Context) bool {
	isAdmin, exists := c.Get(ContextKeyIsAdmin)
	if !exists {
		return false
	}
	return isAdmin.(bool)
}

// GetUser extracts the full user object from the gin context, if set.
func GetUser(c *gin.Context) (*pkgmodels.User, bool) {
	user, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	return user.(*pkgmodels.User), true
}

// GetAuthMethod returns the authentication method used for the current request.
func GetAuthMethod(c *gin.Context) string {
	method, exists := c.Get(ContextKeyAuthMethod)
	if !exists {
		return "jwt"
	}
	return method.(string)
}

// GetServiceKeyID returns the service key ID if the request was authenticated via service key.
func GetServiceKeyID(c *gin.Context) (string, bool) {
	id, exists := c.Get(ContextKeyServiceKeyID)
	if !exists {
		return "", false
	}
	return id.(string), true
}

// IsServiceKeyAuth reports whether the request was authenticated via service key.
func IsServiceKeyAuth(c *gin.Context) bool {
	return GetAuthMethod(c) == "service_key"
}

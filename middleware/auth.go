package middleware

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/jwks"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/anacarla/crm-api/config"
)

// Roles carried in the access token
const (
	RoleAdmin     = "admin"
	RoleManager   = "manager"
	RoleAttendant = "attendant"
)

// RoleClaimNamespace prefixes the role claim added by the identity provider.
// Providers that cannot namespace custom claims may send a plain "role".
const RoleClaimNamespace = "https://crm-api/"

// CustomClaims contains custom data we want from the token.
type CustomClaims struct {
	Role           string `json:"role,omitempty"`
	NamespacedRole string `json:"https://crm-api/role,omitempty"`
}

// Validate does nothing, but we need it to satisfy the
// validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// UserRole returns the role claim, preferring the namespaced one
func (c CustomClaims) UserRole() string {
	if c.NamespacedRole != "" {
		return c.NamespacedRole
	}
	return c.Role
}

// Authenticate returns the token check for cfg. Without an identity provider
// configured every request is treated as an admin; Validate refuses that
// setup in production.
func Authenticate(cfg *config.Config, logger logrus.FieldLogger) gin.HandlerFunc {
	if cfg.AuthEnabled() {
		return EnsureValidToken(cfg, logger)
	}
	logger.Warn("AUTH0_DOMAIN is not set, API is running without authentication")
	return AllowAnonymous(RoleAdmin)
}

// AllowAnonymous stores claims for an anonymous user with role
func AllowAnonymous(role string) gin.HandlerFunc {
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: "anonymous"},
		CustomClaims:     &CustomClaims{Role: role},
	}
	return func(c *gin.Context) {
		c.Set("user_id", claims.RegisteredClaims.Subject)
		c.Set("validated_claims", claims)
		c.Next()
	}
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
func EnsureValidToken(cfg *config.Config, logger logrus.FieldLogger) gin.HandlerFunc {
	issuerURL, err := url.Parse("https://" + cfg.Auth0Domain + "/")
	if err != nil {
		logger.WithError(err).Fatal("Failed to parse the issuer url")
	}

	provider := jwks.NewCachingProvider(issuerURL, 5*time.Minute)

	jwtValidator, err := validator.New(
		provider.KeyFunc,
		validator.RS256,
		issuerURL.String(),
		[]string{cfg.Auth0Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WithError(err).WithField("path", r.URL.Path).Warn("Encountered error while validating JWT")

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		if _, writeErr := w.Write([]byte(`{"success":false,"error":{"code":"INVALID_TOKEN","message":"Failed to validate JWT."}}`)); writeErr != nil {
			logger.WithError(writeErr).Error("Failed to write error response")
		}
	}

	middleware := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
	)

	return func(c *gin.Context) {
		valid := false
		var handler http.HandlerFunc = func(w http.ResponseWriter, r *http.Request) {
			token := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)

			c.Set("user_id", token.RegisteredClaims.Subject)
			c.Set("validated_claims", token)
			c.Request = r
			valid = true

			c.Next()
		}

		middleware.CheckJWT(handler).ServeHTTP(c.Writer, c.Request)
		// the error handler already wrote the 401
		if !valid {
			c.Abort()
		}
	}
}

// GetUserID extracts the user ID from the Gin context
func GetUserID(c *gin.Context) (string, error) {
	userID, exists := c.Get("user_id")
	if !exists {
		return "", &AuthError{Code: "MISSING_USER_ID", Message: "User ID not found in context"}
	}

	userIDStr, ok := userID.(string)
	if !ok {
		return "", &AuthError{Code: "INVALID_USER_ID", Message: "User ID is not a string"}
	}

	return userIDStr, nil
}

// GetClaims extracts the validated JWT claims from the Gin context
func GetClaims(c *gin.Context) (*validator.ValidatedClaims, error) {
	claims, exists := c.Get("validated_claims")
	if !exists {
		return nil, &AuthError{Code: "MISSING_CLAIMS", Message: "Claims not found in context"}
	}

	validatedClaims, ok := claims.(*validator.ValidatedClaims)
	if !ok {
		return nil, &AuthError{Code: "INVALID_CLAIMS", Message: "Claims are not in the expected format"}
	}

	return validatedClaims, nil
}

// GetRole returns the role of the authenticated user, or "" when the token
// carries none
func GetRole(c *gin.Context) string {
	claims, err := GetClaims(c)
	if err != nil {
		return ""
	}
	custom, ok := claims.CustomClaims.(*CustomClaims)
	if !ok || custom == nil {
		return ""
	}
	return custom.UserRole()
}

// RequireRole is a middleware that lets through only users holding one of roles
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetClaims(c); err != nil {
			abortMissingClaims(c)
			return
		}

		role := GetRole(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		abortForbidden(c, "INSUFFICIENT_ROLE")
	}
}

func abortMissingClaims(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "MISSING_CLAIMS",
			"message": "Could not retrieve token claims",
		},
	})
}

func abortForbidden(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"success": false,
		"error": gin.H{
			"code":    code,
			"message": "Insufficient permissions to access this resource",
		},
	})
}

// AuthError represents an authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

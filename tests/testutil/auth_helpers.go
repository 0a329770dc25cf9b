package testutil

import (
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"

	"github.com/anacarla/crm-api/middleware"
)

// MockValidatedClaims builds the claims a verified token for subject with role would carry
func MockValidatedClaims(subject, role string) *validator.ValidatedClaims {
	return &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Issuer:  "https://test.auth0.com/",
			Subject: subject,
		},
		CustomClaims: &middleware.CustomClaims{NamespacedRole: role},
	}
}

// SetMockAuthContext stores the identity the auth middleware would set for userID
func SetMockAuthContext(c *gin.Context, userID, role string) {
	c.Set("user_id", userID)
	c.Set("validated_claims", MockValidatedClaims(userID, role))
}

// MockAuth is a middleware that authenticates every request as userID with role
func MockAuth(userID, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		SetMockAuthContext(c, userID, role)
		c.Next()
	}
}

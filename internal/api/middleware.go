package api

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
	"github.com/farmlink/farmlink/pkg/auth"
)

const contextUserKey = "currentUser"

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth verifies a bearer token of the given type and resolves it
// to a user row, which it stores in the request context. Requests with
// a missing or invalid token are rejected with 401, tokens whose
// subject no longer resolves to a user with 404.
func RequireAuth(tokens *auth.TokenIssuer, users *db.UserRepository, tokenType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abortWithError(c, "auth", Unauthenticated("Missing authorization token"))
			return
		}

		subject, err := tokens.Verify(token, tokenType)
		if err != nil {
			abortWithError(c, "auth", Unauthenticated("Invalid or expired token"))
			return
		}

		user, err := users.GetByPublicID(c.Request.Context(), subject)
		if err != nil {
			abortWithError(c, "auth", err)
			return
		}
		if user == nil {
			abortWithError(c, "auth", NotFound("User not found"))
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser returns the authenticated user stored by RequireAuth.
// Handlers behind the middleware can rely on it being present.
func currentUser(c *gin.Context) *models.User {
	value, ok := c.Get(contextUserKey)
	if !ok {
		return nil
	}
	user, ok := value.(*models.User)
	if !ok {
		return nil
	}
	return user
}

package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
	"github.com/farmlink/farmlink/pkg/auth"
)

// AuthAPI provides registration, login and token lifecycle methods
type AuthAPI struct {
	users    *db.UserRepository
	loader   *objects.Loader
	tokens   *auth.TokenIssuer
	password auth.PasswordPolicy
}

// NewAuthAPI creates a new auth API
func NewAuthAPI(repo *db.Repository, tokens *auth.TokenIssuer, password auth.PasswordPolicy) *AuthAPI {
	return &AuthAPI{
		users:    db.NewUserRepository(repo),
		loader:   objects.NewLoader(repo),
		tokens:   tokens,
		password: password,
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	UserType string `json:"user_type"`
	FullName string `json:"full_name"`
	Bio      string `json:"bio"`
	Location string `json:"location"`
}

// Register handles POST /api/auth/register
func (a *AuthAPI) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "register", ValidationError("Invalid request body"))
		return
	}

	required := []struct {
		name  string
		value string
	}{
		{"username", req.Username},
		{"email", req.Email},
		{"password", req.Password},
		{"user_type", req.UserType},
	}
	for _, field := range required {
		if field.value == "" {
			abortWithError(c, "register", ValidationError(field.name+" is required"))
			return
		}
	}

	if !auth.ValidEmail(req.Email) {
		abortWithError(c, "register", ValidationError("Invalid email address"))
		return
	}
	if err := a.password(req.Password); err != nil {
		abortWithError(c, "register", ValidationError(err.Error()))
		return
	}

	ctx := c.Request.Context()
	if existing, err := a.users.GetByEmail(ctx, req.Email); err != nil {
		abortWithError(c, "register", err)
		return
	} else if existing != nil {
		abortWithError(c, "register", Conflict("Email already registered"))
		return
	}
	if existing, err := a.users.GetByUsername(ctx, req.Username); err != nil {
		abortWithError(c, "register", err)
		return
	} else if existing != nil {
		abortWithError(c, "register", Conflict("Username already taken"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		abortWithError(c, "register", err)
		return
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: hash,
		UserType:     req.UserType,
		FullName:     req.FullName,
		Bio:          req.Bio,
		Location:     req.Location,
		IsActive:     true,
	}
	if err := a.users.Create(ctx, user); err != nil {
		abortWithError(c, "register", err)
		return
	}

	accessToken, err := a.tokens.IssueAccess(user.PublicID)
	if err != nil {
		abortWithError(c, "register", err)
		return
	}
	refreshToken, err := a.tokens.IssueRefresh(user.PublicID)
	if err != nil {
		abortWithError(c, "register", err)
		return
	}

	rendered, err := a.loader.User(ctx, user)
	if err != nil {
		abortWithError(c, "register", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":       "User registered successfully",
		"user":          rendered,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login
func (a *AuthAPI) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		abortWithError(c, "login", ValidationError("Email and password required"))
		return
	}

	ctx := c.Request.Context()
	user, err := a.users.GetByEmail(ctx, req.Email)
	if err != nil {
		abortWithError(c, "login", err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		abortWithError(c, "login", Unauthenticated("Invalid credentials"))
		return
	}
	if !user.IsActive {
		abortWithError(c, "login", Forbidden("Account is deactivated"))
		return
	}

	accessToken, err := a.tokens.IssueAccess(user.PublicID)
	if err != nil {
		abortWithError(c, "login", err)
		return
	}
	refreshToken, err := a.tokens.IssueRefresh(user.PublicID)
	if err != nil {
		abortWithError(c, "login", err)
		return
	}

	user.UpdatedAt = time.Now().UTC()
	if err := a.users.Update(ctx, user); err != nil {
		abortWithError(c, "login", err)
		return
	}

	rendered, err := a.loader.User(ctx, user)
	if err != nil {
		abortWithError(c, "login", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Login successful",
		"user":          rendered,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

// Refresh handles POST /api/auth/refresh. It runs behind the refresh
// token middleware, which has already resolved the user.
func (a *AuthAPI) Refresh(c *gin.Context) {
	user := currentUser(c)

	accessToken, err := a.tokens.IssueAccess(user.PublicID)
	if err != nil {
		abortWithError(c, "refresh", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": accessToken})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so this
// only confirms the client's intent.
func (a *AuthAPI) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// Me handles GET /api/auth/me
func (a *AuthAPI) Me(c *gin.Context) {
	user := currentUser(c)

	rendered, err := a.loader.User(c.Request.Context(), user)
	if err != nil {
		abortWithError(c, "me", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": rendered})
}

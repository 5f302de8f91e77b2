package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/pkg/config"
	"github.com/farmlink/farmlink/pkg/images"
)

// UserAPI provides profile lookup, search and profile update methods
type UserAPI struct {
	users   *db.UserRepository
	loader  *objects.Loader
	uploads *config.UploadsConfig
}

// NewUserAPI creates a new user API
func NewUserAPI(repo *db.Repository, uploads *config.UploadsConfig) *UserAPI {
	return &UserAPI{
		users:   db.NewUserRepository(repo),
		loader:  objects.NewLoader(repo),
		uploads: uploads,
	}
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", strconv.Itoa(db.DefaultPerPage)))
	return db.NormalizePage(page, perPage)
}

// Get handles GET /api/users/:id
func (a *UserAPI) Get(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := a.users.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "get_user", err)
		return
	}
	if user == nil {
		abortWithError(c, "get_user", NotFound("User not found"))
		return
	}

	rendered, err := a.loader.User(ctx, user)
	if err != nil {
		abortWithError(c, "get_user", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": rendered})
}

// Search handles GET /api/users/search
func (a *UserAPI) Search(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		abortWithError(c, "search_users", ValidationError("Search query required"))
		return
	}

	page, perPage := pageParams(c)
	ctx := c.Request.Context()

	users, pagination, err := a.users.Search(ctx, query, page, perPage)
	if err != nil {
		abortWithError(c, "search_users", err)
		return
	}

	rendered, err := a.loader.Users(ctx, users)
	if err != nil {
		abortWithError(c, "search_users", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":    rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

// UpdateProfile handles PUT /api/users/profile. Accepts multipart form
// fields; only the fields present are updated. An optional
// profile_image file is resized and stored under the uploads dir.
func (a *UserAPI) UpdateProfile(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	if value, ok := c.GetPostForm("full_name"); ok {
		user.FullName = value
	}
	if value, ok := c.GetPostForm("bio"); ok {
		user.Bio = value
	}
	if value, ok := c.GetPostForm("location"); ok {
		user.Location = value
	}
	if value, ok := c.GetPostForm("expertise_area"); ok {
		user.ExpertiseArea = value
	}

	if file, err := c.FormFile("profile_image"); err == nil && file != nil {
		if !images.Allowed(file.Filename) {
			abortWithError(c, "update_profile", ValidationError("File type not allowed"))
			return
		}
		filename, err := images.Save(file, a.uploads.Dir, a.uploads.MaxAvatarSize)
		if err != nil {
			abortWithError(c, "update_profile", err)
			return
		}
		user.ProfileImage = "/uploads/" + filename
	}

	if err := a.users.Update(ctx, user); err != nil {
		abortWithError(c, "update_profile", err)
		return
	}

	rendered, err := a.loader.User(ctx, user)
	if err != nil {
		abortWithError(c, "update_profile", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"user":    rendered,
	})
}

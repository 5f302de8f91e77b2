package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
)

// FollowAPI provides follow toggle and follow graph listing methods
type FollowAPI struct {
	follows *db.FollowRepository
	users   *db.UserRepository
	loader  *objects.Loader
}

// NewFollowAPI creates a new follow API
func NewFollowAPI(repo *db.Repository) *FollowAPI {
	return &FollowAPI{
		follows: db.NewFollowRepository(repo),
		users:   db.NewUserRepository(repo),
		loader:  objects.NewLoader(repo),
	}
}

// Toggle handles POST /api/follows/:userID/follow. A second call with
// the same pair undoes the first.
func (a *FollowAPI) Toggle(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	target, err := a.users.GetByPublicID(ctx, c.Param("userID"))
	if err != nil {
		abortWithError(c, "toggle_follow", err)
		return
	}
	if target == nil {
		abortWithError(c, "toggle_follow", NotFound("User not found"))
		return
	}
	if target.ID == user.ID {
		abortWithError(c, "toggle_follow", ValidationError("Cannot follow yourself"))
		return
	}

	following, err := a.follows.Toggle(ctx, user.ID, target.ID)
	if err != nil {
		abortWithError(c, "toggle_follow", err)
		return
	}

	followerCount, err := a.follows.FollowerCount(ctx, target.ID)
	if err != nil {
		abortWithError(c, "toggle_follow", err)
		return
	}

	action := "unfollowed"
	if following {
		action = "followed"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Successfully " + action + " " + target.Username,
		"is_following":   following,
		"follower_count": followerCount,
	})
}

// Following handles GET /api/follows/following
func (a *FollowAPI) Following(c *gin.Context) {
	a.listEdge(c, "following", a.follows.Following)
}

// Followers handles GET /api/follows/followers
func (a *FollowAPI) Followers(c *gin.Context) {
	a.listEdge(c, "followers", a.follows.Followers)
}

type edgeLister func(ctx context.Context, userID int64, page, perPage int) ([]*models.User, *db.Pagination, error)

func (a *FollowAPI) listEdge(c *gin.Context, key string, list edgeLister) {
	user := currentUser(c)
	page, perPage := pageParams(c)
	ctx := c.Request.Context()

	users, pagination, err := list(ctx, user.ID, page, perPage)
	if err != nil {
		abortWithError(c, "list_"+key, err)
		return
	}

	rendered, err := a.loader.Users(ctx, users)
	if err != nil {
		abortWithError(c, "list_"+key, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		key:        rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

// Check handles GET /api/follows/check/:userID
func (a *FollowAPI) Check(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	target, err := a.users.GetByPublicID(ctx, c.Param("userID"))
	if err != nil {
		abortWithError(c, "check_follow", err)
		return
	}
	if target == nil {
		abortWithError(c, "check_follow", NotFound("User not found"))
		return
	}

	following, err := a.follows.IsFollowing(ctx, user.ID, target.ID)
	if err != nil {
		abortWithError(c, "check_follow", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"is_following": following})
}

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/cache"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
	"github.com/farmlink/farmlink/pkg/config"
	"github.com/farmlink/farmlink/pkg/images"
)

const (
	communityListTTL       = 60 * time.Second
	communityListKeyPrefix = "communities:"
)

// CommunityAPI provides community listing, creation and membership
// methods. Listing responses are served from cache when available;
// writes drop the cached listings so readers see them immediately.
type CommunityAPI struct {
	communities *db.CommunityRepository
	loader      *objects.Loader
	cache       *cache.Cache
	uploads     *config.UploadsConfig
}

// NewCommunityAPI creates a new community API
func NewCommunityAPI(repo *db.Repository, c *cache.Cache, uploads *config.UploadsConfig) *CommunityAPI {
	return &CommunityAPI{
		communities: db.NewCommunityRepository(repo),
		loader:      objects.NewLoader(repo),
		cache:       c,
		uploads:     uploads,
	}
}

// List handles GET /api/communities
func (a *CommunityAPI) List(c *gin.Context) {
	page, perPage := pageParams(c)
	search := c.Query("search")
	category := c.Query("category")
	ctx := c.Request.Context()

	cacheKey := communityListKeyPrefix + cache.HashKey(search, category, strconv.Itoa(page), strconv.Itoa(perPage))
	var cached gin.H
	if err := a.cache.GetJSON(cacheKey, &cached); err == nil {
		c.JSON(http.StatusOK, cached)
		return
	}

	communities, pagination, err := a.communities.List(ctx, search, category, page, perPage)
	if err != nil {
		abortWithError(c, "list_communities", err)
		return
	}

	rendered, err := a.loader.Communities(ctx, communities)
	if err != nil {
		abortWithError(c, "list_communities", err)
		return
	}

	response := gin.H{
		"communities": rendered,
		"total":       pagination.Total,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"pages":       pagination.Pages,
	}
	_ = a.cache.SetJSON(cacheKey, response, communityListTTL)

	c.JSON(http.StatusOK, response)
}

// Create handles POST /api/communities. Multipart form with name,
// description, optional is_public flag and image. The creator is
// enrolled as admin member in the same transaction.
func (a *CommunityAPI) Create(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	name := strings.TrimSpace(c.PostForm("name"))
	if name == "" {
		abortWithError(c, "create_community", ValidationError("Community name required"))
		return
	}

	existing, err := a.communities.GetByName(ctx, name)
	if err != nil {
		abortWithError(c, "create_community", err)
		return
	}
	if existing != nil {
		abortWithError(c, "create_community", Conflict("Community name already taken"))
		return
	}

	community := &models.Community{
		Name:        name,
		Description: c.PostForm("description"),
		Category:    c.PostForm("category"),
		AdminID:     user.ID,
		IsPublic:    true,
	}
	if value, ok := c.GetPostForm("is_public"); ok {
		isPublic, err := strconv.ParseBool(value)
		if err != nil {
			abortWithError(c, "create_community", ValidationError("is_public must be a boolean"))
			return
		}
		community.IsPublic = isPublic
	}

	if file, err := c.FormFile("image"); err == nil && file != nil {
		if !images.Allowed(file.Filename) {
			abortWithError(c, "create_community", ValidationError("File type not allowed"))
			return
		}
		filename, err := images.Save(file, a.uploads.Dir, a.uploads.MaxImageSize)
		if err != nil {
			abortWithError(c, "create_community", err)
			return
		}
		community.ImageURL = "/uploads/" + filename
	}

	if err := a.communities.Create(ctx, community); err != nil {
		abortWithError(c, "create_community", err)
		return
	}
	_ = a.cache.DeletePrefix(communityListKeyPrefix)

	rendered, err := a.loader.Community(ctx, community)
	if err != nil {
		abortWithError(c, "create_community", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Community created successfully",
		"community": rendered,
	})
}

// Get handles GET /api/communities/:id. Includes the community's most
// recent posts.
func (a *CommunityAPI) Get(c *gin.Context) {
	ctx := c.Request.Context()

	community, err := a.communities.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "get_community", err)
		return
	}
	if community == nil {
		abortWithError(c, "get_community", NotFound("Community not found"))
		return
	}

	rendered, err := a.loader.Community(ctx, community)
	if err != nil {
		abortWithError(c, "get_community", err)
		return
	}

	posts, err := a.communities.RecentPosts(ctx, community.Name, 0)
	if err != nil {
		abortWithError(c, "get_community", err)
		return
	}
	renderedPosts, err := a.loader.Posts(ctx, posts)
	if err != nil {
		abortWithError(c, "get_community", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"community":    rendered,
		"recent_posts": renderedPosts,
	})
}

// ToggleMembership handles POST /api/communities/:id/join. A second
// call with the same pair undoes the first.
func (a *CommunityAPI) ToggleMembership(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	community, err := a.communities.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "toggle_membership", err)
		return
	}
	if community == nil {
		abortWithError(c, "toggle_membership", NotFound("Community not found"))
		return
	}

	member, err := a.communities.ToggleMembership(ctx, community.ID, user.ID)
	if err != nil {
		abortWithError(c, "toggle_membership", err)
		return
	}
	_ = a.cache.DeletePrefix(communityListKeyPrefix)

	memberCount, err := a.communities.MemberCount(ctx, community.ID)
	if err != nil {
		abortWithError(c, "toggle_membership", err)
		return
	}

	message := "Left community"
	if member {
		message = "Joined community"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      message,
		"is_member":    member,
		"member_count": memberCount,
	})
}

// Members handles GET /api/communities/:id/members. Members come back
// in join order.
func (a *CommunityAPI) Members(c *gin.Context) {
	page, perPage := pageParams(c)
	ctx := c.Request.Context()

	community, err := a.communities.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "list_members", err)
		return
	}
	if community == nil {
		abortWithError(c, "list_members", NotFound("Community not found"))
		return
	}

	members, pagination, err := a.communities.Members(ctx, community.ID, page, perPage)
	if err != nil {
		abortWithError(c, "list_members", err)
		return
	}

	rendered, err := a.loader.Users(ctx, members)
	if err != nil {
		abortWithError(c, "list_members", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"members":  rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

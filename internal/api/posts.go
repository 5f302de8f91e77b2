package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
	"github.com/farmlink/farmlink/pkg/config"
	"github.com/farmlink/farmlink/pkg/images"
)

// PostAPI provides post listing, CRUD and like toggle methods
type PostAPI struct {
	posts   *db.PostRepository
	likes   *db.LikeRepository
	users   *db.UserRepository
	loader  *objects.Loader
	uploads *config.UploadsConfig
}

// NewPostAPI creates a new post API
func NewPostAPI(repo *db.Repository, uploads *config.UploadsConfig) *PostAPI {
	return &PostAPI{
		posts:   db.NewPostRepository(repo),
		likes:   db.NewLikeRepository(repo),
		users:   db.NewUserRepository(repo),
		loader:  objects.NewLoader(repo),
		uploads: uploads,
	}
}

// List handles GET /api/posts
func (a *PostAPI) List(c *gin.Context) {
	page, perPage := pageParams(c)
	category := c.Query("category")
	ctx := c.Request.Context()

	var authorID int64
	if userPublicID := c.Query("user_id"); userPublicID != "" {
		author, err := a.users.GetByPublicID(ctx, userPublicID)
		if err != nil {
			abortWithError(c, "list_posts", err)
			return
		}
		if author == nil {
			abortWithError(c, "list_posts", NotFound("User not found"))
			return
		}
		authorID = author.ID
	}

	posts, pagination, err := a.posts.List(ctx, category, authorID, page, perPage)
	if err != nil {
		abortWithError(c, "list_posts", err)
		return
	}

	rendered, err := a.loader.Posts(ctx, posts)
	if err != nil {
		abortWithError(c, "list_posts", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"posts":    rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

// Get handles GET /api/posts/:id
func (a *PostAPI) Get(c *gin.Context) {
	ctx := c.Request.Context()

	post, err := a.posts.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "get_post", err)
		return
	}
	if post == nil {
		abortWithError(c, "get_post", NotFound("Post not found"))
		return
	}

	rendered, err := a.loader.Post(ctx, post)
	if err != nil {
		abortWithError(c, "get_post", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"post": rendered})
}

// Create handles POST /api/posts. Multipart form with title, content,
// category, optional comma-separated tags and image files.
func (a *PostAPI) Create(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	title := strings.TrimSpace(c.PostForm("title"))
	content := strings.TrimSpace(c.PostForm("content"))
	category := c.PostForm("category")
	if title == "" || content == "" {
		abortWithError(c, "create_post", ValidationError("Title and content required"))
		return
	}

	post := &models.Post{
		Title:    title,
		Content:  content,
		AuthorID: user.ID,
		Category: category,
		Tags:     models.ParseTags(c.PostForm("tags")),
	}

	form, err := c.MultipartForm()
	if err == nil && form != nil {
		urls := models.StringList{}
		for _, file := range form.File["images"] {
			if !images.Allowed(file.Filename) {
				abortWithError(c, "create_post", ValidationError("File type not allowed"))
				return
			}
			filename, err := images.Save(file, a.uploads.Dir, a.uploads.MaxImageSize)
			if err != nil {
				abortWithError(c, "create_post", err)
				return
			}
			urls = append(urls, "/uploads/"+filename)
		}
		post.ImageURLs = urls
	}

	if err := a.posts.Create(ctx, post); err != nil {
		abortWithError(c, "create_post", err)
		return
	}

	rendered, err := a.loader.Post(ctx, post)
	if err != nil {
		abortWithError(c, "create_post", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Post created successfully",
		"post":    rendered,
	})
}

type updatePostRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	Category *string `json:"category"`
	Tags     *string `json:"tags"`
}

// Update handles PUT /api/posts/:id. Only the fields present in the
// request body change; owner or admin only.
func (a *PostAPI) Update(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	post, err := a.posts.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "update_post", err)
		return
	}
	if post == nil {
		abortWithError(c, "update_post", NotFound("Post not found"))
		return
	}
	if post.AuthorID != user.ID && !user.IsAdmin() {
		abortWithError(c, "update_post", Forbidden("Not authorized to update this post"))
		return
	}

	var req updatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, "update_post", ValidationError("Invalid request body"))
		return
	}

	if req.Title != nil {
		post.Title = *req.Title
	}
	if req.Content != nil {
		post.Content = *req.Content
	}
	if req.Category != nil {
		post.Category = *req.Category
	}
	if req.Tags != nil {
		post.Tags = models.ParseTags(*req.Tags)
	}

	if err := a.posts.Update(ctx, post); err != nil {
		abortWithError(c, "update_post", err)
		return
	}

	rendered, err := a.loader.Post(ctx, post)
	if err != nil {
		abortWithError(c, "update_post", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Post updated successfully",
		"post":    rendered,
	})
}

// Delete handles DELETE /api/posts/:id. Removes the post and its
// comments and likes in one transaction; owner or admin only.
func (a *PostAPI) Delete(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	post, err := a.posts.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "delete_post", err)
		return
	}
	if post == nil {
		abortWithError(c, "delete_post", NotFound("Post not found"))
		return
	}
	if post.AuthorID != user.ID && !user.IsAdmin() {
		abortWithError(c, "delete_post", Forbidden("Not authorized to delete this post"))
		return
	}

	if err := a.posts.Delete(ctx, post.ID); err != nil {
		abortWithError(c, "delete_post", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Post deleted successfully"})
}

// ToggleLike handles POST /api/posts/:id/like
func (a *PostAPI) ToggleLike(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	post, err := a.posts.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "toggle_like", err)
		return
	}
	if post == nil {
		abortWithError(c, "toggle_like", NotFound("Post not found"))
		return
	}

	liked, err := a.likes.Toggle(ctx, post.ID, user.ID)
	if err != nil {
		abortWithError(c, "toggle_like", err)
		return
	}

	refreshed, err := a.posts.GetByID(ctx, post.ID)
	if err != nil {
		abortWithError(c, "toggle_like", err)
		return
	}

	likeCount := post.LikeCount
	if refreshed != nil {
		likeCount = refreshed.LikeCount
	}

	message := "Post unliked"
	if liked {
		message = "Post liked"
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    message,
		"is_liked":   liked,
		"like_count": likeCount,
	})
}

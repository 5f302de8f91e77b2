package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
)

// CommentAPI provides comment listing and CRUD methods
type CommentAPI struct {
	comments *db.CommentRepository
	posts    *db.PostRepository
	loader   *objects.Loader
}

// NewCommentAPI creates a new comment API
func NewCommentAPI(repo *db.Repository) *CommentAPI {
	return &CommentAPI{
		comments: db.NewCommentRepository(repo),
		posts:    db.NewPostRepository(repo),
		loader:   objects.NewLoader(repo),
	}
}

// ListByPost handles GET /api/comments/post/:postID. Comments come
// back oldest first.
func (a *CommentAPI) ListByPost(c *gin.Context) {
	page, perPage := pageParams(c)
	ctx := c.Request.Context()

	post, err := a.posts.GetByPublicID(ctx, c.Param("postID"))
	if err != nil {
		abortWithError(c, "list_comments", err)
		return
	}
	if post == nil {
		abortWithError(c, "list_comments", NotFound("Post not found"))
		return
	}

	comments, pagination, err := a.comments.ListByPost(ctx, post.ID, page, perPage)
	if err != nil {
		abortWithError(c, "list_comments", err)
		return
	}

	rendered, err := a.loader.Comments(ctx, comments)
	if err != nil {
		abortWithError(c, "list_comments", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"comments": rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

type commentRequest struct {
	Content string `json:"content"`
}

// Create handles POST /api/comments/post/:postID. Increments the
// post's comment counter in the same transaction.
func (a *CommentAPI) Create(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		abortWithError(c, "create_comment", ValidationError("Comment content required"))
		return
	}

	post, err := a.posts.GetByPublicID(ctx, c.Param("postID"))
	if err != nil {
		abortWithError(c, "create_comment", err)
		return
	}
	if post == nil {
		abortWithError(c, "create_comment", NotFound("Post not found"))
		return
	}

	comment := &models.Comment{
		PostID:  post.ID,
		UserID:  user.ID,
		Content: strings.TrimSpace(req.Content),
	}
	if err := a.comments.Create(ctx, comment); err != nil {
		abortWithError(c, "create_comment", err)
		return
	}

	rendered, err := a.loader.Comment(ctx, comment)
	if err != nil {
		abortWithError(c, "create_comment", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Comment added successfully",
		"comment": rendered,
	})
}

// Update handles PUT /api/comments/:id; owner or admin only.
func (a *CommentAPI) Update(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	comment, err := a.comments.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "update_comment", err)
		return
	}
	if comment == nil {
		abortWithError(c, "update_comment", NotFound("Comment not found"))
		return
	}
	if comment.UserID != user.ID && !user.IsAdmin() {
		abortWithError(c, "update_comment", Forbidden("Not authorized to update this comment"))
		return
	}

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		abortWithError(c, "update_comment", ValidationError("Comment content required"))
		return
	}

	comment.Content = strings.TrimSpace(req.Content)
	if err := a.comments.Update(ctx, comment); err != nil {
		abortWithError(c, "update_comment", err)
		return
	}

	rendered, err := a.loader.Comment(ctx, comment)
	if err != nil {
		abortWithError(c, "update_comment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Comment updated successfully",
		"comment": rendered,
	})
}

// Delete handles DELETE /api/comments/:id. Decrements the post's
// comment counter in the same transaction; owner or admin only.
func (a *CommentAPI) Delete(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	comment, err := a.comments.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "delete_comment", err)
		return
	}
	if comment == nil {
		abortWithError(c, "delete_comment", NotFound("Comment not found"))
		return
	}
	if comment.UserID != user.ID && !user.IsAdmin() {
		abortWithError(c, "delete_comment", Forbidden("Not authorized to delete this comment"))
		return
	}

	if err := a.comments.Delete(ctx, comment); err != nil {
		abortWithError(c, "delete_comment", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted successfully"})
}

package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/farmlink/farmlink/internal/models"
)

// PostRepository provides post-related database operations
type PostRepository struct {
	*Repository
}

// NewPostRepository creates a new post repository
func NewPostRepository(repo *Repository) *PostRepository {
	return &PostRepository{Repository: repo}
}

// GetByID retrieves a post by ID
func (r *PostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByPublicID retrieves a post by public identifier
func (r *PostRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// Create creates a new post
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

// Update updates a post
func (r *PostRepository) Update(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Save(post).Error
}

// Delete removes a post together with its comments and likes in one
// transaction, leaving no orphan rows.
func (r *PostRepository) Delete(ctx context.Context, postID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", postID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, postID).Error
	})
}

// List returns posts newest first, optionally filtered by category and
// author, paginated
func (r *PostRepository) List(ctx context.Context, category string, authorID int64, page, perPage int) ([]*models.Post, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	q := r.db.WithContext(ctx).Model(&models.Post{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if authorID != 0 {
		q = q.Where("author_id = ?", authorID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var posts []*models.Post
	if err := q.Order("created_at DESC").Scopes(Paginate(page, perPage)).Find(&posts).Error; err != nil {
		return nil, nil, err
	}

	return posts, NewPagination(total, page, perPage), nil
}

// LikeCountFor returns the number of like rows for a post
func (r *PostRepository) LikeCountFor(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// CommentCountFor returns the number of comment rows for a post
func (r *PostRepository) CommentCountFor(ctx context.Context, postID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID).Count(&count).Error
	return count, err
}

// LikeRepository provides like-toggle database operations
type LikeRepository struct {
	*Repository
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(repo *Repository) *LikeRepository {
	return &LikeRepository{Repository: repo}
}

// Toggle flips the like row for (post, user) and adjusts the post's
// like_count in the same transaction. It returns true when the post is
// liked after the call. The counter is updated with an atomic SQL
// expression so concurrent toggles cannot lose increments; the
// decrement is floored at zero.
func (r *LikeRepository) Toggle(ctx context.Context, postID, userID int64) (bool, error) {
	var liked bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Like
		err := tx.Where("post_id = ? AND user_id = ?", postID, userID).First(&existing).Error
		switch {
		case err == nil:
			res := tx.Delete(&existing)
			if res.Error != nil {
				return res.Error
			}
			liked = false
			if res.RowsAffected == 0 {
				// Lost a race with a concurrent unlike; row and counter
				// were handled by the winner.
				return nil
			}
			return decrementCounter(tx, postID, "like_count")
		case errors.Is(err, gorm.ErrRecordNotFound):
			like := &models.Like{PostID: postID, UserID: userID}
			if err := tx.Create(like).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost a race with a concurrent like; row and counter
					// were handled by the winner.
					liked = true
					return nil
				}
				return err
			}
			liked = true
			return incrementCounter(tx, postID, "like_count")
		default:
			return err
		}
	})
	return liked, err
}

// IsLiked reports whether the user has liked the post
func (r *LikeRepository) IsLiked(ctx context.Context, postID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error
	return count > 0, err
}

// CommentRepository provides comment database operations
type CommentRepository struct {
	*Repository
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(repo *Repository) *CommentRepository {
	return &CommentRepository{Repository: repo}
}

// GetByPublicID retrieves a comment by public identifier
func (r *CommentRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// Create inserts a comment and increments the parent post's
// comment_count in the same transaction
func (r *CommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return incrementCounter(tx, comment.PostID, "comment_count")
	})
}

// Update updates a comment's content
func (r *CommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Save(comment).Error
}

// Delete removes a comment and decrements the parent post's
// comment_count in the same transaction, floored at zero. The counter
// only moves when this call actually removed the row, so two callers
// holding the same comment cannot decrement twice.
func (r *CommentRepository) Delete(ctx context.Context, comment *models.Comment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Comment{}, comment.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		return decrementCounter(tx, comment.PostID, "comment_count")
	})
}

// ListByPost returns a post's comments oldest first, paginated
func (r *CommentRepository) ListByPost(ctx context.Context, postID int64, page, perPage int) ([]*models.Comment, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	q := r.db.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var comments []*models.Comment
	if err := q.Order("created_at ASC").Scopes(Paginate(page, perPage)).Find(&comments).Error; err != nil {
		return nil, nil, err
	}

	return comments, NewPagination(total, page, perPage), nil
}

func incrementCounter(tx *gorm.DB, postID int64, column string) error {
	return tx.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error
}

func decrementCounter(tx *gorm.DB, postID int64, column string) error {
	// CASE keeps this portable across postgres and sqlite; the floor
	// guards against drift ever pushing a counter negative.
	return tx.Model(&models.Post{}).Where("id = ?", postID).
		UpdateColumn(column, gorm.Expr("CASE WHEN "+column+" > 0 THEN "+column+" - 1 ELSE 0 END")).Error
}

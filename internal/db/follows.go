package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/farmlink/farmlink/internal/models"
)

// FollowRepository provides follow-edge database operations
type FollowRepository struct {
	*Repository
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(repo *Repository) *FollowRepository {
	return &FollowRepository{Repository: repo}
}

// Toggle flips the follow edge from follower to following. It returns
// true when the edge exists after the call (followed), false when it
// was removed (unfollowed). A concurrent insert hitting the unique
// constraint is treated as already in the desired state.
func (r *FollowRepository) Toggle(ctx context.Context, followerID, followingID int64) (bool, error) {
	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			following = false
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			edge := &models.Follow{FollowerID: followerID, FollowingID: followingID}
			if err := tx.Create(edge).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					// Lost a race with a concurrent follow; the edge exists.
					following = true
					return nil
				}
				return err
			}
			following = true
			return nil
		default:
			return err
		}
	})
	return following, err
}

// IsFollowing reports whether the follow edge exists
func (r *FollowRepository) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	return count > 0, err
}

// FollowerCount returns the number of users following userID
func (r *FollowRepository) FollowerCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("following_id = ?", userID).Count(&count).Error
	return count, err
}

// FollowingCount returns the number of users userID follows
func (r *FollowRepository) FollowingCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ?", userID).Count(&count).Error
	return count, err
}

// Following returns the users userID follows, paginated. Edges whose
// target user row is missing are silently skipped.
func (r *FollowRepository) Following(ctx context.Context, userID int64, page, perPage int) ([]*models.User, *Pagination, error) {
	return r.edgeUsers(ctx, userID, "follower_id", "following_id", page, perPage)
}

// Followers returns the users following userID, paginated. Edges whose
// source user row is missing are silently skipped.
func (r *FollowRepository) Followers(ctx context.Context, userID int64, page, perPage int) ([]*models.User, *Pagination, error) {
	return r.edgeUsers(ctx, userID, "following_id", "follower_id", page, perPage)
}

func (r *FollowRepository) edgeUsers(ctx context.Context, userID int64, whereCol, selectCol string, page, perPage int) ([]*models.User, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	q := r.db.WithContext(ctx).Model(&models.Follow{}).Where(whereCol+" = ?", userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var edges []*models.Follow
	if err := q.Scopes(Paginate(page, perPage)).Find(&edges).Error; err != nil {
		return nil, nil, err
	}

	users := make([]*models.User, 0, len(edges))
	for _, edge := range edges {
		id := edge.FollowingID
		if selectCol == "follower_id" {
			id = edge.FollowerID
		}
		var user models.User
		err := r.db.WithContext(ctx).First(&user, id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		users = append(users, &user)
	}

	return users, NewPagination(total, page, perPage), nil
}

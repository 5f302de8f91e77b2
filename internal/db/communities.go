package db

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/farmlink/farmlink/internal/models"
)

// CommunityRepository provides community database operations
type CommunityRepository struct {
	*Repository
}

// NewCommunityRepository creates a new community repository
func NewCommunityRepository(repo *Repository) *CommunityRepository {
	return &CommunityRepository{Repository: repo}
}

// Create inserts a community and enrolls its admin as the first
// member, in one transaction
func (r *CommunityRepository) Create(ctx context.Context, community *models.Community) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(community).Error; err != nil {
			return err
		}
		member := &models.CommunityMember{
			CommunityID: community.ID,
			UserID:      community.AdminID,
		}
		return tx.Create(member).Error
	})
}

// GetByID retrieves a community by ID
func (r *CommunityRepository) GetByID(ctx context.Context, id int64) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).First(&community, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// GetByPublicID retrieves a community by public identifier
func (r *CommunityRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// GetByName retrieves a community by its unique name
func (r *CommunityRepository) GetByName(ctx context.Context, name string) (*models.Community, error) {
	var community models.Community
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&community).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &community, nil
}

// List returns communities newest first, filtered by a
// case-insensitive name substring search and an optional exact
// category match, paginated
func (r *CommunityRepository) List(ctx context.Context, search, category string, page, perPage int) ([]*models.Community, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	q := r.db.WithContext(ctx).Model(&models.Community{})
	if search != "" {
		q = q.Where("LOWER(name) LIKE LOWER(?)", "%"+search+"%")
	}
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var communities []*models.Community
	if err := q.Order("created_at DESC").Scopes(Paginate(page, perPage)).Find(&communities).Error; err != nil {
		return nil, nil, err
	}

	return communities, NewPagination(total, page, perPage), nil
}

// ToggleMembership flips the membership row for (community, user). It
// returns true when the user is a member after the call. A concurrent
// insert hitting the unique constraint is treated as already joined.
func (r *CommunityRepository) ToggleMembership(ctx context.Context, communityID, userID int64) (bool, error) {
	var member bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CommunityMember
		err := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			First(&existing).Error
		switch {
		case err == nil:
			if err := tx.Delete(&existing).Error; err != nil {
				return err
			}
			member = false
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
			row := &models.CommunityMember{CommunityID: communityID, UserID: userID}
			if err := tx.Create(row).Error; err != nil {
				if errors.Is(err, gorm.ErrDuplicatedKey) {
					member = true
					return nil
				}
				return err
			}
			member = true
			return nil
		default:
			return err
		}
	})
	return member, err
}

// IsMember reports whether the user is a member of the community
func (r *CommunityRepository) IsMember(ctx context.Context, communityID, userID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

// MemberCount returns the number of members of the community
func (r *CommunityRepository) MemberCount(ctx context.Context, communityID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.CommunityMember{}).
		Where("community_id = ?", communityID).Count(&count).Error
	return count, err
}

// Members returns the community's members joined against the user
// table, paginated. Rows whose user is missing are silently skipped.
func (r *CommunityRepository) Members(ctx context.Context, communityID int64, page, perPage int) ([]*models.User, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	q := r.db.WithContext(ctx).Model(&models.CommunityMember{}).Where("community_id = ?", communityID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var rows []*models.CommunityMember
	if err := q.Order("joined_at ASC").Scopes(Paginate(page, perPage)).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	users := make([]*models.User, 0, len(rows))
	for _, row := range rows {
		var user models.User
		err := r.db.WithContext(ctx).First(&user, row.UserID).Error
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

// RecentPosts returns the most recent posts whose category matches the
// community's name. The association is a soft string match on the
// post's free-text category, kept for compatibility with the existing
// data model.
func (r *CommunityRepository) RecentPosts(ctx context.Context, communityName string, limit int) ([]*models.Post, error) {
	if limit <= 0 {
		limit = 10
	}
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Where("category = ?", communityName).
		Order("created_at DESC").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

package objects

import (
	"context"
	"time"

	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
)

// Loader builds complete API representations, filling in the derived
// counts the flat rows do not carry. Credential hashes are never
// rendered.
type Loader struct {
	users       *db.UserRepository
	follows     *db.FollowRepository
	communities *db.CommunityRepository
}

// NewLoader creates a new object loader
func NewLoader(repo *db.Repository) *Loader {
	return &Loader{
		users:       db.NewUserRepository(repo),
		follows:     db.NewFollowRepository(repo),
		communities: db.NewCommunityRepository(repo),
	}
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// User renders a user profile with derived post and follow counts
func (l *Loader) User(ctx context.Context, u *models.User) (map[string]interface{}, error) {
	postCount, err := l.users.PostCount(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	followerCount, err := l.follows.FollowerCount(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	followingCount, err := l.follows.FollowingCount(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":              u.ID,
		"public_id":       u.PublicID,
		"username":        u.Username,
		"email":           u.Email,
		"user_type":       u.UserType,
		"full_name":       u.FullName,
		"profile_image":   u.ProfileImage,
		"bio":             u.Bio,
		"location":        u.Location,
		"expertise_area":  u.ExpertiseArea,
		"created_at":      isoTime(u.CreatedAt),
		"post_count":      postCount,
		"follower_count":  followerCount,
		"following_count": followingCount,
	}, nil
}

// Users renders a list of user profiles
func (l *Loader) Users(ctx context.Context, users []*models.User) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, 0, len(users))
	for _, u := range users {
		rendered, err := l.User(ctx, u)
		if err != nil {
			return nil, err
		}
		result = append(result, rendered)
	}
	return result, nil
}

// Post renders a post with its author profile. A missing author
// renders as null rather than failing the request.
func (l *Loader) Post(ctx context.Context, p *models.Post) (map[string]interface{}, error) {
	var author map[string]interface{}
	authorRow, err := l.users.GetByID(ctx, p.AuthorID)
	if err != nil {
		return nil, err
	}
	if authorRow != nil {
		author, err = l.User(ctx, authorRow)
		if err != nil {
			return nil, err
		}
	}

	tags := p.Tags
	if tags == nil {
		tags = models.StringList{}
	}
	imageURLs := p.ImageURLs
	if imageURLs == nil {
		imageURLs = models.StringList{}
	}

	return map[string]interface{}{
		"id":            p.ID,
		"public_id":     p.PublicID,
		"title":         p.Title,
		"content":       p.Content,
		"author":        author,
		"category":      p.Category,
		"tags":          tags,
		"image_urls":    imageURLs,
		"like_count":    p.LikeCount,
		"comment_count": p.CommentCount,
		"created_at":    isoTime(p.CreatedAt),
		"updated_at":    isoTime(p.UpdatedAt),
	}, nil
}

// Posts renders a list of posts
func (l *Loader) Posts(ctx context.Context, posts []*models.Post) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, 0, len(posts))
	for _, p := range posts {
		rendered, err := l.Post(ctx, p)
		if err != nil {
			return nil, err
		}
		result = append(result, rendered)
	}
	return result, nil
}

// Comment renders a comment with its author profile
func (l *Loader) Comment(ctx context.Context, c *models.Comment) (map[string]interface{}, error) {
	var user map[string]interface{}
	userRow, err := l.users.GetByID(ctx, c.UserID)
	if err != nil {
		return nil, err
	}
	if userRow != nil {
		user, err = l.User(ctx, userRow)
		if err != nil {
			return nil, err
		}
	}

	return map[string]interface{}{
		"id":         c.ID,
		"public_id":  c.PublicID,
		"post_id":    c.PostID,
		"user":       user,
		"content":    c.Content,
		"created_at": isoTime(c.CreatedAt),
	}, nil
}

// Comments renders a list of comments
func (l *Loader) Comments(ctx context.Context, comments []*models.Comment) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, 0, len(comments))
	for _, c := range comments {
		rendered, err := l.Comment(ctx, c)
		if err != nil {
			return nil, err
		}
		result = append(result, rendered)
	}
	return result, nil
}

// Community renders a community with its admin profile and member
// count
func (l *Loader) Community(ctx context.Context, cm *models.Community) (map[string]interface{}, error) {
	var admin map[string]interface{}
	adminRow, err := l.users.GetByID(ctx, cm.AdminID)
	if err != nil {
		return nil, err
	}
	if adminRow != nil {
		admin, err = l.User(ctx, adminRow)
		if err != nil {
			return nil, err
		}
	}

	memberCount, err := l.communities.MemberCount(ctx, cm.ID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":           cm.ID,
		"public_id":    cm.PublicID,
		"name":         cm.Name,
		"description":  cm.Description,
		"category":     cm.Category,
		"admin":        admin,
		"image_url":    cm.ImageURL,
		"is_public":    cm.IsPublic,
		"member_count": memberCount,
		"created_at":   isoTime(cm.CreatedAt),
	}, nil
}

// Communities renders a list of communities
func (l *Loader) Communities(ctx context.Context, communities []*models.Community) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, 0, len(communities))
	for _, cm := range communities {
		rendered, err := l.Community(ctx, cm)
		if err != nil {
			return nil, err
		}
		result = append(result, rendered)
	}
	return result, nil
}

// Message renders a message with sender and receiver profiles
func (l *Loader) Message(ctx context.Context, m *models.Message) (map[string]interface{}, error) {
	render := func(id int64) (map[string]interface{}, error) {
		row, err := l.users.GetByID(ctx, id)
		if err != nil || row == nil {
			return nil, err
		}
		return l.User(ctx, row)
	}

	sender, err := render(m.SenderID)
	if err != nil {
		return nil, err
	}
	receiver, err := render(m.ReceiverID)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":         m.ID,
		"public_id":  m.PublicID,
		"sender":     sender,
		"receiver":   receiver,
		"content":    m.Content,
		"is_read":    m.IsRead,
		"created_at": isoTime(m.CreatedAt),
	}, nil
}

// Messages renders a list of messages
func (l *Loader) Messages(ctx context.Context, messages []*models.Message) ([]map[string]interface{}, error) {
	result := make([]map[string]interface{}, 0, len(messages))
	for _, m := range messages {
		rendered, err := l.Message(ctx, m)
		if err != nil {
			return nil, err
		}
		result = append(result, rendered)
	}
	return result, nil
}

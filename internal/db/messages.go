package db

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/farmlink/farmlink/internal/models"
)

// MessageRepository provides message and conversation database
// operations
type MessageRepository struct {
	*Repository
}

// NewMessageRepository creates a new message repository
func NewMessageRepository(repo *Repository) *MessageRepository {
	return &MessageRepository{Repository: repo}
}

// Conversation summarizes the message thread with one counterpart
type Conversation struct {
	User        *models.User
	LastMessage *models.Message
	UnreadCount int64
	LastUpdated time.Time
}

// Create persists a new message, unread
func (r *MessageRepository) Create(ctx context.Context, message *models.Message) error {
	message.IsRead = false
	return r.db.WithContext(ctx).Create(message).Error
}

// GetByPublicID retrieves a message by public identifier
func (r *MessageRepository) GetByPublicID(ctx context.Context, publicID string) (*models.Message, error) {
	var message models.Message
	if err := r.db.WithContext(ctx).Where("public_id = ?", publicID).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// Delete removes a message
func (r *MessageRepository) Delete(ctx context.Context, messageID int64) error {
	return r.db.WithContext(ctx).Delete(&models.Message{}, messageID).Error
}

// Conversations derives one summary per counterpart the user has
// exchanged messages with: the counterpart profile, the most recent
// message in either direction, and the count of unread messages the
// counterpart sent to the user. Summaries are sorted newest first;
// a counterpart with no resolvable last message sorts last.
// Counterparts whose user row is missing are skipped.
func (r *MessageRepository) Conversations(ctx context.Context, userID int64) ([]*Conversation, error) {
	var sentTo []int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("sender_id = ?", userID).
		Distinct().Pluck("receiver_id", &sentTo).Error; err != nil {
		return nil, err
	}

	var receivedFrom []int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ?", userID).
		Distinct().Pluck("sender_id", &receivedFrom).Error; err != nil {
		return nil, err
	}

	counterparts := make(map[int64]bool)
	for _, id := range append(sentTo, receivedFrom...) {
		if id != userID {
			counterparts[id] = true
		}
	}

	conversations := make([]*Conversation, 0, len(counterparts))
	for counterpartID := range counterparts {
		var counterpart models.User
		err := r.db.WithContext(ctx).First(&counterpart, counterpartID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}

		var last models.Message
		lastMessage := &last
		err = r.db.WithContext(ctx).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, counterpartID, counterpartID, userID).
			Order("created_at DESC").Order("id DESC").
			First(&last).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			lastMessage = nil
		} else if err != nil {
			return nil, err
		}

		var unread int64
		if err := r.db.WithContext(ctx).Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND is_read = ?", counterpartID, userID, false).
			Count(&unread).Error; err != nil {
			return nil, err
		}

		conv := &Conversation{
			User:        &counterpart,
			LastMessage: lastMessage,
			UnreadCount: unread,
		}
		if lastMessage != nil {
			conv.LastUpdated = lastMessage.CreatedAt
		}
		conversations = append(conversations, conv)
	}

	// Zero LastUpdated (no resolvable last message) sorts to the end.
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].LastUpdated.After(conversations[j].LastUpdated)
	})

	return conversations, nil
}

// ListBetween returns one page of the thread between user and
// counterpart, oldest first within the page, where pages are taken
// from the newest end of the thread. As a documented side effect,
// every unread message in the page sent by the counterpart to the user
// is marked read, in the same transaction as the page query.
func (r *MessageRepository) ListBetween(ctx context.Context, userID, counterpartID int64, page, perPage int) ([]*models.Message, *Pagination, error) {
	page, perPage = NormalizePage(page, perPage)

	var messages []*models.Message
	var total int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.Model(&models.Message{}).
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				userID, counterpartID, counterpartID, userID)

		if err := q.Count(&total).Error; err != nil {
			return err
		}

		if err := q.Order("created_at DESC").Order("id DESC").
			Scopes(Paginate(page, perPage)).
			Find(&messages).Error; err != nil {
			return err
		}

		// Mark the counterpart's unread messages in this page as read.
		var unreadIDs []int64
		for _, m := range messages {
			if m.SenderID == counterpartID && m.ReceiverID == userID && !m.IsRead {
				unreadIDs = append(unreadIDs, m.ID)
			}
		}
		if len(unreadIDs) > 0 {
			if err := tx.Model(&models.Message{}).
				Where("id IN ?", unreadIDs).
				UpdateColumn("is_read", true).Error; err != nil {
				return err
			}
			for _, m := range messages {
				if m.SenderID == counterpartID && m.ReceiverID == userID {
					m.IsRead = true
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	// Reverse to oldest-first for presentation.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}

	return messages, NewPagination(total, page, perPage), nil
}

// UnreadCount returns the number of unread messages addressed to the
// user
func (r *MessageRepository) UnreadCount(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

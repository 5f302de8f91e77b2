package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/farmlink/farmlink/internal/api/objects"
	"github.com/farmlink/farmlink/internal/db"
	"github.com/farmlink/farmlink/internal/models"
)

// MessageAPI provides private messaging methods
type MessageAPI struct {
	messages *db.MessageRepository
	users    *db.UserRepository
	loader   *objects.Loader
}

// NewMessageAPI creates a new message API
func NewMessageAPI(repo *db.Repository) *MessageAPI {
	return &MessageAPI{
		messages: db.NewMessageRepository(repo),
		users:    db.NewUserRepository(repo),
		loader:   objects.NewLoader(repo),
	}
}

// Conversations handles GET /api/messages/conversations. One entry per
// counterpart, newest conversation first.
func (a *MessageAPI) Conversations(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	conversations, err := a.messages.Conversations(ctx, user.ID)
	if err != nil {
		abortWithError(c, "conversations", err)
		return
	}

	rendered := make([]map[string]interface{}, 0, len(conversations))
	for _, conv := range conversations {
		counterpart, err := a.loader.User(ctx, conv.User)
		if err != nil {
			abortWithError(c, "conversations", err)
			return
		}

		var lastMessage map[string]interface{}
		var lastUpdated interface{}
		if conv.LastMessage != nil {
			lastMessage, err = a.loader.Message(ctx, conv.LastMessage)
			if err != nil {
				abortWithError(c, "conversations", err)
				return
			}
			lastUpdated = conv.LastMessage.CreatedAt.UTC().Format(time.RFC3339)
		}

		rendered = append(rendered, map[string]interface{}{
			"user":         counterpart,
			"last_message": lastMessage,
			"unread_count": conv.UnreadCount,
			"last_updated": lastUpdated,
		})
	}

	c.JSON(http.StatusOK, gin.H{"conversations": rendered})
}

// ListWithUser handles GET /api/messages/user/:userID. Returns the
// page oldest first and marks the page's incoming messages as read.
func (a *MessageAPI) ListWithUser(c *gin.Context) {
	user := currentUser(c)
	page, perPage := pageParams(c)
	ctx := c.Request.Context()

	counterpart, err := a.users.GetByPublicID(ctx, c.Param("userID"))
	if err != nil {
		abortWithError(c, "list_messages", err)
		return
	}
	if counterpart == nil {
		abortWithError(c, "list_messages", NotFound("User not found"))
		return
	}

	messages, pagination, err := a.messages.ListBetween(ctx, user.ID, counterpart.ID, page, perPage)
	if err != nil {
		abortWithError(c, "list_messages", err)
		return
	}

	rendered, err := a.loader.Messages(ctx, messages)
	if err != nil {
		abortWithError(c, "list_messages", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": rendered,
		"total":    pagination.Total,
		"page":     pagination.Page,
		"per_page": pagination.PerPage,
		"pages":    pagination.Pages,
	})
}

type sendMessageRequest struct {
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// Send handles POST /api/messages/send
func (a *MessageAPI) Send(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReceiverID == "" {
		abortWithError(c, "send_message", ValidationError("receiver_id required"))
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		abortWithError(c, "send_message", ValidationError("Message content required"))
		return
	}

	receiver, err := a.users.GetByPublicID(ctx, req.ReceiverID)
	if err != nil {
		abortWithError(c, "send_message", err)
		return
	}
	if receiver == nil {
		abortWithError(c, "send_message", NotFound("Receiver not found"))
		return
	}
	if receiver.ID == user.ID {
		abortWithError(c, "send_message", ValidationError("Cannot message yourself"))
		return
	}

	message := &models.Message{
		SenderID:   user.ID,
		ReceiverID: receiver.ID,
		Content:    strings.TrimSpace(req.Content),
	}
	if err := a.messages.Create(ctx, message); err != nil {
		abortWithError(c, "send_message", err)
		return
	}

	rendered, err := a.loader.Message(ctx, message)
	if err != nil {
		abortWithError(c, "send_message", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Message sent successfully",
		"data":    rendered,
	})
}

// Delete handles DELETE /api/messages/:id; sender only.
func (a *MessageAPI) Delete(c *gin.Context) {
	user := currentUser(c)
	ctx := c.Request.Context()

	message, err := a.messages.GetByPublicID(ctx, c.Param("id"))
	if err != nil {
		abortWithError(c, "delete_message", err)
		return
	}
	if message == nil {
		abortWithError(c, "delete_message", NotFound("Message not found"))
		return
	}
	if message.SenderID != user.ID {
		abortWithError(c, "delete_message", Forbidden("Not authorized to delete this message"))
		return
	}

	if err := a.messages.Delete(ctx, message.ID); err != nil {
		abortWithError(c, "delete_message", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}

// UnreadCount handles GET /api/messages/unread/count
func (a *MessageAPI) UnreadCount(c *gin.Context) {
	user := currentUser(c)

	count, err := a.messages.UnreadCount(c.Request.Context(), user.ID)
	if err != nil {
		abortWithError(c, "unread_count", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

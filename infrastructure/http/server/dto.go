package server

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"chat-desk/search"
	"time"

	"github.com/samber/lo"
)

type messageResponse struct {
	ID            uint64    `json:"id"`
	UserID        uint64    `json:"user_id"`
	SenderRole    string    `json:"sender_role"`
	ContentKind   string    `json:"content_kind"`
	Content       string    `json:"content"`
	AttachmentRef string    `json:"attachment_ref,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type messagesResponse struct {
	Status   string            `json:"status"`
	Messages []messageResponse `json:"messages"`
}

type exchangeResponse struct {
	Status     string `json:"status"`
	UserID     uint64 `json:"user_id"`
	MessageID  uint64 `json:"message_id"`
	ReplyID    uint64 `json:"reply_id,omitempty"`
	AIResponse string `json:"ai_response,omitempty"`
}

type replyResponse struct {
	Status    string `json:"status"`
	MessageID uint64 `json:"message_id"`
}

type identityResponse struct {
	ID            uint64    `json:"id"`
	ClientAddress string    `json:"client_address"`
	CreatedAt     time.Time `json:"created_at"`
}

type usersResponse struct {
	Status string             `json:"status"`
	Users  []identityResponse `json:"users"`
}

type hitResponse struct {
	MessageID  uint64    `json:"message_id"`
	UserID     uint64    `json:"user_id"`
	SenderRole string    `json:"sender_role"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	Score      float64   `json:"score"`
}

type searchResponse struct {
	Status string        `json:"status"`
	Hits   []hitResponse `json:"hits"`
}

type errorResponse struct {
	Status string `json:"status"`
	errors.Failure
}

func toMessageResponses(messages []domain.Message) []messageResponse {
	return lo.Map(messages, func(m domain.Message, _ int) messageResponse {
		return messageResponse{
			ID:            m.ID,
			UserID:        m.OwnerID,
			SenderRole:    string(m.SenderRole),
			ContentKind:   string(m.ContentKind),
			Content:       m.Content,
			AttachmentRef: m.AttachmentRef,
			CreatedAt:     m.CreatedAt,
		}
	})
}

func toIdentityResponses(identities []domain.Identity) []identityResponse {
	return lo.Map(identities, func(i domain.Identity, _ int) identityResponse {
		return identityResponse{ID: i.ID, ClientAddress: i.ClientAddress, CreatedAt: i.CreatedAt}
	})
}

func toHitResponses(hits []search.Hit) []hitResponse {
	return lo.Map(hits, func(h search.Hit, _ int) hitResponse {
		return hitResponse{
			MessageID:  h.MessageID,
			UserID:     h.OwnerID,
			SenderRole: string(h.SenderRole),
			Content:    h.Content,
			CreatedAt:  h.CreatedAt,
			Score:      h.Score,
		}
	})
}

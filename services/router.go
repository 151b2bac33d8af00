package services

import (
	"chat-desk/auth"
	"chat-desk/contract"
	"chat-desk/domain"
	"chat-desk/errors"
	"chat-desk/repositories"
	"context"
	"log/slog"
	"time"
)

const DefaultCompletionTimeout = 30 * time.Second

type IChannelRouter interface {
	Exchange(ctx context.Context, cmd domain.ExchangeCommand) (domain.Outcome, error)
}

// ChannelRouter records an inbound message and, on the assistant channel, the automated reply.
type ChannelRouter struct {
	messages          repositories.IMessageRepository
	completion        contract.ICompletionService
	publisher         contract.IMessagePublisher
	completionTimeout time.Duration
	log               *slog.Logger
}

func NewChannelRouter(messages repositories.IMessageRepository, completion contract.ICompletionService,
	publisher contract.IMessagePublisher, completionTimeout time.Duration, log *slog.Logger) *ChannelRouter {
	if completionTimeout <= 0 {
		completionTimeout = DefaultCompletionTimeout
	}
	return &ChannelRouter{
		messages:          messages,
		completion:        completion,
		publisher:         publisher,
		completionTimeout: completionTimeout,
		log:               log,
	}
}

// Exchange appends the user message first, whatever happens next.
// On the assistant channel the text is sent to the completion service and the reply appended
// as an assistant message. A failed or timed out completion leaves the user message in the log
// and returns an upstream error with the outcome still carrying MessageID.
// Attachment-only messages are recorded without asking for a completion.
func (r *ChannelRouter) Exchange(ctx context.Context, cmd domain.ExchangeCommand) (domain.Outcome, error) {
	if err := auth.ValidateExchange(cmd); err != nil {
		return domain.Outcome{}, err
	}

	stored, err := r.messages.Append(domain.Message{
		OwnerID:       cmd.OwnerID,
		SenderRole:    domain.RoleUser,
		ContentKind:   cmd.ContentKind,
		Content:       cmd.Content,
		AttachmentRef: cmd.AttachmentRef,
	})
	if err != nil {
		return domain.Outcome{}, err
	}
	r.publisher.Publish(stored)
	outcome := domain.Outcome{MessageID: stored.ID}

	if cmd.Channel != domain.ChannelAssistant || cmd.Content == "" {
		return outcome, nil
	}

	reply, err := r.complete(ctx, cmd.Content)
	if err != nil {
		r.log.Warn("Completion failed, user message kept", "message_id", stored.ID, "error", err)
		return outcome, err
	}

	answer, err := r.messages.Append(domain.Message{
		OwnerID:     cmd.OwnerID,
		SenderRole:  domain.RoleAssistant,
		ContentKind: domain.KindText,
		Content:     reply,
	})
	if err != nil {
		return outcome, err
	}
	r.publisher.Publish(answer)

	outcome.ReplyID = answer.ID
	outcome.Reply = reply
	outcome.Replied = true
	return outcome, nil
}

func (r *ChannelRouter) complete(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.completionTimeout)
	defer cancel()

	reply, err := r.completion.Complete(callCtx, prompt)
	switch {
	case err != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded):
		return "", errors.ErrCompletionTimeout
	case err != nil:
		return "", errors.Upstream(err)
	case reply == "":
		return "", errors.ErrCompletionEmpty
	}
	return reply, nil
}

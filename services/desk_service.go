package services

import (
	"chat-desk/auth"
	"chat-desk/contract"
	"chat-desk/domain"
	"chat-desk/errors"
	"chat-desk/markup"
	"chat-desk/repositories"
	"chat-desk/search"
	"context"
	"log/slog"

	"github.com/samber/lo"
)

type IDeskService interface {
	CheckReply(principal domain.Principal, cmd domain.ReplyCommand) error
	Reply(ctx context.Context, principal domain.Principal, cmd domain.ReplyCommand) (domain.Message, error)
	Messages(principal domain.Principal, cmd domain.ListMessagesCommand) ([]domain.Message, error)
	Identities(principal domain.Principal) ([]domain.Identity, error)
	Search(ctx context.Context, principal domain.Principal, input string) ([]search.Hit, error)
}

// DeskService serves reads for both tiers and the operator's side of a conversation.
// Every read goes through the markup transform; the log itself is never rewritten.
type DeskService struct {
	gate       *auth.Gate
	identities repositories.IIdentityRepository
	messages   repositories.IMessageRepository
	searcher   search.ISearcher
	publisher  contract.IMessagePublisher
	log        *slog.Logger
}

func NewDeskService(gate *auth.Gate, identities repositories.IIdentityRepository,
	messages repositories.IMessageRepository, searcher search.ISearcher,
	publisher contract.IMessagePublisher, log *slog.Logger) *DeskService {
	return &DeskService{
		gate:       gate,
		identities: identities,
		messages:   messages,
		searcher:   searcher,
		publisher:  publisher,
		log:        log,
	}
}

// CheckReply runs every check Reply does before touching the log: tier, command shape
// and the existence of the conversation owner.
func (s *DeskService) CheckReply(principal domain.Principal, cmd domain.ReplyCommand) error {
	if err := s.gate.CanAppend(principal, cmd.OwnerID, domain.RoleOperator); err != nil {
		return err
	}
	if err := auth.ValidateReply(cmd); err != nil {
		return err
	}
	if _, err := s.identities.Get(cmd.OwnerID); err != nil {
		if errors.Is(err, errors.ErrIdentityNotFound) {
			return errors.ErrOwnerNotFound
		}
		return err
	}
	return nil
}

// Reply appends an operator message into the conversation of cmd.OwnerID.
func (s *DeskService) Reply(ctx context.Context, principal domain.Principal, cmd domain.ReplyCommand) (domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}
	if err := s.CheckReply(principal, cmd); err != nil {
		return domain.Message{}, err
	}
	stored, err := s.messages.Append(domain.Message{
		OwnerID:       cmd.OwnerID,
		SenderRole:    domain.RoleOperator,
		ContentKind:   cmd.ContentKind,
		Content:       cmd.Content,
		AttachmentRef: cmd.AttachmentRef,
	})
	if err != nil {
		return domain.Message{}, err
	}
	s.publisher.Publish(stored)
	s.log.Debug("Operator replied", "owner_id", cmd.OwnerID, "message_id", stored.ID)
	return stored, nil
}

// Messages lists the most recent messages the principal may see, in chronological order,
// with formula markup applied to text content.
func (s *DeskService) Messages(principal domain.Principal, cmd domain.ListMessagesCommand) ([]domain.Message, error) {
	ownerID, err := s.gate.ListScope(principal, cmd.OwnerID)
	if err != nil {
		return nil, err
	}
	messages, err := s.messages.List(ownerID, cmd.Limit)
	if err != nil {
		return nil, err
	}
	return markup.Render(messages), nil
}

// Identities lists every known identity. Operators only.
func (s *DeskService) Identities(principal domain.Principal) ([]domain.Identity, error) {
	if !principal.IsOperator() {
		return nil, errors.ErrOperatorOnly
	}
	return s.identities.List()
}

// Search runs a full-text query over the whole log. Operators only.
// Hits can lag behind the log by the depth of the message feed.
func (s *DeskService) Search(ctx context.Context, principal domain.Principal, input string) ([]search.Hit, error) {
	if !principal.IsOperator() {
		return nil, errors.ErrOperatorOnly
	}
	hits, err := s.searcher.Search(ctx, search.NewQuery(input))
	if err != nil {
		return nil, err
	}
	return lo.Map(hits, func(hit search.Hit, _ int) search.Hit {
		hit.Content = markup.Transform(hit.Content)
		return hit
	}), nil
}

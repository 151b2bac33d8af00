package services

import (
	"chat-desk/auth"
	"chat-desk/domain"
	"chat-desk/errors"
	"chat-desk/repositories"
	"context"
	"log/slog"
)

type IIdentityService interface {
	Resolve(ctx context.Context, token, clientAddress, agent string) (domain.Session, error)
}

// IdentityService maps an incoming request to the Identity owning its conversation.
type IdentityService struct {
	identities repositories.IIdentityRepository
	tokens     *auth.TokenIssuer
	log        *slog.Logger
}

func NewIdentityService(identities repositories.IIdentityRepository, tokens *auth.TokenIssuer, log *slog.Logger) *IdentityService {
	return &IdentityService{identities: identities, tokens: tokens, log: log}
}

// Resolve returns the identity of the request.
// A valid session token wins and is returned unchanged. Otherwise the anonymous key is
// derived from client address and agent, the identity is found or created, and a fresh
// token is issued for it.
func (s *IdentityService) Resolve(ctx context.Context, token, clientAddress, agent string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}
	if token != "" {
		if identityID, err := s.tokens.Validate(token); err == nil {
			identity, err := s.identities.Get(identityID)
			switch {
			case err == nil:
				return domain.Session{Identity: identity, Token: token}, nil
			case !errors.Is(err, errors.ErrIdentityNotFound):
				return domain.Session{}, err
			}
			s.log.Debug("Session token refers to an unknown identity", "identity_id", identityID)
		}
	}

	key := domain.AnonymousKey(clientAddress, agent)
	identity, created, err := s.identities.GetOrCreate(key, clientAddress)
	if err != nil {
		return domain.Session{}, err
	}
	signed, err := s.tokens.Generate(identity.ID)
	if err != nil {
		return domain.Session{}, err
	}
	if created {
		s.log.Info("New anonymous identity", "identity_id", identity.ID)
	}
	return domain.Session{Identity: identity, Token: signed, Created: created}, nil
}

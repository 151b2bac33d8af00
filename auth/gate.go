package auth

import (
	"chat-desk/domain"
	"chat-desk/errors"
	"fmt"
	"log/slog"
)

type Scope int

const (
	ScopeAnonymous Scope = iota
	ScopeOperator
)

// Credentials is what the transport extracted from a request.
type Credentials struct {
	Scope          Scope
	SessionToken   string
	OperatorSecret string
}

// Gate decides which tier a request belongs to and what that tier may touch.
// There is no escalation path between tiers and no lockout on repeated failures.
type Gate struct {
	operatorSecret string
	tokens         *TokenIssuer
	log            *slog.Logger
}

func NewGate(operatorSecret string, tokens *TokenIssuer, log *slog.Logger) *Gate {
	return &Gate{operatorSecret: operatorSecret, tokens: tokens, log: log}
}

// Authorize classifies a request.
// Operator scope requires the shared secret, compared in constant time; a missing or
// wrong secret always fails, whatever else the credentials carry.
// Anonymous scope binds the principal to the identity of a valid session token, or to no
// identity at all when the token is absent or unusable; resolution happens later.
func (g *Gate) Authorize(creds Credentials) (domain.Principal, error) {
	if creds.Scope == ScopeOperator {
		if creds.OperatorSecret == "" || g.operatorSecret == "" {
			return domain.Principal{}, errors.ErrMissingSecret
		}
		ok, err := CompareSecret(creds.OperatorSecret, g.operatorSecret)
		if err != nil {
			g.log.Error("Configured operator secret cannot be compared", "error", err)
			return domain.Principal{}, errors.ErrInvalidSecret
		}
		if !ok {
			g.log.Warn("Operator secret mismatch")
			return domain.Principal{}, errors.ErrInvalidSecret
		}
		return domain.Principal{Tier: domain.TierOperator}, nil
	}

	principal := domain.Principal{Tier: domain.TierAnonymous}
	if creds.SessionToken == "" {
		return principal, nil
	}
	identityID, err := g.tokens.Validate(creds.SessionToken)
	if err != nil {
		g.log.Debug("Ignoring unusable session token", "error", err)
		return principal, nil
	}
	principal.IdentityID = identityID
	return principal, nil
}

// CanAppend enforces who may write into which conversation and under which role.
func (g *Gate) CanAppend(principal domain.Principal, ownerID uint64, role domain.SenderRole) error {
	if principal.IsOperator() {
		if role != domain.RoleOperator {
			return fmt.Errorf("%w: %s", errors.ErrForbiddenSender, role)
		}
		return nil
	}
	if principal.IdentityID == 0 || principal.IdentityID != ownerID {
		return errors.ErrForbiddenOwner
	}
	if role != domain.RoleUser {
		return fmt.Errorf("%w: %s", errors.ErrForbiddenSender, role)
	}
	return nil
}

// ListScope returns the owner filter a principal is allowed to read with.
// Anonymous principals are always narrowed to their own identity; operators keep
// whatever filter they asked for, including none.
func (g *Gate) ListScope(principal domain.Principal, requested *uint64) (*uint64, error) {
	if principal.IsOperator() {
		return requested, nil
	}
	if principal.IdentityID == 0 {
		return nil, errors.ErrForbiddenOwner
	}
	if requested != nil && *requested != principal.IdentityID {
		return nil, errors.ErrForbiddenOwner
	}
	own := principal.IdentityID
	return &own, nil
}

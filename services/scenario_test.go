package services

import (
	"chat-desk/auth"
	"chat-desk/domain"
	"chat-desk/errors"
	"chat-desk/repositories"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

// scriptedCompletion answers from a fixed table and fails on anything else.
type scriptedCompletion struct {
	answers map[string]string
}

func (s scriptedCompletion) Complete(_ context.Context, prompt string) (string, error) {
	if answer, ok := s.answers[prompt]; ok {
		return answer, nil
	}
	return "", fmt.Errorf("status 503")
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.Message
}

func (p *recordingPublisher) Publish(message domain.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
}

type desk struct {
	identity  *IdentityService
	router    *ChannelRouter
	desk      *DeskService
	gate      *auth.Gate
	published *recordingPublisher
}

func newDesk(t *testing.T) desk {
	t.Helper()
	db := openTestDB(t)
	log := testLogger()
	identities, err := repositories.NewIdentityRepository(db, log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = identities.Close() })
	messages, err := repositories.NewMessageRepository(db, log, repositories.DefaultLimitMessages)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })

	tokens := testTokens()
	gate := auth.NewGate(testOperatorSecret, tokens, log)
	published := &recordingPublisher{}
	completion := scriptedCompletion{answers: map[string]string{"hello": "hi there"}}

	return desk{
		identity:  NewIdentityService(identities, tokens, log),
		router:    NewChannelRouter(messages, completion, published, time.Second, log),
		desk:      NewDeskService(gate, identities, messages, nil, published, log),
		gate:      gate,
		published: published,
	}
}

func TestScenario_AnonymousVisitorTalksToTheAssistant(t *testing.T) {
	req := require.New(t)
	d := newDesk(t)
	ctx := context.Background()

	session, err := d.identity.Resolve(ctx, "", "1.2.3.4", "ExampleAgent")
	req.NoError(err)
	req.Equal(uint64(1), session.Identity.ID)
	req.True(session.Created)

	outcome, err := d.router.Exchange(ctx, domain.ExchangeCommand{
		OwnerID: session.Identity.ID, Channel: domain.ChannelAssistant,
		ContentKind: domain.KindText, Content: "hello",
	})
	req.NoError(err)
	req.True(outcome.Replied)
	req.Equal("hi there", outcome.Reply)

	principal, err := d.gate.Authorize(auth.Credentials{Scope: auth.ScopeAnonymous, SessionToken: session.Token})
	req.NoError(err)
	history, err := d.desk.Messages(principal, domain.ListMessagesCommand{Limit: 50})
	req.NoError(err)
	req.Len(history, 2)
	req.Equal(domain.RoleUser, history[0].SenderRole)
	req.Equal("hello", history[0].Content)
	req.Equal(domain.RoleAssistant, history[1].SenderRole)
	req.Equal("hi there", history[1].Content)
	req.Less(history[0].ID, history[1].ID)

	// Same fingerprint, no cookie: same identity, nothing created.
	again, err := d.identity.Resolve(ctx, "", "1.2.3.4", "ExampleAgent")
	req.NoError(err)
	req.Equal(uint64(1), again.Identity.ID)
	req.False(again.Created)

	d.published.mu.Lock()
	defer d.published.mu.Unlock()
	req.Equal([]uint64{history[0].ID, history[1].ID},
		lo.Map(d.published.messages, func(m domain.Message, _ int) uint64 { return m.ID }))
}

func TestScenario_TierIsolation(t *testing.T) {
	req := require.New(t)
	d := newDesk(t)
	ctx := context.Background()

	alice, err := d.identity.Resolve(ctx, "", "10.0.0.1", "Firefox")
	req.NoError(err)
	bob, err := d.identity.Resolve(ctx, "", "10.0.0.2", "Chrome")
	req.NoError(err)
	req.NotEqual(alice.Identity.ID, bob.Identity.ID)

	for _, s := range []domain.Session{alice, bob} {
		_, err = d.router.Exchange(ctx, domain.ExchangeCommand{
			OwnerID: s.Identity.ID, Channel: domain.ChannelHuman,
			ContentKind: domain.KindText, Content: fmt.Sprintf("I am %d", s.Identity.ID),
		})
		req.NoError(err)
	}

	operator, err := d.gate.Authorize(auth.Credentials{Scope: auth.ScopeOperator, OperatorSecret: testOperatorSecret})
	req.NoError(err)
	_, err = d.desk.Reply(ctx, operator, domain.ReplyCommand{
		OwnerID: bob.Identity.ID, ContentKind: domain.KindText, Content: "hello bob",
	})
	req.NoError(err)

	alicePrincipal, err := d.gate.Authorize(auth.Credentials{Scope: auth.ScopeAnonymous, SessionToken: alice.Token})
	req.NoError(err)
	own, err := d.desk.Messages(alicePrincipal, domain.ListMessagesCommand{Limit: 50})
	req.NoError(err)
	req.Len(own, 1)
	req.Equal(alice.Identity.ID, own[0].OwnerID)

	_, err = d.desk.Messages(alicePrincipal, domain.ListMessagesCommand{OwnerID: &bob.Identity.ID, Limit: 50})
	req.ErrorIs(err, errors.ErrForbiddenOwner)

	feed, err := d.desk.Messages(operator, domain.ListMessagesCommand{Limit: 50})
	req.NoError(err)
	req.Len(feed, 3)

	bobOnly, err := d.desk.Messages(operator, domain.ListMessagesCommand{OwnerID: &bob.Identity.ID, Limit: 50})
	req.NoError(err)
	req.Len(bobOnly, 2)
	req.Equal(domain.RoleOperator, bobOnly[1].SenderRole)

	identities, err := d.desk.Identities(operator)
	req.NoError(err)
	req.Len(identities, 2)

	_, err = d.gate.Authorize(auth.Credentials{Scope: auth.ScopeOperator, OperatorSecret: "admin123"})
	req.ErrorIs(err, errors.ErrInvalidSecret)
}

func TestScenario_UpstreamFailureLeavesUserMessage(t *testing.T) {
	req := require.New(t)
	d := newDesk(t)
	ctx := context.Background()

	session, err := d.identity.Resolve(ctx, "", "1.2.3.4", "ExampleAgent")
	req.NoError(err)

	outcome, err := d.router.Exchange(ctx, domain.ExchangeCommand{
		OwnerID: session.Identity.ID, Channel: domain.ChannelAssistant,
		ContentKind: domain.KindText, Content: "unanswerable",
	})
	req.ErrorIs(err, errors.ErrUpstream)
	req.NotZero(outcome.MessageID)

	principal := domain.Principal{Tier: domain.TierAnonymous, IdentityID: session.Identity.ID}
	history, err := d.desk.Messages(principal, domain.ListMessagesCommand{Limit: 50})
	req.NoError(err)
	req.Len(history, 1)
	req.Equal("unanswerable", history[0].Content)
}

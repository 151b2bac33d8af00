package repositories

import (
	"bytes"
	"chat-desk/domain"
	"chat-desk/errors"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	identities *IdentityRepository
	messages   *MessageRepository
}

func newFixture(t *testing.T, limitMessages int) fixture {
	db := openTestDB(t)
	return newFixtureOn(t, db, limitMessages)
}

func newFixtureOn(t *testing.T, db *badger.DB, limitMessages int) fixture {
	messages, err := NewMessageRepository(db, testLogger(), limitMessages)
	require.NoError(t, err)
	t.Cleanup(func() { _ = messages.Close() })
	return fixture{identities: newIdentityRepository(t, db), messages: messages}
}

func (f fixture) identity(t *testing.T, key string) domain.Identity {
	identity, _, err := f.identities.GetOrCreate(key, "127.0.0.1")
	require.NoError(t, err)
	return identity
}

func textMessage(owner uint64, role domain.SenderRole, content string) domain.Message {
	return domain.Message{
		OwnerID:     owner,
		SenderRole:  role,
		ContentKind: domain.KindText,
		Content:     content,
	}
}

func contents(messages []domain.Message) []string {
	return lo.Map(messages, func(m domain.Message, _ int) string { return m.Content })
}

func TestMessageRepository_Append_And_List(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")

	for i, role := range []domain.SenderRole{domain.RoleUser, domain.RoleAssistant, domain.RoleOperator} {
		stored, err := f.messages.Append(textMessage(alice.ID, role, fmt.Sprintf("message %d", i)))
		req.NoError(err)
		req.Equal(uint64(i+1), stored.ID)
		req.False(stored.CreatedAt.IsZero())
	}

	fetched, err := f.messages.List(&alice.ID, 50)
	req.NoError(err)
	req.Equal([]string{"message 0", "message 1", "message 2"}, contents(fetched))
	req.Equal(domain.RoleAssistant, fetched[1].SenderRole)
	req.Equal(alice.ID, fetched[2].OwnerID)
	req.False(fetched[0].CreatedAt.IsZero())
}

func TestMessageRepository_Append_Attachment(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")

	_, err := f.messages.Append(domain.Message{
		OwnerID:       alice.ID,
		SenderRole:    domain.RoleUser,
		ContentKind:   domain.KindAttachment,
		AttachmentRef: "users/20260101_120000_cat.png",
	})
	req.NoError(err)

	fetched, err := f.messages.List(&alice.ID, 1)
	req.NoError(err)
	req.Len(fetched, 1)
	req.Equal("", fetched[0].Content)
	req.Equal("users/20260101_120000_cat.png", fetched[0].AttachmentRef)
}

func TestMessageRepository_Append_Validation(t *testing.T) {
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")

	tests := []struct {
		name    string
		message domain.Message
		wantErr error
	}{
		{"Unknown owner", textMessage(99, domain.RoleUser, "hi"), errors.ErrOwnerNotFound},
		{"Unknown role", textMessage(alice.ID, domain.SenderRole("admin"), "hi"), errors.ErrUnknownSenderRole},
		{
			"Unknown kind",
			domain.Message{OwnerID: alice.ID, SenderRole: domain.RoleUser, ContentKind: "video", Content: "hi"},
			errors.ErrUnknownContentKind,
		},
		{"Empty text", textMessage(alice.ID, domain.RoleUser, ""), errors.ErrEmptyMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			_, err := f.messages.Append(tt.message)
			req.ErrorIs(err, tt.wantErr)
			req.ErrorIs(err, errors.ErrValidation)
		})
	}

	fetched, err := f.messages.List(nil, 50)
	require.NoError(t, err)
	require.Empty(t, fetched, "rejected messages never reach the log")
}

func TestMessageRepository_List_MostRecentWindow(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")

	for i := 1; i <= 8; i++ {
		_, err := f.messages.Append(textMessage(alice.ID, domain.RoleUser, fmt.Sprintf("m%d", i)))
		req.NoError(err)
	}

	fetched, err := f.messages.List(&alice.ID, 3)
	req.NoError(err)
	req.Equal([]string{"m6", "m7", "m8"}, contents(fetched))

	fetched, err = f.messages.List(&alice.ID, 100)
	req.NoError(err)
	req.Len(fetched, 8)
}

func TestMessageRepository_List_LimitBoundaries(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 2)
	alice := f.identity(t, "alice")

	for i := 1; i <= 4; i++ {
		_, err := f.messages.Append(textMessage(alice.ID, domain.RoleUser, fmt.Sprintf("m%d", i)))
		req.NoError(err)
	}

	fetched, err := f.messages.List(&alice.ID, 0)
	req.NoError(err)
	req.NotNil(fetched)
	req.Empty(fetched)

	fetched, err = f.messages.List(&alice.ID, -5)
	req.NoError(err)
	req.Empty(fetched)

	fetched, err = f.messages.List(&alice.ID, 1000)
	req.NoError(err, "a limit above the maximum is clamped, not rejected")
	req.Equal([]string{"m3", "m4"}, contents(fetched))
}

func TestMessageRepository_List_ClampIsLoggedWithAttributes(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	var out bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))

	messages, err := NewMessageRepository(db, log, 2)
	req.NoError(err)
	t.Cleanup(func() { _ = messages.Close() })

	_, err = messages.List(nil, 1000)
	req.NoError(err)

	var clamped map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(out.Bytes()), []byte("\n")) {
		var record map[string]any
		req.NoError(json.Unmarshal(line, &record))
		if record["msg"] == "Limit clamped" {
			clamped = record
		}
	}
	req.NotNil(clamped, out.String())
	req.EqualValues(1000, clamped["limit"])
	req.EqualValues(2, clamped["max"])
}

// Messages appended within the same instant are ordered by id.
func TestMessageRepository_List_SameTimestampTieBreak(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")
	frozen := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	f.messages.now = func() time.Time { return frozen }

	for i := 1; i <= 5; i++ {
		_, err := f.messages.Append(textMessage(alice.ID, domain.RoleUser, fmt.Sprintf("m%d", i)))
		req.NoError(err)
	}

	fetched, err := f.messages.List(&alice.ID, 50)
	req.NoError(err)
	req.Equal([]string{"m1", "m2", "m3", "m4", "m5"}, contents(fetched))
	for _, m := range fetched {
		req.Equal(frozen, m.CreatedAt)
	}
}

func TestMessageRepository_List_OwnerIsolation(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")
	bob := f.identity(t, "bob")

	_, err := f.messages.Append(textMessage(alice.ID, domain.RoleUser, "from alice"))
	req.NoError(err)
	_, err = f.messages.Append(textMessage(bob.ID, domain.RoleUser, "from bob"))
	req.NoError(err)
	_, err = f.messages.Append(textMessage(alice.ID, domain.RoleOperator, "to alice"))
	req.NoError(err)

	aliceMessages, err := f.messages.List(&alice.ID, 50)
	req.NoError(err)
	req.Equal([]string{"from alice", "to alice"}, contents(aliceMessages))

	bobMessages, err := f.messages.List(&bob.ID, 50)
	req.NoError(err)
	req.Equal([]string{"from bob"}, contents(bobMessages))

	feed, err := f.messages.List(nil, 50)
	req.NoError(err)
	req.Equal([]string{"from alice", "from bob", "to alice"}, contents(feed))
	req.Len(lo.Uniq(lo.Map(feed, func(m domain.Message, _ int) uint64 { return m.OwnerID })), 2)
}

func TestMessageRepository_List_IsReadOnly(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	alice := f.identity(t, "alice")
	_, err := f.messages.Append(textMessage(alice.ID, domain.RoleUser, "hello"))
	req.NoError(err)

	first, err := f.messages.List(&alice.ID, 50)
	req.NoError(err)
	second, err := f.messages.List(&alice.ID, 50)
	req.NoError(err)
	req.Equal(first, second)
}

func TestMessageRepository_ConcurrentAppends(t *testing.T) {
	req := require.New(t)
	f := newFixture(t, 50)
	owners := []domain.Identity{f.identity(t, "alice"), f.identity(t, "bob"), f.identity(t, "clara")}

	const writesPerOwner = 30
	var wg sync.WaitGroup
	idsPerOwner := make([][]uint64, len(owners))
	for i, owner := range owners {
		wg.Add(1)
		go func(i int, owner domain.Identity) {
			defer wg.Done()
			for j := 0; j < writesPerOwner; j++ {
				stored, err := f.messages.Append(textMessage(owner.ID, domain.RoleUser, fmt.Sprintf("%d-%d", i, j)))
				if err != nil {
					t.Errorf("append failed: %v", err)
					return
				}
				idsPerOwner[i] = append(idsPerOwner[i], stored.ID)
			}
		}(i, owner)
	}
	wg.Wait()

	all := lo.Flatten(idsPerOwner)
	req.Len(all, len(owners)*writesPerOwner)
	req.Len(lo.Uniq(all), len(all), "ids are never reused")

	for i, owner := range owners {
		fetched, err := f.messages.List(&owner.ID, writesPerOwner)
		req.NoError(err)
		req.Len(fetched, writesPerOwner)
		req.Equal(idsPerOwner[i], lo.Map(fetched, func(m domain.Message, _ int) uint64 { return m.ID }))
	}
}

// Ids keep increasing after the repository is closed and reopened on the same database.
func TestMessageRepository_IDsSurviveReopen(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	identities := newIdentityRepository(t, db)
	alice, _, err := identities.GetOrCreate("alice", "127.0.0.1")
	req.NoError(err)

	first, err := NewMessageRepository(db, testLogger(), 50)
	req.NoError(err)
	before, err := first.Append(textMessage(alice.ID, domain.RoleUser, "before"))
	req.NoError(err)
	req.NoError(first.Close())

	second, err := NewMessageRepository(db, testLogger(), 50)
	req.NoError(err)
	defer second.Close()
	after, err := second.Append(textMessage(alice.ID, domain.RoleUser, "after"))
	req.NoError(err)
	req.Greater(after.ID, before.ID)
}

func BenchmarkMessageRepository_Append(b *testing.B) {
	req := require.New(b)
	db := openTestDB(b)
	identities := newIdentityRepository(b, db)
	owner, _, err := identities.GetOrCreate("bench", "127.0.0.1")
	req.NoError(err)
	messages, err := NewMessageRepository(db, testLogger(), 50)
	req.NoError(err)
	defer messages.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := messages.Append(textMessage(owner.ID, domain.RoleUser, "benchmark content"))
		req.NoError(err)
	}
}

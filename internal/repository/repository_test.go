package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// recordingPublisher keeps every published change
type recordingPublisher struct {
	mu      sync.Mutex
	changes []feed.Change
}

func (p *recordingPublisher) Publish(_ context.Context, c feed.Change) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = append(p.changes, c)
}

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.changes))
	for i, c := range p.changes {
		out[i] = c.Topic
	}
	return out
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.changes = nil
}

type RepositorySuite struct {
	suite.Suite
	db       *gorm.DB
	pub      *recordingPublisher
	accounts AccountRepository
	convs    ConversationRepository
	messages MessageRepository
	ctx      context.Context
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func (s *RepositorySuite) SetupTest() {
	// Use SQLite for tests (no external DB dependency)
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	s.Require().NoError(err)
	sqlDB, err := db.DB()
	s.Require().NoError(err)
	sqlDB.SetMaxOpenConns(1)

	s.Require().NoError(db.AutoMigrate(&domain.Account{}, &domain.Conversation{}, &domain.Message{}))

	s.db = db
	s.pub = &recordingPublisher{}
	s.accounts = NewAccountRepository(db, s.pub)
	s.convs = NewConversationRepository(db, s.pub)
	s.messages = NewMessageRepository(db)
	s.ctx = context.Background()
}

func (s *RepositorySuite) TestAccount_CreateAndFind() {
	created, err := s.accounts.Create(s.ctx, &domain.Account{ID: "alice", Nickname: "Alice"})
	s.Require().NoError(err)
	s.True(created)

	created, err = s.accounts.Create(s.ctx, &domain.Account{ID: "alice", Nickname: "Other"})
	s.Require().NoError(err)
	s.False(created, "second create must not overwrite")

	got, err := s.accounts.FindByID(s.ctx, "alice")
	s.Require().NoError(err)
	s.Equal("Alice", got.Nickname)
	s.False(got.IsPrivate)
	s.False(got.IsOrganizer)
	s.Equal([]string{feed.AccountTopic("alice")}, s.pub.topics())
}

func (s *RepositorySuite) TestAccount_FindByIDNotFound() {
	_, err := s.accounts.FindByID(s.ctx, "ghost")
	s.True(errors.Is(err, common.ErrNotFound))
}

func (s *RepositorySuite) TestAccount_FindByIDs() {
	for _, id := range []string{"a", "b", "c"} {
		_, err := s.accounts.Create(s.ctx, &domain.Account{ID: id})
		s.Require().NoError(err)
	}

	got, err := s.accounts.FindByIDs(s.ctx, []string{"a", "c", "ghost"})
	s.Require().NoError(err)
	s.Len(got, 2)

	empty, err := s.accounts.FindByIDs(s.ctx, nil)
	s.Require().NoError(err)
	s.Empty(empty)
}

func (s *RepositorySuite) TestAccount_ApplyMergesSets() {
	_, err := s.accounts.Create(s.ctx, &domain.Account{ID: "alice"})
	s.Require().NoError(err)
	s.pub.reset()

	update := &domain.AccountUpdate{AddSentRequests: []string{"bob"}}
	got, err := s.accounts.Apply(s.ctx, "alice", update)
	s.Require().NoError(err)
	s.Equal([]string{"bob"}, got.SentRequests)

	// re-applying does not duplicate and does not publish
	got, err = s.accounts.Apply(s.ctx, "alice", update)
	s.Require().NoError(err)
	s.Equal([]string{"bob"}, got.SentRequests)
	s.Len(s.pub.topics(), 1)

	private := true
	_, err = s.accounts.Apply(s.ctx, "alice", &domain.AccountUpdate{IsPrivate: &private})
	s.Require().NoError(err)

	stored, err := s.accounts.FindByID(s.ctx, "alice")
	s.Require().NoError(err)
	s.True(stored.IsPrivate)
	s.Equal([]string{"bob"}, stored.SentRequests)
}

func (s *RepositorySuite) TestAccount_ApplyMissing() {
	_, err := s.accounts.Apply(s.ctx, "ghost", &domain.AccountUpdate{AddFriends: []string{"x"}})
	s.True(errors.Is(err, common.ErrNotFound))
	s.Empty(s.pub.topics())
}

func (s *RepositorySuite) TestConversation_CreateFindAndSummary() {
	conv := &domain.Conversation{ID: domain.ChatID("alice", "bob"), ParticipantA: "bob", ParticipantB: "alice"}
	created, err := s.convs.Create(s.ctx, conv)
	s.Require().NoError(err)
	s.True(created)
	s.ElementsMatch([]string{feed.ConversationsTopic("alice"), feed.ConversationsTopic("bob")}, s.pub.topics())

	created, err = s.convs.Create(s.ctx, conv)
	s.Require().NoError(err)
	s.False(created)

	for _, who := range []string{"alice", "bob"} {
		list, err := s.convs.FindByParticipant(s.ctx, who)
		s.Require().NoError(err)
		s.Len(list, 1)
	}
	list, err := s.convs.FindByParticipant(s.ctx, "carol")
	s.Require().NoError(err)
	s.Empty(list)

	first, err := s.messages.Append(s.ctx, &domain.Message{ConversationID: conv.ID, SenderID: "bob", ReceiverID: "alice", Text: "one"})
	s.Require().NoError(err)
	second, err := s.messages.Append(s.ctx, &domain.Message{ConversationID: conv.ID, SenderID: "alice", ReceiverID: "bob", Text: "two"})
	s.Require().NoError(err)

	s.Require().NoError(s.convs.UpdateSummary(s.ctx, second))
	// an older message arriving late does not regress the summary
	s.Require().NoError(s.convs.UpdateSummary(s.ctx, first))

	stored, err := s.convs.FindByID(s.ctx, conv.ID)
	s.Require().NoError(err)
	s.Equal("two", stored.LastMessage)
	s.Equal("alice", stored.LastSenderID)
	s.Require().NotNil(stored.LastMessageAt)
	s.True(stored.LastMessageAt.Equal(second.SentAt))
	s.Equal("bob", stored.ParticipantA, "summary updates leave participants untouched")
}

func (s *RepositorySuite) TestConversation_UpdateSummaryMissing() {
	err := s.convs.UpdateSummary(s.ctx, &domain.Message{ConversationID: "a_b", Seq: 1, SentAt: time.Now()})
	s.True(errors.Is(err, common.ErrNotFound))
}

func (s *RepositorySuite) TestMessage_AppendAssignsOrder() {
	repo := &messageRepository{db: s.db}
	clock := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return clock }

	m1, err := repo.Append(s.ctx, &domain.Message{ConversationID: "a_b", SenderID: "a", ReceiverID: "b", Text: "1"})
	s.Require().NoError(err)

	// clock goes backwards
	clock = clock.Add(-time.Minute)
	m2, err := repo.Append(s.ctx, &domain.Message{ConversationID: "a_b", SenderID: "b", ReceiverID: "a", Text: "2"})
	s.Require().NoError(err)

	s.Equal(int64(1), m1.Seq)
	s.Equal(int64(2), m2.Seq)
	s.False(m2.SentAt.Before(m1.SentAt))
	s.NotEmpty(m1.ID)
	s.NotEqual(m1.ID, m2.ID)

	other, err := repo.Append(s.ctx, &domain.Message{ConversationID: "a_c", SenderID: "a", ReceiverID: "c", Text: "x"})
	s.Require().NoError(err)
	s.Equal(int64(1), other.Seq, "sequence is per conversation")
}

func (s *RepositorySuite) TestMessage_Find() {
	for i, sender := range []string{"a", "b", "a", "a"} {
		receiver := "b"
		if sender == "b" {
			receiver = "a"
		}
		_, err := s.messages.Append(s.ctx, &domain.Message{
			ConversationID: "a_b",
			SenderID:       sender,
			ReceiverID:     receiver,
			Text:           string(rune('0' + i)),
		})
		s.Require().NoError(err)
	}

	all, err := s.messages.Find(s.ctx, "a_b", domain.MessageQuery{})
	s.Require().NoError(err)
	s.Require().Len(all, 4)
	s.Equal("0", all[0].Text)
	s.Equal("3", all[3].Text)

	fromB, err := s.messages.Find(s.ctx, "a_b", domain.MessageQuery{SenderID: "b"})
	s.Require().NoError(err)
	s.Len(fromB, 1)

	latest, err := s.messages.Find(s.ctx, "a_b", domain.MessageQuery{Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(latest, 2)
	s.Equal("2", latest[0].Text)
	s.Equal("3", latest[1].Text)

	none, err := s.messages.Find(s.ctx, "a_b", domain.MessageQuery{SenderID: "c", Limit: 1})
	s.Require().NoError(err)
	s.Empty(none)
}

func TestPublish_NilPublisher(t *testing.T) {
	assert.NotPanics(t, func() {
		publish(context.Background(), nil, feed.AccountChanged("a"))
	})
}

func TestPublish_IgnoresCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &recordingPublisher{}
	publish(ctx, p, feed.AccountChanged("a"))
	require.Len(t, p.topics(), 1)
}

package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSendMessage_ValidationNeverTouchesStore(t *testing.T) {
	accounts := new(MockAccountRepository)
	conversations := new(MockConversationRepository)
	messages := new(MockMessageRepository)
	svc := NewMessageService(accounts, conversations, messages, NewAccessPolicy(messages), nil, testSocialConfig)
	ctx := context.Background()

	tests := []struct {
		name string
		text string
		want error
	}{
		{"empty", "", common.ErrEmptyMessage},
		{"whitespace", " \n\t ", common.ErrEmptyMessage},
		{"too long", strings.Repeat("가", 21), common.ErrMessageTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SendMessage(ctx, "a", "a_b", tt.text)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	accounts.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
	messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
	conversations.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
}

func TestSendMessage_LengthCountsCharacters(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "a", "b")
	svc := newMessageService(store, nil)

	_, err := svc.SendMessage(context.Background(), "a", "a_b", strings.Repeat("가", 20))
	assert.NoError(t, err)
}

func TestSendMessage_NotAParticipant(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "a", "b", "c")
	svc := newMessageService(store, nil)

	_, err := svc.SendMessage(context.Background(), "c", domain.ChatID("a", "b"), "hi")
	assert.True(t, errors.Is(err, common.ErrNotAuthorized))

	_, err = svc.SendMessage(context.Background(), "a", "a", "hi")
	assert.True(t, errors.Is(err, common.ErrNotAuthorized))
}

func TestSendMessage_UnknownReceiver(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "a")
	svc := newMessageService(store, nil)

	_, err := svc.SendMessage(context.Background(), "a", domain.ChatID("a", "ghost"), "hi")
	assert.True(t, errors.Is(err, common.ErrNotFound))

	_, err = store.conversations.FindByID(context.Background(), domain.ChatID("a", "ghost"))
	assert.True(t, errors.Is(err, common.ErrNotFound), "no ghost conversation")
}

func TestSendMessage_CreatesThenUpdatesSummary(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "alice", "bob")
	notifier := &recordingNotifier{}
	svc := newMessageService(store, notifier)
	ctx := context.Background()
	chatID := domain.ChatID("bob", "alice")

	first, err := svc.SendMessage(ctx, "bob", chatID, "hi alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", first.ReceiverID)
	assert.Equal(t, int64(1), first.Seq)

	conv, err := store.conversations.FindByID(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "bob", conv.ParticipantA)
	assert.Equal(t, "alice", conv.ParticipantB)
	assert.Equal(t, "hi alice", conv.LastMessage)
	require.NotNil(t, conv.LastMessageAt)

	second, err := svc.SendMessage(ctx, "alice", chatID, "hi bob")
	require.NoError(t, err)
	assert.False(t, second.SentAt.Before(first.SentAt))

	conv, err = store.conversations.FindByID(ctx, chatID)
	require.NoError(t, err)
	assert.Equal(t, "hi bob", conv.LastMessage)
	assert.Equal(t, "alice", conv.LastSenderID)
	assert.Equal(t, "bob", conv.ParticipantA, "participants are not rewritten")
	assert.True(t, conv.LastMessageAt.Equal(second.SentAt))

	sent := notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, "alice", sent[0].UserID)
	assert.Equal(t, EventNewMessage, sent[0].EventType)
	assert.Equal(t, "bob", sent[1].UserID)
}

func TestSendMessage_DeniedFirstMessageStoresNothing(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "pub", "priv!")
	svc := newMessageService(store, nil)
	ctx := context.Background()
	chatID := domain.ChatID("pub", "priv")

	_, err := svc.SendMessage(ctx, "pub", chatID, "hi")
	require.True(t, errors.Is(err, common.ErrNotAuthorized), "got %v", err)

	_, err = store.conversations.FindByID(ctx, chatID)
	assert.True(t, errors.Is(err, common.ErrNotFound))
	history, err := store.messages.Find(ctx, chatID, domain.MessageQuery{Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestSendMessage_CreateRaceFallsBackToSummaryUpdate(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountRepository)
	conversations := new(MockConversationRepository)
	messages := new(MockMessageRepository)

	stored := &domain.Message{ID: "m1", ConversationID: "a_b", SenderID: "a", ReceiverID: "b", Text: "hi", Seq: 2}
	accounts.On("FindByID", ctx, "a").Return(&domain.Account{ID: "a"}, nil)
	accounts.On("FindByID", ctx, "b").Return(&domain.Account{ID: "b"}, nil)
	messages.On("Append", ctx, mock.AnythingOfType("*domain.Message")).Return(stored, nil)
	conversations.On("FindByID", ctx, "a_b").Return(nil, common.ErrNotFound)
	conversations.On("Create", ctx, mock.AnythingOfType("*domain.Conversation")).Return(false, nil)
	conversations.On("UpdateSummary", ctx, stored).Return(nil).Once()

	svc := NewMessageService(accounts, conversations, messages, NewAccessPolicy(messages), nil, testSocialConfig)
	got, err := svc.SendMessage(ctx, "a", "a_b", "hi")
	require.NoError(t, err)
	assert.Equal(t, stored, got)
	conversations.AssertExpectations(t)
}

func TestSendMessage_SummaryFailureSurfaces(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountRepository)
	conversations := new(MockConversationRepository)
	messages := new(MockMessageRepository)
	notifier := &recordingNotifier{}

	stored := &domain.Message{ID: "m1", ConversationID: "a_b", SenderID: "a", ReceiverID: "b", Seq: 1}
	accounts.On("FindByID", ctx, "b").Return(&domain.Account{ID: "b"}, nil)
	messages.On("Append", ctx, mock.Anything).Return(stored, nil)
	conversations.On("FindByID", ctx, "a_b").
		Return(&domain.Conversation{ID: "a_b", ParticipantA: "a", ParticipantB: "b"}, nil)
	conversations.On("UpdateSummary", ctx, stored).Return(errors.New("db down"))

	svc := NewMessageService(accounts, conversations, messages, NewAccessPolicy(messages), notifier, testSocialConfig)
	_, err := svc.SendMessage(ctx, "a", "a_b", "hi")
	assert.Error(t, err)
	assert.Empty(t, notifier.all())
}

func TestSendMessage_LookupFailureStoresNothing(t *testing.T) {
	ctx := context.Background()
	accounts := new(MockAccountRepository)
	conversations := new(MockConversationRepository)
	messages := new(MockMessageRepository)

	accounts.On("FindByID", ctx, "b").Return(&domain.Account{ID: "b"}, nil)
	conversations.On("FindByID", ctx, "a_b").Return(nil, errors.New("db down"))

	svc := NewMessageService(accounts, conversations, messages, NewAccessPolicy(messages), nil, testSocialConfig)
	_, err := svc.SendMessage(ctx, "a", "a_b", "hi")
	assert.Error(t, err)
	messages.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func newMessageService(store *testStore, notifier Notifier) MessageService {
	return NewMessageService(store.accounts, store.conversations, store.messages,
		NewAccessPolicy(store.messages), notifier, testSocialConfig)
}

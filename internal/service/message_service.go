package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
)

// MessageService appends messages and keeps conversation summaries current
type MessageService interface {
	SendMessage(ctx context.Context, senderID, conversationID, text string) (*domain.Message, error)
}

type messageService struct {
	accounts      repository.AccountRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	policy        AccessPolicy
	notifier      Notifier
	maxLength     int
}

// NewMessageService creates a new MessageService. notifier may be nil.
func NewMessageService(
	accounts repository.AccountRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	policy AccessPolicy,
	notifier Notifier,
	cfg config.SocialConfig,
) MessageService {
	maxLength := cfg.MessageMaxLength
	if maxLength <= 0 {
		maxLength = 2000
	}
	return &messageService{
		accounts:      accounts,
		conversations: conversations,
		messages:      messages,
		policy:        policy,
		notifier:      notifierOrNoop(notifier),
		maxLength:     maxLength,
	}
}

// SendMessage appends text to the conversation and moves its summary forward,
// creating the conversation record on first contact. A first message must
// pass the access policy; later sends only require both parties to be the
// stored participants.
func (s *messageService) SendMessage(ctx context.Context, senderID, conversationID, text string) (*domain.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, common.ErrEmptyMessage
	}
	if utf8.RuneCountInString(text) > s.maxLength {
		return nil, fmt.Errorf("%d characters allowed: %w", s.maxLength, common.ErrMessageTooLong)
	}

	receiverID, ok := domain.OtherParticipantOfChatID(conversationID, senderID)
	if !ok {
		return nil, fmt.Errorf("%s is not in %s: %w", senderID, conversationID, common.ErrNotAuthorized)
	}
	// 존재하지 않는 상대와의 대화방 생성 방지
	receiver, err := s.accounts.FindByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	exists, err := s.authorize(ctx, senderID, receiver, conversationID)
	if err != nil {
		return nil, err
	}

	msg, err := s.messages.Append(ctx, &domain.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Text:           text,
	})
	if err != nil {
		return nil, err
	}

	created, err := s.upsertSummary(ctx, msg, exists)
	if err != nil {
		// the message is stored; the next send repairs the summary
		pkglogger.GetLogger().Error().
			Err(err).
			Str("conversation_id", conversationID).
			Int64("seq", msg.Seq).
			Msg("conversation summary update failed")
		return nil, err
	}

	messagesSentTotal.WithLabelValues(strconv.FormatBool(created)).Inc()
	s.notifier.Notify(receiverID, EventNewMessage, msg)
	return msg, nil
}

// authorize checks that senderID may write to conversationID and reports
// whether its record already exists
func (s *messageService) authorize(ctx context.Context, senderID string, receiver *domain.Account, conversationID string) (bool, error) {
	conv, err := s.conversations.FindByID(ctx, conversationID)
	switch {
	case err == nil:
		if !conv.HasParticipant(senderID) || !conv.HasParticipant(receiver.ID) {
			return false, fmt.Errorf("%s is not in %s: %w", senderID, conversationID, common.ErrNotAuthorized)
		}
		return true, nil
	case !errors.Is(err, common.ErrNotFound):
		return false, err
	}

	sender, err := s.accounts.FindByID(ctx, senderID)
	if err != nil {
		return false, err
	}
	allowed, err := s.policy.CanMessage(ctx, sender, receiver)
	if err != nil {
		return false, err
	}
	if !allowed {
		return false, fmt.Errorf("%s -> %s: %w", senderID, receiver.ID, common.ErrNotAuthorized)
	}
	return false, nil
}

// upsertSummary creates the conversation with msg as its summary, or moves an
// existing summary forward. Only the summary columns of an existing record
// are written.
func (s *messageService) upsertSummary(ctx context.Context, msg *domain.Message, exists bool) (bool, error) {
	if exists {
		return false, s.conversations.UpdateSummary(ctx, msg)
	}

	sentAt := msg.SentAt
	created, err := s.conversations.Create(ctx, &domain.Conversation{
		ID:            msg.ConversationID,
		ParticipantA:  msg.SenderID,
		ParticipantB:  msg.ReceiverID,
		LastMessage:   msg.Text,
		LastSenderID:  msg.SenderID,
		LastMessageAt: &sentAt,
		LastSeq:       msg.Seq,
	})
	if err != nil {
		return false, err
	}
	if !created {
		// 동시에 생성된 경우 요약만 갱신
		return false, s.conversations.UpdateSummary(ctx, msg)
	}
	return true, nil
}

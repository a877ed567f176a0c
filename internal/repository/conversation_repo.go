package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationRepository conversation record data access interface
type ConversationRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Conversation, error)
	FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error)
	Create(ctx context.Context, conv *domain.Conversation) (bool, error)
	UpdateSummary(ctx context.Context, msg *domain.Message) error
}

type conversationRepository struct {
	db  *gorm.DB
	pub feed.Publisher
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *gorm.DB, pub feed.Publisher) ConversationRepository {
	return &conversationRepository{db: db, pub: pub}
}

// FindByID finds a conversation by ID
func (r *conversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("conversation %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// FindByParticipant returns every conversation userID takes part in
func (r *conversationRepository) FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	var convs []*domain.Conversation
	err := r.db.WithContext(ctx).
		Where("participant_a = ? OR participant_b = ?", userID, userID).
		Find(&convs).Error
	return convs, err
}

// Create inserts the conversation unless it already exists.
// It reports whether a row was inserted.
func (r *conversationRepository) Create(ctx context.Context, conv *domain.Conversation) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(conv)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	publish(ctx, r.pub, feed.ConversationChanged(conv.ID, conv.ParticipantA, conv.ParticipantB)...)
	return true, nil
}

// UpdateSummary moves the last-message summary forward to msg. A summary that
// already reflects a later message is left alone. Only the summary columns
// are written.
func (r *conversationRepository) UpdateSummary(ctx context.Context, msg *domain.Message) error {
	result := r.db.WithContext(ctx).
		Model(&domain.Conversation{}).
		Where("id = ? AND last_seq < ?", msg.ConversationID, msg.Seq).
		Updates(map[string]interface{}{
			"last_message":    msg.Text,
			"last_sender_id":  msg.SenderID,
			"last_message_at": msg.SentAt,
			"last_seq":        msg.Seq,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		// either the record is missing or a later message got there first
		if _, err := r.FindByID(ctx, msg.ConversationID); err != nil {
			return err
		}
		return nil
	}

	publish(ctx, r.pub, feed.ConversationChanged(msg.ConversationID, msg.SenderID, msg.ReceiverID)...)
	return nil
}

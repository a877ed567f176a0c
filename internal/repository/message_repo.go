package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// appendAttempts bounds retries when two appends race for the same seq
const appendAttempts = 3

// MessageRepository message log data access interface
type MessageRepository interface {
	Append(ctx context.Context, msg *domain.Message) (*domain.Message, error)
	Find(ctx context.Context, conversationID string, q domain.MessageQuery) ([]*domain.Message, error)
}

type messageRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewMessageRepository creates a new MessageRepository
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db, now: time.Now}
}

// Append stores msg, assigning ID, Seq and SentAt. SentAt never goes
// backwards within a conversation even if the clock does.
func (r *messageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	var err error
	for attempt := 0; attempt < appendAttempts; attempt++ {
		stored := *msg
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var last domain.Message
			res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("conversation_id = ?", stored.ConversationID).
				Order("seq DESC").
				Limit(1).
				Find(&last)
			if res.Error != nil {
				return res.Error
			}

			sentAt := r.now().UTC().Truncate(time.Millisecond)
			if res.RowsAffected > 0 {
				stored.Seq = last.Seq + 1
				if sentAt.Before(last.SentAt) {
					sentAt = last.SentAt
				}
			} else {
				stored.Seq = 1
			}
			stored.ID = uuid.NewString()
			stored.SentAt = sentAt

			return tx.Create(&stored).Error
		})
		if err == nil {
			return &stored, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("append to %s: %w", msg.ConversationID, err)
}

// Find returns messages of a conversation in ascending order. With a limit,
// the most recent messages are returned.
func (r *messageRepository) Find(ctx context.Context, conversationID string, q domain.MessageQuery) ([]*domain.Message, error) {
	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	if q.SenderID != "" {
		query = query.Where("sender_id = ?", q.SenderID)
	}

	var messages []*domain.Message
	if q.Limit > 0 {
		if err := query.Order("seq DESC").Limit(q.Limit).Find(&messages).Error; err != nil {
			return nil, err
		}
		for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
			messages[i], messages[j] = messages[j], messages[i]
		}
		return messages, nil
	}

	err := query.Order("seq ASC").Find(&messages).Error
	return messages, err
}

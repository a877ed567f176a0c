package domain

import "time"

// Message is an append-only entry of a conversation log. SentAt and Seq are
// assigned by the store; within a conversation both are non-decreasing.
type Message struct {
	SentAt         time.Time `gorm:"column:sent_at;index" json:"sent_at"`
	ID             string    `gorm:"column:id;primaryKey;type:varchar(36)" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;type:varchar(160);uniqueIndex:idx_social_messages_conv_seq,priority:1" json:"conversation_id"`
	SenderID       string    `gorm:"column:sender_id;type:varchar(64);index" json:"sender_id"`
	ReceiverID     string    `gorm:"column:receiver_id;type:varchar(64)" json:"receiver_id"`
	Text           string    `gorm:"column:text;type:text" json:"text"`
	Seq            int64     `gorm:"column:seq;uniqueIndex:idx_social_messages_conv_seq,priority:2" json:"seq"`
}

func (Message) TableName() string {
	return "social_messages"
}

// MessageQuery filters a conversation's log. Zero values mean no filter.
type MessageQuery struct {
	SenderID string
	Limit    int
}

// SendMessageRequest represents a send message request
type SendMessageRequest struct {
	Text string `json:"text" binding:"required"`
}

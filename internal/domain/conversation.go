package domain

import (
	"sort"
	"strings"
	"time"
)

// chatIDSeparator joins the two sorted participant ids
const chatIDSeparator = "_"

// Conversation is a two-party conversation record with a denormalized
// summary of its newest message
type Conversation struct {
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"last_message_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ID            string     `gorm:"column:id;primaryKey;type:varchar(160)" json:"id"`
	ParticipantA  string     `gorm:"column:participant_a;type:varchar(64);index" json:"participant_a"`
	ParticipantB  string     `gorm:"column:participant_b;type:varchar(64);index" json:"participant_b"`
	LastMessage   string     `gorm:"column:last_message;type:text" json:"last_message"`
	LastSenderID  string     `gorm:"column:last_sender_id;type:varchar(64)" json:"last_sender_id,omitempty"`
	LastSeq       int64      `gorm:"column:last_seq;default:0" json:"-"`
}

func (Conversation) TableName() string {
	return "social_conversations"
}

// Participants returns both participant ids
func (c *Conversation) Participants() [2]string {
	return [2]string{c.ParticipantA, c.ParticipantB}
}

// HasParticipant reports whether id takes part in the conversation
func (c *Conversation) HasParticipant(id string) bool {
	return c.ParticipantA == id || c.ParticipantB == id
}

// OtherParticipant returns the participant that is not id
func (c *Conversation) OtherParticipant(id string) string {
	if c.ParticipantA == id {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// MaxAccountIDLength bounds account ids to the participant column width
const MaxAccountIDLength = 64

// ValidAccountID reports whether id can take part in a chat id. Ids must not
// contain the separator, otherwise two different pairs could share one chat id.
func ValidAccountID(id string) bool {
	return id != "" && len(id) <= MaxAccountIDLength && !strings.Contains(id, chatIDSeparator)
}

// ChatID derives the conversation id for a pair. It is order-independent so
// both parties compute the same id without a lookup.
func ChatID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + chatIDSeparator + b
}

// OtherParticipantOfChatID recovers the counterpart of userID from a chat id.
// ok is false when userID is not one of the two participants or the id is
// not the canonical id of two valid accounts.
func OtherParticipantOfChatID(chatID, userID string) (other string, ok bool) {
	a, b, found := strings.Cut(chatID, chatIDSeparator)
	if !found || !ValidAccountID(a) || !ValidAccountID(b) || a >= b {
		return "", false
	}
	switch userID {
	case a:
		return b, true
	case b:
		return a, true
	}
	return "", false
}

// ConversationSummary is one entry of a materialized conversation view
type ConversationSummary struct {
	LastMessageAt    *time.Time `json:"last_message_at"`
	ID               string     `json:"id"`
	OtherUserID      string     `json:"other_user_id"`
	OtherNickname    string     `json:"other_nickname"`
	LastMessage      string     `json:"last_message"`
	LastSenderID     string     `json:"last_sender_id,omitempty"`
	OtherIsPrivate   bool       `json:"other_is_private"`
	OtherIsOrganizer bool       `json:"other_is_organizer"`
	IsFriend         bool       `json:"is_friend"`
	Persisted        bool       `json:"persisted"`
}

// NewSummary builds a view entry. conv may be nil for a friend with no stored
// conversation yet.
func NewSummary(viewerID string, other *Account, conv *Conversation, isFriend bool) *ConversationSummary {
	s := &ConversationSummary{
		ID:               ChatID(viewerID, other.ID),
		OtherUserID:      other.ID,
		OtherNickname:    other.Nickname,
		OtherIsPrivate:   other.IsPrivate,
		OtherIsOrganizer: other.IsOrganizer,
		IsFriend:         isFriend,
	}
	if conv != nil {
		s.Persisted = true
		s.LastMessage = conv.LastMessage
		s.LastSenderID = conv.LastSenderID
		s.LastMessageAt = conv.LastMessageAt
	}
	return s
}

// ConversationView is the sorted list of conversations a user should see.
// Generation increases with every recomputation delivered by live sync.
type ConversationView struct {
	GeneratedAt   time.Time              `json:"generated_at"`
	UserID        string                 `json:"user_id"`
	Conversations []*ConversationSummary `json:"conversations"`
	Generation    uint64                 `json:"generation"`
	Skipped       int                    `json:"skipped,omitempty"`
	Partial       bool                   `json:"partial"`
	Stale         bool                   `json:"stale"`
}

// SortSummaries orders by LastMessageAt descending. Entries without messages
// go last, ordered by id so the result does not depend on input order.
func SortSummaries(list []*ConversationSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].LastMessageAt, list[j].LastMessageAt
		switch {
		case a != nil && b != nil:
			if a.Equal(*b) {
				return list[i].ID < list[j].ID
			}
			return a.After(*b)
		case a != nil:
			return true
		case b != nil:
			return false
		default:
			return list[i].ID < list[j].ID
		}
	})
}

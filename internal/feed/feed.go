// Package feed carries change notifications for account and conversation
// records so live views can be recomputed when the data under them changes.
package feed

import (
	"context"
	"time"
)

// Change kinds
const (
	KindAccount      = "account"
	KindConversation = "conversation"
)

// Change announces that a record was committed. Subscribers re-read the store;
// a Change never carries the record itself.
type Change struct {
	At       time.Time `json:"at"`
	Topic    string    `json:"topic"`
	Kind     string    `json:"kind"`
	RecordID string    `json:"record_id"`
}

// Publisher announces committed writes
type Publisher interface {
	Publish(ctx context.Context, change Change)
}

// Subscriber registers callbacks for a topic. The callback runs on the
// publishing goroutine and must not block.
type Subscriber interface {
	Subscribe(topic string, fn func(Change)) Subscription
}

// Broker is both ends of the feed
type Broker interface {
	Publisher
	Subscriber
}

// Subscription releases a registration. Unsubscribe is safe to call more than once.
type Subscription interface {
	Unsubscribe()
}

// AccountTopic is the topic for changes to one account document
func AccountTopic(accountID string) string {
	return "account:" + accountID
}

// ConversationsTopic is the topic for changes to any conversation the
// participant takes part in
func ConversationsTopic(participantID string) string {
	return "conversations:" + participantID
}

// AccountChanged builds the change for an account write
func AccountChanged(accountID string) Change {
	return Change{
		Topic:    AccountTopic(accountID),
		Kind:     KindAccount,
		RecordID: accountID,
		At:       time.Now(),
	}
}

// ConversationChanged builds the per-participant changes for a conversation write
func ConversationChanged(conversationID string, participants ...string) []Change {
	now := time.Now()
	changes := make([]Change, 0, len(participants))
	for _, p := range participants {
		changes = append(changes, Change{
			Topic:    ConversationsTopic(p),
			Kind:     KindConversation,
			RecordID: conversationID,
			At:       now,
		})
	}
	return changes
}

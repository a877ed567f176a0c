package service

import (
	"context"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
)

// CanMessage decides whether sender may send a new message to receiver.
// The first matching rule wins:
//  1. either side is an organizer
//  2. the two are friends (both records agree)
//  3. a private sender may always contact a public receiver
//  4. a private receiver must have spoken first: history needs a message
//     sent by receiver
//  5. two public accounts
//
// Rule 4 is directional, so CanMessage(a, b, h) and CanMessage(b, a, h) can
// differ. history is only consulted when NeedsHistory is true.
func CanMessage(sender, receiver *domain.Account, history []*domain.Message) bool {
	if sender.IsOrganizer || receiver.IsOrganizer {
		return true
	}
	if areFriends(sender, receiver) {
		return true
	}
	if sender.IsPrivate && !receiver.IsPrivate {
		return true
	}
	if receiver.IsPrivate {
		return hasMessageFrom(history, receiver.ID)
	}
	return true
}

// NeedsHistory reports whether CanMessage reaches the first-contact rule for
// this pair, i.e. whether the caller has to load the conversation log
func NeedsHistory(sender, receiver *domain.Account) bool {
	if sender.IsOrganizer || receiver.IsOrganizer || areFriends(sender, receiver) {
		return false
	}
	return receiver.IsPrivate
}

// ConversationVisible decides whether an existing conversation with a
// non-friend stays in viewer's list. Unlike CanMessage it is symmetric apart
// from the both-private case, which needs a stored message from other.
func ConversationVisible(viewer, other *domain.Account, history []*domain.Message) bool {
	switch {
	case viewer.IsOrganizer || other.IsOrganizer:
		return true
	case viewer.IsPrivate != other.IsPrivate:
		return true
	case viewer.IsPrivate && other.IsPrivate:
		return hasMessageFrom(history, other.ID)
	default:
		return true
	}
}

// areFriends only trusts a friendship recorded on both sides
func areFriends(a, b *domain.Account) bool {
	return a.HasFriend(b.ID) && b.HasFriend(a.ID)
}

func hasMessageFrom(history []*domain.Message, senderID string) bool {
	for _, m := range history {
		if m.SenderID == senderID {
			return true
		}
	}
	return false
}

// AccessPolicy evaluates the messaging rules against the message store,
// loading history only when a rule needs it
type AccessPolicy interface {
	CanMessage(ctx context.Context, sender, receiver *domain.Account) (bool, error)
	Visible(ctx context.Context, viewer, other *domain.Account) (bool, error)
}

type accessPolicy struct {
	messages repository.MessageRepository
}

// NewAccessPolicy creates a new AccessPolicy
func NewAccessPolicy(messages repository.MessageRepository) AccessPolicy {
	return &accessPolicy{messages: messages}
}

// CanMessage implements AccessPolicy
func (p *accessPolicy) CanMessage(ctx context.Context, sender, receiver *domain.Account) (bool, error) {
	var history []*domain.Message
	if NeedsHistory(sender, receiver) {
		var err error
		history, err = p.firstFrom(ctx, receiver.ID, sender.ID)
		if err != nil {
			return false, err
		}
	}
	return CanMessage(sender, receiver, history), nil
}

// Visible implements AccessPolicy
func (p *accessPolicy) Visible(ctx context.Context, viewer, other *domain.Account) (bool, error) {
	var history []*domain.Message
	if viewer.IsPrivate && other.IsPrivate && !viewer.IsOrganizer && !other.IsOrganizer {
		var err error
		history, err = p.firstFrom(ctx, other.ID, viewer.ID)
		if err != nil {
			return false, err
		}
	}
	return ConversationVisible(viewer, other, history), nil
}

// firstFrom loads at most one message sent by senderID in the pair's conversation
func (p *accessPolicy) firstFrom(ctx context.Context, senderID, otherID string) ([]*domain.Message, error) {
	return p.messages.Find(ctx, domain.ChatID(senderID, otherID), domain.MessageQuery{
		SenderID: senderID,
		Limit:    1,
	})
}

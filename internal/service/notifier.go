package service

// Notification event types pushed to connected clients
const (
	EventNewMessage    = "new_message"
	EventFriendRequest = "friend_request"
	EventConversations = "conversations"
)

// Notifier pushes a best-effort event to every connection of a user
type Notifier interface {
	Notify(userID, eventType string, payload interface{})
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, string, interface{}) {}

func notifierOrNoop(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

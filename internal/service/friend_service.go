package service

import (
	"context"
	"fmt"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
)

// FriendService friend request state machine
type FriendService interface {
	SendRequest(ctx context.Context, fromID, toID string) error
	AcceptRequest(ctx context.Context, userID, requesterID string) error
	DeclineRequest(ctx context.Context, userID, otherID string) error
	RemoveFriend(ctx context.Context, userID, friendID string) error
	Status(ctx context.Context, viewerID, otherID string) (*domain.FriendStatusResponse, error)
	ListFriends(ctx context.Context, userID string) ([]*domain.PublicProfile, error)
	ListRequests(ctx context.Context, userID string) (*domain.FriendRequestsResponse, error)
}

type friendService struct {
	accounts repository.AccountRepository
	notifier Notifier
}

// NewFriendService creates a new FriendService. notifier may be nil.
func NewFriendService(accounts repository.AccountRepository, notifier Notifier) FriendService {
	return &friendService{
		accounts: accounts,
		notifier: notifierOrNoop(notifier),
	}
}

// friendRequestEvent is the payload of a friend_request notification
type friendRequestEvent struct {
	From   string                     `json:"from"`
	Status domain.FriendRequestStatus `json:"status"`
}

// SendRequest records a pending request from fromID to toID. Sending again
// while the request is pending only repairs the pair. A friendship recorded on
// only one side is completed rather than replaced by a request.
func (s *friendService) SendRequest(ctx context.Context, fromID, toID string) (err error) {
	defer func() { friendOperationsTotal.WithLabelValues("send", resultLabel(err)).Inc() }()

	a, b, state, err := s.loadPair(ctx, fromID, toID)
	if err != nil {
		return err
	}

	switch {
	case state == domain.PairFriends:
		return fmt.Errorf("%s and %s are already friends: %w", fromID, toID, common.ErrInvalidState)
	case a.HasFriend(b.ID) || b.HasFriend(a.ID):
		// 한쪽만 기록된 친구 관계는 요청으로 덮어쓰지 않고 복구
		if err := s.movePair(ctx, a, b, domain.PairFriends); err != nil {
			return err
		}
		return fmt.Errorf("%s and %s are already friends: %w", fromID, toID, common.ErrInvalidState)
	case state == domain.PairPendingBToA:
		// 상대가 먼저 보낸 요청이 있으면 수락해야 함
		return fmt.Errorf("%s already has a request from %s: %w", fromID, toID, common.ErrInvalidState)
	}

	if err := s.movePair(ctx, a, b, domain.PairPendingAToB); err != nil {
		return err
	}
	if state == domain.PairNone {
		s.notifier.Notify(toID, EventFriendRequest, &friendRequestEvent{From: fromID, Status: domain.FriendStatusReceived})
	}
	return nil
}

// AcceptRequest makes userID and requesterID friends. Accepting an existing
// friendship is a no-op, and a friendship recorded on only one side is
// completed.
func (s *friendService) AcceptRequest(ctx context.Context, userID, requesterID string) (err error) {
	defer func() { friendOperationsTotal.WithLabelValues("accept", resultLabel(err)).Inc() }()

	a, b, state, err := s.loadPair(ctx, userID, requesterID)
	if err != nil {
		return err
	}

	switch {
	case state == domain.PairFriends, state == domain.PairPendingBToA:
	case a.HasFriend(b.ID) || b.HasFriend(a.ID):
		// 한쪽만 기록된 친구 관계 복구
	case a.HasReceivedRequest(b.ID) || b.HasSentRequest(a.ID):
		// 반쪽만 기록된 요청도 수락 가능
	default:
		return fmt.Errorf("no request from %s to %s: %w", requesterID, userID, common.ErrInvalidState)
	}

	if err := s.movePair(ctx, a, b, domain.PairFriends); err != nil {
		return err
	}
	if state != domain.PairFriends {
		s.notifier.Notify(requesterID, EventFriendRequest, &friendRequestEvent{From: userID, Status: domain.FriendStatusFriends})
	}
	return nil
}

// DeclineRequest removes a pending request in either direction, so it also
// serves to cancel one's own request
func (s *friendService) DeclineRequest(ctx context.Context, userID, otherID string) (err error) {
	defer func() { friendOperationsTotal.WithLabelValues("decline", resultLabel(err)).Inc() }()

	a, b, state, err := s.loadPair(ctx, userID, otherID)
	if err != nil {
		return err
	}
	if state == domain.PairFriends {
		return fmt.Errorf("%s and %s are friends: %w", userID, otherID, common.ErrInvalidState)
	}
	if a.HasFriend(b.ID) || b.HasFriend(a.ID) {
		return fmt.Errorf("%s and %s are partially friends: %w", userID, otherID, common.ErrInvalidState)
	}
	return s.movePair(ctx, a, b, domain.PairNone)
}

// RemoveFriend ends a friendship. Stored conversations are kept.
func (s *friendService) RemoveFriend(ctx context.Context, userID, friendID string) (err error) {
	defer func() { friendOperationsTotal.WithLabelValues("remove", resultLabel(err)).Inc() }()

	a, b, state, err := s.loadPair(ctx, userID, friendID)
	if err != nil {
		return err
	}
	if state != domain.PairFriends && !a.HasFriend(b.ID) && !b.HasFriend(a.ID) {
		return fmt.Errorf("%s and %s are not friends: %w", userID, friendID, common.ErrInvalidState)
	}
	return s.movePair(ctx, a, b, domain.PairNone)
}

// Status derives the relationship conservatively from both records
func (s *friendService) Status(ctx context.Context, viewerID, otherID string) (*domain.FriendStatusResponse, error) {
	if viewerID == otherID {
		if _, err := s.accounts.FindByID(ctx, viewerID); err != nil {
			return nil, err
		}
		return &domain.FriendStatusResponse{UserID: otherID, Status: domain.FriendStatusSelf}, nil
	}

	a, b, _, err := s.loadPair(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}
	return &domain.FriendStatusResponse{UserID: otherID, Status: domain.RelationStatus(a, b)}, nil
}

// ListFriends returns the profiles in the user's own friend set, in list order.
// Ids whose account is missing are left out.
func (s *friendService) ListFriends(ctx context.Context, userID string) ([]*domain.PublicProfile, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.profiles(ctx, account.Friends)
}

// ListRequests returns pending requests in both directions
func (s *friendService) ListRequests(ctx context.Context, userID string) (*domain.FriendRequestsResponse, error) {
	account, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	sent, err := s.profiles(ctx, account.SentRequests)
	if err != nil {
		return nil, err
	}
	received, err := s.profiles(ctx, account.ReceivedRequests)
	if err != nil {
		return nil, err
	}
	return &domain.FriendRequestsResponse{Sent: sent, Received: received}, nil
}

func (s *friendService) profiles(ctx context.Context, ids []string) ([]*domain.PublicProfile, error) {
	accounts, err := s.accounts.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*domain.Account, len(accounts))
	for _, a := range accounts {
		byID[a.ID] = a
	}

	out := make([]*domain.PublicProfile, 0, len(ids))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			out = append(out, a.ToPublicProfile())
		}
	}
	return out, nil
}

// loadPair reads both accounts and resolves their pair state. An inconsistent
// pair is logged and resolved conservatively; the mutation that follows
// rewrites both sides.
func (s *friendService) loadPair(ctx context.Context, aID, bID string) (*domain.Account, *domain.Account, domain.PairState, error) {
	if !validPair(aID, bID) {
		return nil, nil, domain.PairNone, fmt.Errorf("pair %q/%q: %w", aID, bID, common.ErrInvalidInput)
	}

	a, err := s.accounts.FindByID(ctx, aID)
	if err != nil {
		return nil, nil, domain.PairNone, err
	}
	b, err := s.accounts.FindByID(ctx, bID)
	if err != nil {
		return nil, nil, domain.PairNone, err
	}

	state, consistent := domain.ResolvePair(a, b)
	if !consistent {
		inconsistentPairsTotal.Inc()
		pkglogger.GetLogger().Warn().
			Err(common.ErrInconsistentFriendship).
			Str("a", aID).
			Str("b", bID).
			Str("resolved", state.String()).
			Msg("friend pair records disagree")
	}
	return a, b, state, nil
}

// movePair writes both records to target, a first then b. Each write is a
// merge that changes nothing when the record already matches, so repeating a
// half-finished move completes it.
func (s *friendService) movePair(ctx context.Context, a, b *domain.Account, target domain.PairState) error {
	updates := domain.PairUpdatesFor(a.ID, b.ID, target)
	if _, err := s.accounts.Apply(ctx, a.ID, updates.A); err != nil {
		return fmt.Errorf("update %s: %w", a.ID, err)
	}
	if _, err := s.accounts.Apply(ctx, b.ID, updates.B); err != nil {
		return fmt.Errorf("update %s (pair %s is half written): %w", b.ID, a.ID, err)
	}
	return nil
}

package domain

// FriendRequestStatus is derived from an account's id sets relative to
// another account; it is never stored
type FriendRequestStatus string

const (
	FriendStatusNone     FriendRequestStatus = "none"
	FriendStatusSent     FriendRequestStatus = "sent"
	FriendStatusReceived FriendRequestStatus = "received"
	FriendStatusFriends  FriendRequestStatus = "friends"
	FriendStatusSelf     FriendRequestStatus = "self"
)

// StatusOf derives the status from this account's own record only
func (a *Account) StatusOf(otherID string) FriendRequestStatus {
	switch {
	case a.ID == otherID:
		return FriendStatusSelf
	case a.HasFriend(otherID):
		return FriendStatusFriends
	case a.HasSentRequest(otherID):
		return FriendStatusSent
	case a.HasReceivedRequest(otherID):
		return FriendStatusReceived
	default:
		return FriendStatusNone
	}
}

// PairState is the state of the ordered pair (A, B)
type PairState int

const (
	PairNone PairState = iota
	PairPendingAToB
	PairPendingBToA
	PairFriends
)

func (s PairState) String() string {
	switch s {
	case PairPendingAToB:
		return "a_to_b_pending"
	case PairPendingBToA:
		return "b_to_a_pending"
	case PairFriends:
		return "friends"
	default:
		return "none"
	}
}

// ResolvePair reads the pair state from both records. A relationship only
// counts when both sides record it; an entry without its mirror is treated as
// absent and reported through consistent=false.
func ResolvePair(a, b *Account) (state PairState, consistent bool) {
	aFriend, bFriend := a.HasFriend(b.ID), b.HasFriend(a.ID)
	aSent, bRecv := a.HasSentRequest(b.ID), b.HasReceivedRequest(a.ID)
	bSent, aRecv := b.HasSentRequest(a.ID), a.HasReceivedRequest(b.ID)

	switch {
	case aFriend && bFriend:
		state = PairFriends
	case aSent && bRecv:
		state = PairPendingAToB
	case bSent && aRecv:
		state = PairPendingBToA
	default:
		state = PairNone
	}

	want := PairUpdatesFor(a.ID, b.ID, state)
	scratchA, scratchB := *a, *b
	consistent = !want.A.ApplyTo(&scratchA) && !want.B.ApplyTo(&scratchB)
	return state, consistent
}

// RelationStatus is the conservative status of b as seen from a
func RelationStatus(a, b *Account) FriendRequestStatus {
	if a.ID == b.ID {
		return FriendStatusSelf
	}
	state, _ := ResolvePair(a, b)
	switch state {
	case PairFriends:
		return FriendStatusFriends
	case PairPendingAToB:
		return FriendStatusSent
	case PairPendingBToA:
		return FriendStatusReceived
	default:
		return FriendStatusNone
	}
}

// PairUpdates holds the two single-account writes that move a pair to a state
type PairUpdates struct {
	A *AccountUpdate
	B *AccountUpdate
}

// PairUpdatesFor returns writes that put the pair into exactly target,
// clearing every other entry either record holds about the other. Applying
// them repeatedly is harmless, so a half-finished pair is repaired by simply
// issuing them again.
func PairUpdatesFor(aID, bID string, target PairState) PairUpdates {
	ua := &AccountUpdate{
		RemoveFriends:          []string{bID},
		RemoveSentRequests:     []string{bID},
		RemoveReceivedRequests: []string{bID},
	}
	ub := &AccountUpdate{
		RemoveFriends:          []string{aID},
		RemoveSentRequests:     []string{aID},
		RemoveReceivedRequests: []string{aID},
	}

	switch target {
	case PairFriends:
		ua.AddFriends = []string{bID}
		ub.AddFriends = []string{aID}
	case PairPendingAToB:
		ua.AddSentRequests = []string{bID}
		ub.AddReceivedRequests = []string{aID}
	case PairPendingBToA:
		ua.AddReceivedRequests = []string{bID}
		ub.AddSentRequests = []string{aID}
	}
	return PairUpdates{A: ua, B: ub}
}

// FriendRequestsResponse lists an account's pending requests
type FriendRequestsResponse struct {
	Sent     []*PublicProfile `json:"sent"`
	Received []*PublicProfile `json:"received"`
}

// FriendStatusResponse is the derived status between the caller and another account
type FriendStatusResponse struct {
	UserID string              `json:"user_id"`
	Status FriendRequestStatus `json:"status"`
}

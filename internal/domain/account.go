package domain

import "time"

// Account is a user identity with friend, privacy and organizer state.
// The three id lists behave as sets; AccountUpdate keeps them duplicate-free.
type Account struct {
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	ID               string    `gorm:"column:id;primaryKey;type:varchar(64)" json:"id"`
	Nickname         string    `gorm:"column:nickname;type:varchar(100)" json:"nickname"`
	Friends          []string  `gorm:"column:friends;type:text;serializer:json" json:"friends"`
	SentRequests     []string  `gorm:"column:sent_requests;type:text;serializer:json" json:"sent_requests"`
	ReceivedRequests []string  `gorm:"column:received_requests;type:text;serializer:json" json:"received_requests"`
	IsPrivate        bool      `gorm:"column:is_private;default:false" json:"is_private"`
	IsOrganizer      bool      `gorm:"column:is_organizer;default:false" json:"is_organizer"`
}

func (Account) TableName() string {
	return "social_accounts"
}

// HasFriend reports whether id is in this account's friend set
func (a *Account) HasFriend(id string) bool {
	return containsID(a.Friends, id)
}

// HasSentRequest reports whether this account has a pending request to id
func (a *Account) HasSentRequest(id string) bool {
	return containsID(a.SentRequests, id)
}

// HasReceivedRequest reports whether id has a pending request to this account
func (a *Account) HasReceivedRequest(id string) bool {
	return containsID(a.ReceivedRequests, id)
}

// AccountUpdate is a merge-style partial update. Removals are applied before
// additions, and additions never duplicate an existing entry.
type AccountUpdate struct {
	IsPrivate              *bool
	IsOrganizer            *bool
	Nickname               *string
	AddFriends             []string
	RemoveFriends          []string
	AddSentRequests        []string
	RemoveSentRequests     []string
	AddReceivedRequests    []string
	RemoveReceivedRequests []string
}

// ApplyTo merges the update into a and reports whether anything changed
func (u *AccountUpdate) ApplyTo(a *Account) bool {
	changed := false

	apply := func(list *[]string, remove, add []string) {
		next := *list
		for _, id := range remove {
			// an id that is also being added keeps its position
			if !containsID(add, id) {
				next = removeID(next, id)
			}
		}
		for _, id := range add {
			next = addID(next, id)
		}
		if !sameIDs(*list, next) {
			*list = next
			changed = true
		}
	}

	apply(&a.Friends, u.RemoveFriends, u.AddFriends)
	apply(&a.SentRequests, u.RemoveSentRequests, u.AddSentRequests)
	apply(&a.ReceivedRequests, u.RemoveReceivedRequests, u.AddReceivedRequests)

	if u.IsPrivate != nil && *u.IsPrivate != a.IsPrivate {
		a.IsPrivate = *u.IsPrivate
		changed = true
	}
	if u.IsOrganizer != nil && *u.IsOrganizer != a.IsOrganizer {
		a.IsOrganizer = *u.IsOrganizer
		changed = true
	}
	if u.Nickname != nil && *u.Nickname != a.Nickname {
		a.Nickname = *u.Nickname
		changed = true
	}
	return changed
}

// IsEmpty reports whether the update carries no changes at all
func (u *AccountUpdate) IsEmpty() bool {
	return u.IsPrivate == nil && u.IsOrganizer == nil && u.Nickname == nil &&
		len(u.AddFriends) == 0 && len(u.RemoveFriends) == 0 &&
		len(u.AddSentRequests) == 0 && len(u.RemoveSentRequests) == 0 &&
		len(u.AddReceivedRequests) == 0 && len(u.RemoveReceivedRequests) == 0
}

func containsID(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}

// addID appends id unless present; if id is present more than once the
// extra occurrences are dropped
func addID(list []string, id string) []string {
	count := 0
	for _, v := range list {
		if v == id {
			count++
		}
	}
	switch count {
	case 0:
		out := make([]string, 0, len(list)+1)
		out = append(out, list...)
		return append(out, id)
	case 1:
		return list
	}

	out := make([]string, 0, len(list))
	seen := false
	for _, v := range list {
		if v == id {
			if seen {
				continue
			}
			seen = true
		}
		out = append(out, v)
	}
	return out
}

// removeID drops every occurrence of id, which also repairs lists that were
// written with duplicates
func removeID(list []string, id string) []string {
	if !containsID(list, id) {
		return list
	}
	out := make([]string, 0, len(list))
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func sameIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// AccountResponse is the account as returned to its owner
type AccountResponse struct {
	ID               string   `json:"id"`
	Nickname         string   `json:"nickname"`
	Friends          []string `json:"friends"`
	SentRequests     []string `json:"sent_requests"`
	ReceivedRequests []string `json:"received_requests"`
	FriendCount      int      `json:"friend_count"`
	IsPrivate        bool     `json:"is_private"`
	IsOrganizer      bool     `json:"is_organizer"`
}

// ToResponse converts Account to AccountResponse
func (a *Account) ToResponse() *AccountResponse {
	return &AccountResponse{
		ID:               a.ID,
		Nickname:         a.Nickname,
		Friends:          nonNil(a.Friends),
		SentRequests:     nonNil(a.SentRequests),
		ReceivedRequests: nonNil(a.ReceivedRequests),
		FriendCount:      len(a.Friends),
		IsPrivate:        a.IsPrivate,
		IsOrganizer:      a.IsOrganizer,
	}
}

// PublicProfile is what other accounts may see
type PublicProfile struct {
	ID          string `json:"id"`
	Nickname    string `json:"nickname"`
	IsPrivate   bool   `json:"is_private"`
	IsOrganizer bool   `json:"is_organizer"`
}

// ToPublicProfile converts Account to PublicProfile
func (a *Account) ToPublicProfile() *PublicProfile {
	return &PublicProfile{
		ID:          a.ID,
		Nickname:    a.Nickname,
		IsPrivate:   a.IsPrivate,
		IsOrganizer: a.IsOrganizer,
	}
}

// UpdateSettingsRequest represents a privacy/profile settings change
type UpdateSettingsRequest struct {
	IsPrivate *bool   `json:"is_private"`
	Nickname  *string `json:"nickname" binding:"omitempty,min=1,max=100"`
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

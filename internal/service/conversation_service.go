package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/cache"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
	"golang.org/x/sync/errgroup"
)

// ConversationService materialized conversation lists and conversation access
type ConversationService interface {
	BuildView(ctx context.Context, userID string) (*domain.ConversationView, error)
	EnsureConversation(ctx context.Context, userID, otherID string) (*domain.ConversationSummary, error)
	CanMessage(ctx context.Context, senderID, receiverID string) (bool, error)
	Messages(ctx context.Context, userID, conversationID string, limit int) ([]*domain.Message, error)
}

type conversationService struct {
	accounts      repository.AccountRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	policy        AccessPolicy
	cache         cache.Service
	cfg           config.SocialConfig
	now           func() time.Time
}

// NewConversationService creates a new ConversationService. cacheService may
// be nil, in which case failed recomputations have no fallback.
func NewConversationService(
	accounts repository.AccountRepository,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	policy AccessPolicy,
	cacheService cache.Service,
	cfg config.SocialConfig,
) ConversationService {
	if cfg.ViewMaxConcurrency <= 0 {
		cfg.ViewMaxConcurrency = 8
	}
	if cfg.MessagePageLimit <= 0 {
		cfg.MessagePageLimit = 50
	}
	return &conversationService{
		accounts:      accounts,
		conversations: conversations,
		messages:      messages,
		policy:        policy,
		cache:         cacheService,
		cfg:           cfg,
		now:           time.Now,
	}
}

// viewCandidate is one other party that may appear in the view
type viewCandidate struct {
	otherID  string
	conv     *domain.Conversation // nil when only reachable as a friend
	isFriend bool
}

// BuildView computes the sorted conversation list for userID: one entry per
// friend, plus stored conversations with non-friends that are still visible.
// A failed lookup for one party drops that entry and marks the view partial.
// When the base reads fail, the last good view is returned with Stale set.
func (s *conversationService) BuildView(ctx context.Context, userID string) (view *domain.ConversationView, err error) {
	start := s.now()
	defer func() {
		viewBuildDuration.Observe(time.Since(start).Seconds())
		switch {
		case err != nil:
			viewBuildsTotal.WithLabelValues("error").Inc()
		case view.Stale:
			viewBuildsTotal.WithLabelValues("stale").Inc()
		case view.Partial:
			viewBuildsTotal.WithLabelValues("partial").Inc()
		default:
			viewBuildsTotal.WithLabelValues("ok").Inc()
		}
	}()

	viewer, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return s.fallback(ctx, userID, err)
	}
	convs, err := s.conversations.FindByParticipant(ctx, userID)
	if err != nil {
		return s.fallback(ctx, userID, err)
	}

	candidates := collectCandidates(viewer, convs)
	entries := make([]*domain.ConversationSummary, len(candidates))
	failed := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ViewMaxConcurrency)
	for i := range candidates {
		i := i
		g.Go(func() error {
			entry, err := s.resolveCandidate(gctx, viewer, candidates[i])
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed[i] = true
				pkglogger.GetLogger().Warn().
					Err(fmt.Errorf("%w: %v", common.ErrPartialSync, err)).
					Str("user_id", userID).
					Str("other_id", candidates[i].otherID).
					Msg("conversation view entry skipped")
				return nil
			}
			entries[i] = entry
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view = &domain.ConversationView{
		UserID:        userID,
		GeneratedAt:   s.now().UTC(),
		Conversations: make([]*domain.ConversationSummary, 0, len(entries)),
	}
	for i, e := range entries {
		if failed[i] {
			view.Skipped++
			continue
		}
		if e != nil {
			view.Conversations = append(view.Conversations, e)
		}
	}
	view.Partial = view.Skipped > 0
	if view.Skipped > 0 {
		viewSkippedEntries.Add(float64(view.Skipped))
	}
	domain.SortSummaries(view.Conversations)

	if !view.Partial {
		s.remember(ctx, view)
	}
	return view, nil
}

// collectCandidates merges the friend set with stored conversations, keyed by
// the other party so each pair appears once
func collectCandidates(viewer *domain.Account, convs []*domain.Conversation) []*viewCandidate {
	byOther := make(map[string]*viewCandidate, len(viewer.Friends)+len(convs))
	order := make([]string, 0, len(viewer.Friends)+len(convs))

	add := func(otherID string) *viewCandidate {
		c, ok := byOther[otherID]
		if !ok {
			c = &viewCandidate{otherID: otherID}
			byOther[otherID] = c
			order = append(order, otherID)
		}
		return c
	}

	for _, id := range viewer.Friends {
		if id == "" || id == viewer.ID {
			continue
		}
		add(id).isFriend = true
	}
	for _, conv := range convs {
		otherID := conv.OtherParticipant(viewer.ID)
		if otherID == "" || otherID == viewer.ID || conv.ID != domain.ChatID(viewer.ID, otherID) {
			continue
		}
		add(otherID).conv = conv
	}

	out := make([]*viewCandidate, len(order))
	for i, id := range order {
		out[i] = byOther[id]
	}
	return out
}

// resolveCandidate reads the other party fresh and applies the visibility
// rules. A nil entry with a nil error means the conversation is hidden.
func (s *conversationService) resolveCandidate(ctx context.Context, viewer *domain.Account, c *viewCandidate) (*domain.ConversationSummary, error) {
	other, err := s.accounts.FindByID(ctx, c.otherID)
	if err != nil {
		return nil, err
	}

	if c.isFriend {
		if !other.HasFriend(viewer.ID) {
			// 표시는 보는 쪽 기록 기준, 복구는 다음 변경 시
			pkglogger.GetLogger().Warn().
				Err(common.ErrInconsistentFriendship).
				Str("user_id", viewer.ID).
				Str("other_id", other.ID).
				Msg("friend does not reciprocate")
		}
		return domain.NewSummary(viewer.ID, other, c.conv, true), nil
	}

	visible, err := s.policy.Visible(ctx, viewer, other)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, nil
	}
	return domain.NewSummary(viewer.ID, other, c.conv, false), nil
}

// fallback serves the last good view when the base reads fail
func (s *conversationService) fallback(ctx context.Context, userID string, cause error) (*domain.ConversationView, error) {
	if errors.Is(cause, common.ErrNotFound) || s.cache == nil || !s.cache.IsAvailable() {
		return nil, cause
	}

	var cached domain.ConversationView
	if err := s.cache.GetView(ctx, userID, &cached); err != nil {
		return nil, cause
	}
	pkglogger.GetLogger().Warn().
		Err(cause).
		Str("user_id", userID).
		Time("generated_at", cached.GeneratedAt).
		Msg("serving last good conversation view")
	cached.Stale = true
	return &cached, nil
}

func (s *conversationService) remember(ctx context.Context, view *domain.ConversationView) {
	if s.cache == nil || !s.cache.IsAvailable() {
		return
	}
	ttl := time.Duration(s.cfg.ViewCacheTTL) * time.Second
	if err := s.cache.SetView(ctx, view.UserID, view, ttl); err != nil {
		pkglogger.GetLogger().Debug().Err(err).Str("user_id", view.UserID).Msg("view cache write failed")
	}
}

// EnsureConversation returns the conversation between userID and otherID,
// checking the access policy only when no record exists yet. A new
// conversation is not stored until its first message.
func (s *conversationService) EnsureConversation(ctx context.Context, userID, otherID string) (*domain.ConversationSummary, error) {
	if !validPair(userID, otherID) {
		return nil, fmt.Errorf("conversation %q/%q: %w", userID, otherID, common.ErrInvalidInput)
	}
	sender, err := s.accounts.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	other, err := s.accounts.FindByID(ctx, otherID)
	if err != nil {
		return nil, err
	}

	conv, err := s.conversations.FindByID(ctx, domain.ChatID(userID, otherID))
	switch {
	case err == nil:
		return domain.NewSummary(userID, other, conv, sender.HasFriend(otherID)), nil
	case !errors.Is(err, common.ErrNotFound):
		return nil, err
	}

	allowed, err := s.policy.CanMessage(ctx, sender, other)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%s -> %s: %w", userID, otherID, common.ErrNotAuthorized)
	}
	return domain.NewSummary(userID, other, nil, sender.HasFriend(otherID)), nil
}

// CanMessage evaluates the access policy for a new message
func (s *conversationService) CanMessage(ctx context.Context, senderID, receiverID string) (bool, error) {
	if !validPair(senderID, receiverID) {
		return false, fmt.Errorf("can message %q -> %q: %w", senderID, receiverID, common.ErrInvalidInput)
	}
	sender, err := s.accounts.FindByID(ctx, senderID)
	if err != nil {
		return false, err
	}
	receiver, err := s.accounts.FindByID(ctx, receiverID)
	if err != nil {
		return false, err
	}
	return s.policy.CanMessage(ctx, sender, receiver)
}

// Messages returns the most recent messages of a conversation the user takes
// part in, oldest first. Membership is checked against the stored record; a
// conversation with no record yet has no messages.
func (s *conversationService) Messages(ctx context.Context, userID, conversationID string, limit int) ([]*domain.Message, error) {
	if _, ok := domain.OtherParticipantOfChatID(conversationID, userID); !ok {
		return nil, fmt.Errorf("%s is not in %s: %w", userID, conversationID, common.ErrNotAuthorized)
	}
	conv, err := s.conversations.FindByID(ctx, conversationID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		return []*domain.Message{}, nil
	case err != nil:
		return nil, err
	case !conv.HasParticipant(userID):
		return nil, fmt.Errorf("%s is not in %s: %w", userID, conversationID, common.ErrNotAuthorized)
	}
	if limit <= 0 || limit > s.cfg.MessagePageLimit {
		limit = s.cfg.MessagePageLimit
	}
	return s.messages.Find(ctx, conversationID, domain.MessageQuery{Limit: limit})
}

// validPair reports whether two ids name distinct, well-formed accounts
func validPair(a, b string) bool {
	return domain.ValidAccountID(a) && domain.ValidAccountID(b) && a != b
}

package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedViews returns views in call order; a call whose gate is set
// blocks until the gate is closed or ctx ends
type scriptedViews struct {
	ConversationService
	calls atomic.Int32
	gates map[int32]chan struct{}
	fail  map[int32]bool
	stale map[int32]bool
}

func (s *scriptedViews) BuildView(ctx context.Context, userID string) (*domain.ConversationView, error) {
	n := s.calls.Add(1)
	if gate, ok := s.gates[n]; ok {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.fail[n] {
		return nil, errors.New("store unavailable")
	}
	return &domain.ConversationView{
		UserID:      userID,
		GeneratedAt: time.Now(),
		Skipped:     int(n), // lets tests tell calls apart
		Stale:       s.stale[n],
	}, nil
}

type deliveries struct {
	mu    sync.Mutex
	views []*domain.ConversationView
}

func (d *deliveries) add(v *domain.ConversationView) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.views = append(d.views, v)
}

func (d *deliveries) list() []*domain.ConversationView {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*domain.ConversationView(nil), d.views...)
}

func TestLiveSync_InitialAndChangeDeliveries(t *testing.T) {
	broker := feed.NewLocalBroker()
	views := &scriptedViews{}
	got := &deliveries{}

	w := NewLiveSync(views, broker).Watch(context.Background(), "u", got.add)
	defer w.Close()
	w.Wait()
	require.Len(t, got.list(), 1)

	broker.Publish(context.Background(), feed.AccountChanged("u"))
	w.Wait()
	for _, c := range feed.ConversationChanged("u_x", "u", "x") {
		broker.Publish(context.Background(), c)
	}
	w.Wait()

	// changes for other users do not trigger
	broker.Publish(context.Background(), feed.AccountChanged("someone-else"))
	w.Wait()

	list := got.list()
	require.Len(t, list, 3)
	for i := 1; i < len(list); i++ {
		assert.Greater(t, list[i].Generation, list[i-1].Generation)
	}
}

func TestLiveSync_BurstCollapsesIntoOneRerun(t *testing.T) {
	broker := feed.NewLocalBroker()
	slow := make(chan struct{})
	views := &scriptedViews{gates: map[int32]chan struct{}{1: slow}}
	got := &deliveries{}

	w := NewLiveSync(views, broker).Watch(context.Background(), "u", got.add)
	defer w.Close()

	// changes arriving while the first recomputation runs
	require.Eventually(t, func() bool { return views.calls.Load() == 1 }, time.Second, time.Millisecond)
	w.Refresh()
	broker.Publish(context.Background(), feed.AccountChanged("u"))
	w.Refresh()
	assert.Equal(t, int32(1), views.calls.Load(), "no concurrent recomputation")

	close(slow)
	w.Wait()

	assert.Equal(t, int32(2), views.calls.Load())
	list := got.list()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(1), list[0].Generation)
	assert.Equal(t, 1, list[0].Skipped)
	assert.Equal(t, uint64(4), list[1].Generation)
	assert.Equal(t, 2, list[1].Skipped)
}

func TestLiveSync_FailedRecomputationKeepsLastView(t *testing.T) {
	broker := feed.NewLocalBroker()
	views := &scriptedViews{fail: map[int32]bool{2: true}, stale: map[int32]bool{3: true}}
	got := &deliveries{}

	w := NewLiveSync(views, broker).Watch(context.Background(), "u", got.add)
	defer w.Close()
	w.Wait()

	w.Refresh()
	w.Wait()
	w.Refresh()
	w.Wait()
	require.Len(t, got.list(), 1)

	w.Refresh()
	w.Wait()
	list := got.list()
	require.Len(t, list, 2)
	assert.Equal(t, uint64(4), list[1].Generation)
}

func TestLiveSync_CloseReleasesOnce(t *testing.T) {
	broker := feed.NewLocalBroker()
	views := &scriptedViews{}
	got := &deliveries{}

	w := NewLiveSync(views, broker).Watch(context.Background(), "u", got.add)
	w.Wait()
	assert.Equal(t, 1, broker.SubscriberCount(feed.AccountTopic("u")))
	assert.Equal(t, 1, broker.SubscriberCount(feed.ConversationsTopic("u")))

	w.Close()
	w.Close()
	assert.Equal(t, 0, broker.SubscriberCount(feed.AccountTopic("u")))
	assert.Equal(t, 0, broker.SubscriberCount(feed.ConversationsTopic("u")))

	broker.Publish(context.Background(), feed.AccountChanged("u"))
	w.Refresh()
	w.Wait()
	assert.Len(t, got.list(), 1)
}

func TestLiveSync_CancelAbandonsInFlight(t *testing.T) {
	broker := feed.NewLocalBroker()
	never := make(chan struct{})
	views := &scriptedViews{gates: map[int32]chan struct{}{1: never}}
	got := &deliveries{}

	ctx, cancel := context.WithCancel(context.Background())
	w := NewLiveSync(views, broker).Watch(ctx, "u", got.add)
	require.Eventually(t, func() bool { return views.calls.Load() == 1 }, time.Second, time.Millisecond)

	cancel()
	<-w.Done()
	w.Wait()
	assert.Empty(t, got.list())
	require.Eventually(t, func() bool {
		return broker.SubscriberCount(feed.AccountTopic("u")) == 0
	}, time.Second, time.Millisecond)
}

func TestLiveSync_EndToEnd(t *testing.T) {
	store := newTestStore(t)
	store.seed(t, "alice", "bob")
	views := NewConversationService(store.accounts, store.conversations, store.messages,
		NewAccessPolicy(store.messages), nil, testSocialConfig)
	friends := NewFriendService(store.accounts, nil)
	messages := NewMessageService(store.accounts, store.conversations, store.messages,
		NewAccessPolicy(store.messages), nil, testSocialConfig)
	got := &deliveries{}
	ctx := context.Background()

	w := NewLiveSync(views, store.broker).Watch(ctx, "alice", got.add)
	defer w.Close()
	w.Wait()
	require.Len(t, got.list(), 1)
	assert.Empty(t, got.list()[0].Conversations)

	require.NoError(t, friends.SendRequest(ctx, "bob", "alice"))
	require.NoError(t, friends.AcceptRequest(ctx, "alice", "bob"))
	w.Wait()

	_, err := messages.SendMessage(ctx, "bob", domain.ChatID("alice", "bob"), "hello")
	require.NoError(t, err)
	w.Wait()

	list := got.list()
	last := list[len(list)-1]
	require.Len(t, last.Conversations, 1)
	assert.Equal(t, "hello", last.Conversations[0].LastMessage)
	assert.True(t, last.Conversations[0].IsFriend)
}

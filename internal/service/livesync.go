package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	pkglogger "github.com/SwanHacks2025/2025-swan-hacks-sub000/pkg/logger"
)

// LiveSync recomputes a user's conversation view whenever the user's account
// or one of the user's conversations changes
type LiveSync struct {
	views ConversationService
	feed  feed.Subscriber
}

// NewLiveSync creates a new LiveSync
func NewLiveSync(views ConversationService, subscriber feed.Subscriber) *LiveSync {
	return &LiveSync{views: views, feed: subscriber}
}

// Watcher is one established live view. At most one recomputation runs at a
// time; changes that arrive meanwhile collapse into a single rerun that
// carries the newest generation. Deliveries carry increasing generations.
type Watcher struct {
	ctx     context.Context
	cancel  context.CancelFunc
	views   ConversationService
	deliver func(*domain.ConversationView)
	userID  string

	subs []feed.Subscription
	once sync.Once
	wg   sync.WaitGroup

	next atomic.Uint64 // last generation handed out

	runMu   sync.Mutex
	running bool // a recomputation loop is active, guarded by runMu
	pending bool // a change arrived during the running loop, guarded by runMu

	mu        sync.Mutex
	delivered uint64 // last generation delivered, guarded by mu
}

// Watch subscribes to the user's changes and delivers an initial view. It
// stops when ctx is done or Close is called; deliver is never called after
// that. deliver must not block.
func (l *LiveSync) Watch(ctx context.Context, userID string, deliver func(*domain.ConversationView)) *Watcher {
	wctx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		ctx:     wctx,
		cancel:  cancel,
		views:   l.views,
		deliver: deliver,
		userID:  userID,
	}

	onChange := func(feed.Change) { w.trigger() }
	w.subs = []feed.Subscription{
		l.feed.Subscribe(feed.AccountTopic(userID), onChange),
		l.feed.Subscribe(feed.ConversationsTopic(userID), onChange),
	}
	liveSyncWatchers.Inc()

	go func() {
		<-wctx.Done()
		w.Close()
	}()

	w.trigger()
	return w
}

// Close releases the subscriptions once and abandons in-flight
// recomputations. It must not be called from deliver.
func (w *Watcher) Close() {
	w.once.Do(func() {
		w.cancel()
		// wait out a delivery that is already running
		w.mu.Lock()
		w.mu.Unlock() //nolint:staticcheck
		for _, sub := range w.subs {
			sub.Unsubscribe()
		}
		liveSyncWatchers.Dec()
	})
}

// Done is closed once the watcher has stopped
func (w *Watcher) Done() <-chan struct{} {
	return w.ctx.Done()
}

// Wait blocks until every started recomputation has returned
func (w *Watcher) Wait() {
	w.wg.Wait()
}

// Refresh forces a recomputation
func (w *Watcher) Refresh() {
	w.trigger()
}

func (w *Watcher) trigger() {
	if w.ctx.Err() != nil {
		return
	}
	w.next.Add(1)

	w.runMu.Lock()
	defer w.runMu.Unlock()
	if w.running {
		w.pending = true
		return
	}
	w.running = true
	w.wg.Add(1)
	go w.run()
}

// run recomputes until no change is pending
func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		w.recompute(w.next.Load())

		w.runMu.Lock()
		if !w.pending || w.ctx.Err() != nil {
			w.running = false
			w.pending = false
			w.runMu.Unlock()
			return
		}
		w.pending = false
		w.runMu.Unlock()
		liveSyncCoalesced.Inc()
	}
}

func (w *Watcher) recompute(gen uint64) {
	view, err := w.views.BuildView(w.ctx, w.userID)
	if w.ctx.Err() != nil {
		return
	}
	if err != nil {
		liveSyncDeliveries.WithLabelValues("failed").Inc()
		pkglogger.GetLogger().Warn().
			Err(err).
			Str("user_id", w.userID).
			Uint64("generation", gen).
			Msg("live view recomputation failed")
		return
	}
	if view.Stale {
		// 이미 표시된 마지막 정상 목록 유지
		liveSyncDeliveries.WithLabelValues("failed").Inc()
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen <= w.delivered {
		liveSyncDeliveries.WithLabelValues("out_of_order").Inc()
		pkglogger.GetLogger().Debug().
			Str("user_id", w.userID).
			Uint64("generation", gen).
			Uint64("delivered", w.delivered).
			Msg("dropping out-of-order live view")
		return
	}
	if w.ctx.Err() != nil {
		return
	}
	w.delivered = gen
	view.Generation = gen
	liveSyncDeliveries.WithLabelValues("delivered").Inc()
	w.deliver(view)
}

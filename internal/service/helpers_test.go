package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testStore bundles sqlite-backed repositories sharing one change feed
type testStore struct {
	db            *gorm.DB
	broker        *feed.LocalBroker
	accounts      repository.AccountRepository
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
}

func newTestStore(t *testing.T) *testStore {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&domain.Account{}, &domain.Conversation{}, &domain.Message{}))

	broker := feed.NewLocalBroker()
	return &testStore{
		db:            db,
		broker:        broker,
		accounts:      repository.NewAccountRepository(db, broker),
		conversations: repository.NewConversationRepository(db, broker),
		messages:      repository.NewMessageRepository(db),
	}
}

// seed creates accounts; a trailing "!" marks private, a leading "@" organizer
func (s *testStore) seed(t *testing.T, specs ...string) {
	t.Helper()
	for _, spec := range specs {
		a := &domain.Account{}
		if spec[0] == '@' {
			a.IsOrganizer = true
			spec = spec[1:]
		}
		if spec[len(spec)-1] == '!' {
			a.IsPrivate = true
			spec = spec[:len(spec)-1]
		}
		a.ID = spec
		a.Nickname = spec
		_, err := s.accounts.Create(context.Background(), a)
		require.NoError(t, err)
	}
}

func (s *testStore) account(t *testing.T, id string) *domain.Account {
	t.Helper()
	a, err := s.accounts.FindByID(context.Background(), id)
	require.NoError(t, err)
	return a
}

// makeFriends writes a consistent friendship directly
func (s *testStore) makeFriends(t *testing.T, a, b string) {
	t.Helper()
	u := domain.PairUpdatesFor(a, b, domain.PairFriends)
	_, err := s.accounts.Apply(context.Background(), a, u.A)
	require.NoError(t, err)
	_, err = s.accounts.Apply(context.Background(), b, u.B)
	require.NoError(t, err)
}

type notification struct {
	UserID    string
	EventType string
	Payload   interface{}
}

// recordingNotifier keeps every notification
type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification
}

func (n *recordingNotifier) Notify(userID, eventType string, payload interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{UserID: userID, EventType: eventType, Payload: payload})
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, account *domain.Account) (bool, error) {
	args := m.Called(ctx, account)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountRepository) Apply(ctx context.Context, id string, update *domain.AccountUpdate) (*domain.Account, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

// MockConversationRepository is a mock implementation of ConversationRepository
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) FindByParticipant(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepository) Create(ctx context.Context, conv *domain.Conversation) (bool, error) {
	args := m.Called(ctx, conv)
	return args.Bool(0), args.Error(1)
}

func (m *MockConversationRepository) UpdateSummary(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// MockMessageRepository is a mock implementation of MessageRepository
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepository) Find(ctx context.Context, conversationID string, q domain.MessageQuery) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, q)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// flakyAccounts fails the first Apply for one account
type flakyAccounts struct {
	repository.AccountRepository
	failFor string
	failed  bool
}

func (f *flakyAccounts) Apply(ctx context.Context, id string, update *domain.AccountUpdate) (*domain.Account, error) {
	if id == f.failFor && !f.failed {
		f.failed = true
		return nil, errors.New("write timeout")
	}
	return f.AccountRepository.Apply(ctx, id, update)
}

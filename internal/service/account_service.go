package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/config"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/repository"
)

// AccountService account bootstrap and privacy settings
type AccountService interface {
	EnsureAccount(ctx context.Context, id, nickname string) (*domain.Account, error)
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	UpdateSettings(ctx context.Context, id string, req *domain.UpdateSettingsRequest) (*domain.Account, error)
}

type accountService struct {
	accounts repository.AccountRepository
	cfg      config.SocialConfig
}

// NewAccountService creates a new AccountService
func NewAccountService(accounts repository.AccountRepository, cfg config.SocialConfig) AccountService {
	return &accountService{accounts: accounts, cfg: cfg}
}

// EnsureAccount creates the account on first sign-in and returns it.
// Configured organizers get the flag on creation and on later sign-ins.
func (s *accountService) EnsureAccount(ctx context.Context, id, nickname string) (*domain.Account, error) {
	if !domain.ValidAccountID(id) {
		return nil, fmt.Errorf("account id %q: %w", id, common.ErrInvalidInput)
	}
	nickname = strings.TrimSpace(nickname)
	organizer := s.cfg.IsOrganizer(id)

	created, err := s.accounts.Create(ctx, &domain.Account{
		ID:          id,
		Nickname:    nickname,
		IsOrganizer: organizer,
	})
	if err != nil {
		return nil, err
	}
	if created {
		return s.accounts.FindByID(ctx, id)
	}

	account, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	update := &domain.AccountUpdate{}
	if organizer && !account.IsOrganizer {
		update.IsOrganizer = &organizer
	}
	if account.Nickname == "" && nickname != "" {
		update.Nickname = &nickname
	}
	if update.IsEmpty() {
		return account, nil
	}
	return s.accounts.Apply(ctx, id, update)
}

// GetAccount returns an account by ID
func (s *accountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.accounts.FindByID(ctx, id)
}

// UpdateSettings changes privacy and nickname. Friend sets are never touched.
func (s *accountService) UpdateSettings(ctx context.Context, id string, req *domain.UpdateSettingsRequest) (*domain.Account, error) {
	update := &domain.AccountUpdate{IsPrivate: req.IsPrivate}
	if req.Nickname != nil {
		nickname := strings.TrimSpace(*req.Nickname)
		if nickname == "" {
			return nil, fmt.Errorf("nickname: %w", common.ErrInvalidInput)
		}
		update.Nickname = &nickname
	}

	if update.IsEmpty() {
		return s.accounts.FindByID(ctx, id)
	}
	return s.accounts.Apply(ctx, id, update)
}

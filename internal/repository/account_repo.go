package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/common"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/feed"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AccountRepository account data access interface
type AccountRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
	FindByIDs(ctx context.Context, ids []string) ([]*domain.Account, error)
	Create(ctx context.Context, account *domain.Account) (bool, error)
	Apply(ctx context.Context, id string, update *domain.AccountUpdate) (*domain.Account, error)
}

type accountRepository struct {
	db  *gorm.DB
	pub feed.Publisher
}

// NewAccountRepository creates a new AccountRepository. Committed writes are
// announced on pub, which may be nil.
func NewAccountRepository(db *gorm.DB, pub feed.Publisher) AccountRepository {
	return &accountRepository{db: db, pub: pub}
}

// FindByID finds an account by ID
func (r *accountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	var account domain.Account
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("account %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// FindByIDs returns the accounts that exist among ids, in no particular order
func (r *accountRepository) FindByIDs(ctx context.Context, ids []string) ([]*domain.Account, error) {
	if len(ids) == 0 {
		return []*domain.Account{}, nil
	}
	var accounts []*domain.Account
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&accounts).Error
	return accounts, err
}

// Create inserts the account unless one with the same ID exists.
// It reports whether a row was inserted.
func (r *accountRepository) Create(ctx context.Context, account *domain.Account) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(account)
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	publish(ctx, r.pub, feed.AccountChanged(account.ID))
	return true, nil
}

// Apply merges update into the stored account under a row lock and returns
// the resulting record. Nothing is written when the merge changes nothing.
func (r *accountRepository) Apply(ctx context.Context, id string, update *domain.AccountUpdate) (*domain.Account, error) {
	var account domain.Account
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			First(&account).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("account %s: %w", id, common.ErrNotFound)
		}
		if err != nil {
			return err
		}

		if !update.ApplyTo(&account) {
			return nil
		}
		changed = true

		return tx.Model(&account).
			Select("friends", "sent_requests", "received_requests", "is_private", "is_organizer", "nickname", "updated_at").
			Updates(&account).Error
	})
	if err != nil {
		return nil, err
	}

	if changed {
		publish(ctx, r.pub, feed.AccountChanged(id))
	}
	return &account, nil
}

package migration

import (
	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Run executes AutoMigrate for the social tables and seeds the configured
// organizer accounts.
func Run(db *gorm.DB, organizerIDs []string) error {
	// 1. AutoMigrate - 테이블 없으면 생성, 있으면 컬럼/인덱스만 추가
	if err := db.AutoMigrate(
		&domain.Account{},
		&domain.Conversation{},
		&domain.Message{},
	); err != nil {
		return err
	}

	// 2. Seed - 운영자 계정이 없을 때만 생성
	return seedOrganizers(db, organizerIDs)
}

func seedOrganizers(db *gorm.DB, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	accounts := make([]domain.Account, 0, len(ids))
	for _, id := range ids {
		accounts = append(accounts, domain.Account{ID: id, Nickname: id, IsOrganizer: true})
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&accounts).Error; err != nil {
		return err
	}

	// 기존 계정은 플래그만 갱신
	return db.Model(&domain.Account{}).
		Where("id IN ? AND is_organizer = ?", ids, false).
		Update("is_organizer", true).Error
}

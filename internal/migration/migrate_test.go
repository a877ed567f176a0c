package migration

import (
	"testing"

	"github.com/SwanHacks2025/2025-swan-hacks-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestRun_CreatesTablesAndOrganizers(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&domain.Account{}))
	require.NoError(t, db.Create(&domain.Account{ID: "host", Nickname: "Host"}).Error)

	require.NoError(t, Run(db, []string{"host", "staff"}))
	// running twice is harmless
	require.NoError(t, Run(db, []string{"host", "staff"}))

	for _, table := range []string{"social_accounts", "social_conversations", "social_messages"} {
		assert.True(t, db.Migrator().HasTable(table), table)
	}

	var accounts []domain.Account
	require.NoError(t, db.Order("id").Find(&accounts).Error)
	require.Len(t, accounts, 2)
	for _, a := range accounts {
		assert.True(t, a.IsOrganizer, a.ID)
	}
	assert.Equal(t, "Host", accounts[0].Nickname, "existing accounts keep their profile")
}

package database_test

import (
	"testing"

	"societyhub/internal/infrastructure/database"
	"societyhub/internal/infrastructure/database/dbtest"
	"societyhub/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := dbtest.New(t)

	for _, m := range database.Models() {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
	assert.True(t, db.Migrator().HasIndex(&model.Account{}, "uk_house"))
	assert.True(t, db.Migrator().HasIndex(&model.Earning{}, "PaymentID"))
}

func TestGormConfig_UTCNow(t *testing.T) {
	cfg := database.GormConfig(logger.Silent)
	require.NotNil(t, cfg.NowFunc)
	assert.Equal(t, "UTC", cfg.NowFunc().Location().String())
	assert.True(t, cfg.TranslateError)
}

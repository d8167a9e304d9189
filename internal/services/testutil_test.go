package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	require.NoError(t, err)
	t.Cleanup(log.Sync)
	return log
}

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.User{},
		&types.UserToken{},
		&types.AIModel{},
		&types.ChatRoom{},
		&types.ChatMessage{},
		&types.Generation{},
		&types.TokenClaim{},
		&types.Follow{},
	))
	return db
}

func seedUser(t *testing.T, db *gorm.DB, balance int) *types.User {
	t.Helper()
	user := &types.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		Password:     "x",
		Name:         "Test User",
		TokenBalance: balance,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedModel(t *testing.T, db *gorm.DB, ownerID uuid.UUID, private bool) *types.AIModel {
	t.Helper()
	model := &types.AIModel{
		ID:          uuid.New(),
		UserID:      ownerID,
		Name:        "Luna",
		Personality: "warm, curious",
		Status:      types.AIModelStatusCompleted,
		IsPrivate:   private,
	}
	require.NoError(t, db.Create(model).Error)
	return model
}

package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

func newModelFixture(t *testing.T) (ModelService, *gorm.DB, repos.AIModelRepo) {
	t.Helper()
	db := testDB(t)
	log := testLogger(t)
	modelRepo := repos.NewAIModelRepo(db, log)
	followRepo := repos.NewFollowRepo(db, log)
	return NewModelService(db, log, modelRepo, followRepo), db, modelRepo
}

func TestGetForUserHidesPrivate(t *testing.T) {
	svc, db, _ := newModelFixture(t)
	owner := seedUser(t, db, 0)
	stranger := seedUser(t, db, 0)
	model := seedModel(t, db, owner.ID, true)
	ctx := context.Background()

	_, err := svc.GetForUser(ctx, stranger.ID, model.ID)
	assert.ErrorIs(t, err, ErrModelNotFound)

	got, err := svc.GetForUser(ctx, owner.ID, model.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ID, got.ID)
}

func TestDeleteOwnedRejectsStranger(t *testing.T) {
	svc, db, modelRepo := newModelFixture(t)
	owner := seedUser(t, db, 0)
	stranger := seedUser(t, db, 0)
	model := seedModel(t, db, owner.ID, false)
	ctx := context.Background()

	err := svc.DeleteOwned(ctx, stranger.ID, model.ID)
	assert.ErrorIs(t, err, ErrModelNotOwned)

	require.NoError(t, svc.DeleteOwned(ctx, owner.ID, model.ID))
	_, err = modelRepo.GetByID(ctx, nil, model.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestFollowBumpsCounter(t *testing.T) {
	svc, db, modelRepo := newModelFixture(t)
	owner := seedUser(t, db, 0)
	fan := seedUser(t, db, 0)
	model := seedModel(t, db, owner.ID, false)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, fan.ID, model.ID))
	after, err := modelRepo.GetByID(ctx, nil, model.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.FollowersCount)

	// double follow is a conflict, counter stays put
	err = svc.Follow(ctx, fan.ID, model.ID)
	assert.ErrorIs(t, err, ErrAlreadyFollowed)
	after, err = modelRepo.GetByID(ctx, nil, model.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.FollowersCount)
}

func TestUnfollowRestoresCounter(t *testing.T) {
	svc, db, modelRepo := newModelFixture(t)
	owner := seedUser(t, db, 0)
	fan := seedUser(t, db, 0)
	model := seedModel(t, db, owner.ID, false)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, fan.ID, model.ID))
	require.NoError(t, svc.Unfollow(ctx, fan.ID, model.ID))

	after, err := modelRepo.GetByID(ctx, nil, model.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.FollowersCount)

	err = svc.Unfollow(ctx, fan.ID, model.ID)
	assert.ErrorIs(t, err, ErrNotFollowed)
}

func TestListPublicSkipsPrivate(t *testing.T) {
	svc, db, _ := newModelFixture(t)
	owner := seedUser(t, db, 0)
	seedModel(t, db, owner.ID, false)
	seedModel(t, db, owner.ID, true)
	ctx := context.Background()

	models, err := svc.ListPublic(ctx, 20, 0)
	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.False(t, models[0].IsPrivate)
	assert.Equal(t, types.AIModelStatusCompleted, models[0].Status)
}

package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

func newClaimFixture(t *testing.T) (ClaimService, *gorm.DB, repos.UserRepo) {
	t.Helper()
	db := testDB(t)
	log := testLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	genRepo := repos.NewGenerationRepo(db, log)
	claimRepo := repos.NewTokenClaimRepo(db, log)
	ledger := NewLedgerService(db, log, userRepo, genRepo)
	return NewClaimService(db, log, claimRepo, ledger), db, userRepo
}

func seedClaim(t *testing.T, db *gorm.DB, code string, amount int) *types.TokenClaim {
	t.Helper()
	claim := &types.TokenClaim{
		ID:     uuid.New(),
		Code:   code,
		Amount: amount,
	}
	require.NoError(t, db.Create(claim).Error)
	return claim
}

func TestClaimCreditsBalance(t *testing.T) {
	svc, db, userRepo := newClaimFixture(t)
	user := seedUser(t, db, 10)
	seedClaim(t, db, "WELCOME500", 500)
	ctx := context.Background()

	claim, err := svc.Claim(ctx, "WELCOME500", user.ID)
	require.NoError(t, err)
	assert.True(t, claim.Claimed)
	require.NotNil(t, claim.ClaimedByID)
	assert.Equal(t, user.ID, *claim.ClaimedByID)

	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 510, after.TokenBalance)
}

func TestClaimTwiceFails(t *testing.T) {
	svc, db, userRepo := newClaimFixture(t)
	first := seedUser(t, db, 0)
	second := seedUser(t, db, 0)
	seedClaim(t, db, "ONCE", 100)
	ctx := context.Background()

	_, err := svc.Claim(ctx, "ONCE", first.ID)
	require.NoError(t, err)

	_, err = svc.Claim(ctx, "ONCE", second.ID)
	assert.ErrorIs(t, err, ErrClaimInvalid)

	// no credit for the loser
	after, err := userRepo.GetByID(ctx, nil, second.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TokenBalance)
}

func TestClaimUnknownCode(t *testing.T) {
	svc, db, _ := newClaimFixture(t)
	user := seedUser(t, db, 0)
	_, err := svc.Claim(context.Background(), "NO-SUCH-CODE", user.ID)
	assert.ErrorIs(t, err, ErrClaimInvalid)
}

func TestClaimEmptyCode(t *testing.T) {
	svc, db, _ := newClaimFixture(t)
	user := seedUser(t, db, 0)
	_, err := svc.Claim(context.Background(), "   ", user.ID)
	assert.ErrorIs(t, err, ErrClaimInvalid)
}

func TestGetByCodePreservesClaimedFlag(t *testing.T) {
	svc, db, _ := newClaimFixture(t)
	user := seedUser(t, db, 0)
	seedClaim(t, db, "PEEK", 50)
	ctx := context.Background()

	before, err := svc.GetByCode(ctx, "PEEK")
	require.NoError(t, err)
	assert.False(t, before.Claimed)

	_, err = svc.Claim(ctx, "PEEK", user.ID)
	require.NoError(t, err)

	after, err := svc.GetByCode(ctx, "PEEK")
	require.NoError(t, err)
	assert.True(t, after.Claimed)
}

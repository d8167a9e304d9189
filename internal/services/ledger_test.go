package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

func newLedger(t *testing.T) (LedgerService, *gorm.DB, repos.UserRepo, repos.GenerationRepo) {
	t.Helper()
	db := testDB(t)
	log := testLogger(t)
	userRepo := repos.NewUserRepo(db, log)
	genRepo := repos.NewGenerationRepo(db, log)
	return NewLedgerService(db, log, userRepo, genRepo), db, userRepo, genRepo
}

func TestDeductWritesAuditRow(t *testing.T) {
	ledger, db, userRepo, _ := newLedger(t)
	user := seedUser(t, db, 1000)
	ctx := context.Background()

	gen, err := ledger.Deduct(ctx, user.ID, types.GenerationTypeChat, "hello")
	require.NoError(t, err)
	assert.Equal(t, types.GenerationTypeChat, gen.Type)
	assert.Equal(t, 1, gen.Cost)
	assert.Equal(t, types.GenerationStatusPending, gen.Status)

	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 999, after.TokenBalance)
}

func TestDeductPriceTable(t *testing.T) {
	ledger, db, userRepo, _ := newLedger(t)
	user := seedUser(t, db, 1000)
	ctx := context.Background()

	_, err := ledger.Deduct(ctx, user.ID, types.GenerationTypeImage, "a sunset")
	require.NoError(t, err)
	_, err = ledger.Deduct(ctx, user.ID, types.GenerationTypeCharacter, "a pirate")
	require.NoError(t, err)

	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000-100-500, after.TokenBalance)
}

func TestDeductInsufficientBalance(t *testing.T) {
	ledger, db, userRepo, genRepo := newLedger(t)
	broke := seedUser(t, db, 50)
	ctx := context.Background()

	gen, err := ledger.Deduct(ctx, broke.ID, types.GenerationTypeImage, "too pricey")
	assert.ErrorIs(t, err, ErrInsufficientTokens)
	assert.Nil(t, gen)

	// balance untouched and no audit row left behind
	after, err := userRepo.GetByID(ctx, nil, broke.ID)
	require.NoError(t, err)
	assert.Equal(t, 50, after.TokenBalance)
	gens, err := genRepo.ListByUser(ctx, nil, broke.ID, 10)
	require.NoError(t, err)
	assert.Empty(t, gens)
}

func TestDeductExactBalance(t *testing.T) {
	ledger, db, userRepo, _ := newLedger(t)
	user := seedUser(t, db, 100)
	ctx := context.Background()

	_, err := ledger.Deduct(ctx, user.ID, types.GenerationTypeImage, "spend it all")
	require.NoError(t, err)

	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TokenBalance)

	_, err = ledger.Deduct(ctx, user.ID, types.GenerationTypeChat, "one more")
	assert.ErrorIs(t, err, ErrInsufficientTokens)
}

func TestDeductUnknownType(t *testing.T) {
	ledger, db, _, _ := newLedger(t)
	user := seedUser(t, db, 1000)
	_, err := ledger.Deduct(context.Background(), user.ID, types.GenerationType("VIDEO"), "nope")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInsufficientTokens)
}

func TestCreditRejectsNonPositive(t *testing.T) {
	ledger, db, _, _ := newLedger(t)
	user := seedUser(t, db, 0)
	assert.Error(t, ledger.Credit(context.Background(), nil, user.ID, 0))
	assert.Error(t, ledger.Credit(context.Background(), nil, user.ID, -5))
}

func TestCreditAddsBalance(t *testing.T) {
	ledger, db, userRepo, _ := newLedger(t)
	user := seedUser(t, db, 1000)
	ctx := context.Background()

	require.NoError(t, ledger.Credit(ctx, nil, user.ID, 250))
	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1250, after.TokenBalance)
}

func TestConcurrentDeductsNeverOverdraw(t *testing.T) {
	ledger, db, userRepo, genRepo := newLedger(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	user := seedUser(t, db, 500)
	ctx := context.Background()

	const attempts = 20
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = ledger.Deduct(ctx, user.ID, types.GenerationTypeImage, "racing")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, dErr := range errs {
		switch {
		case dErr == nil:
			succeeded++
		default:
			assert.ErrorIs(t, dErr, ErrInsufficientTokens)
		}
	}
	assert.Equal(t, 5, succeeded)

	after, err := userRepo.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.TokenBalance)
	assert.GreaterOrEqual(t, after.TokenBalance, 0)

	gens, err := genRepo.ListByUser(ctx, nil, user.ID, 100)
	require.NoError(t, err)
	assert.Len(t, gens, 5)
}

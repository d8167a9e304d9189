package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

// TokenPrices is the fixed price table for credit-consuming actions.
var TokenPrices = map[types.GenerationType]int{
	types.GenerationTypeChat:      1,
	types.GenerationTypeImage:     100,
	types.GenerationTypeCharacter: 500,
}

// ErrInsufficientTokens is a normal negative result, surfaced as 402 with a
// purchase hint; it must never be wrapped into a 500.
var ErrInsufficientTokens = errors.New("insufficient tokens")

type LedgerService interface {
	CheckBalance(ctx context.Context, userID uuid.UUID, genType types.GenerationType) (bool, error)
	Deduct(ctx context.Context, userID uuid.UUID, genType types.GenerationType, prompt string) (*types.Generation, error)
	Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) error
}

type ledgerService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	generationRepo repos.GenerationRepo
}

func NewLedgerService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo, generationRepo repos.GenerationRepo) LedgerService {
	return &ledgerService{
		db:             db,
		log:            log.With("service", "LedgerService"),
		userRepo:       userRepo,
		generationRepo: generationRepo,
	}
}

func (ls *ledgerService) CheckBalance(ctx context.Context, userID uuid.UUID, genType types.GenerationType) (bool, error) {
	cost, ok := TokenPrices[genType]
	if !ok {
		return false, fmt.Errorf("unknown generation type: %s", genType)
	}
	user, err := ls.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		return false, fmt.Errorf("Failed to load user for balance check: %w", err)
	}
	return user.TokenBalance >= cost, nil
}

// Deduct decrements the balance and writes the Generation audit row in one
// transaction. The decrement re-checks the balance inside the transaction,
// so concurrent deductions can never drive it negative. No retries: a failed
// deduction must not silently consume a generation.
func (ls *ledgerService) Deduct(ctx context.Context, userID uuid.UUID, genType types.GenerationType, prompt string) (*types.Generation, error) {
	cost, ok := TokenPrices[genType]
	if !ok {
		return nil, fmt.Errorf("unknown generation type: %s", genType)
	}

	var gen *types.Generation
	err := ls.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		deducted, dErr := ls.userRepo.DeductTokenBalance(ctx, tx, userID, cost)
		if dErr != nil {
			return fmt.Errorf("Failed to deduct token balance: %w", dErr)
		}
		if !deducted {
			return ErrInsufficientTokens
		}
		g := &types.Generation{
			ID:     uuid.New(),
			UserID: userID,
			Type:   genType,
			Prompt: prompt,
			Cost:   cost,
			Status: types.GenerationStatusPending,
		}
		created, cErr := ls.generationRepo.Create(ctx, tx, []*types.Generation{g})
		if cErr != nil {
			return fmt.Errorf("Failed to create generation record: %w", cErr)
		}
		gen = created[0]
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrInsufficientTokens) {
			ls.log.Warn("Token deduction failed", "user_id", userID, "type", genType, "error", err)
		}
		return nil, err
	}
	return gen, nil
}

func (ls *ledgerService) Credit(ctx context.Context, tx *gorm.DB, userID uuid.UUID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if err := ls.userRepo.AddTokenBalance(ctx, tx, userID, amount); err != nil {
		return fmt.Errorf("Failed to credit token balance: %w", err)
	}
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

// ErrClaimInvalid covers unknown codes and codes already redeemed. The two
// cases are deliberately indistinguishable to callers so responses do not
// leak which codes exist.
var ErrClaimInvalid = errors.New("invalid or already used code")

type ClaimService interface {
	GetByCode(ctx context.Context, code string) (*types.TokenClaim, error)
	Claim(ctx context.Context, code string, userID uuid.UUID) (*types.TokenClaim, error)
}

type claimService struct {
	db        *gorm.DB
	log       *logger.Logger
	claimRepo repos.TokenClaimRepo
	ledger    LedgerService
}

func NewClaimService(db *gorm.DB, log *logger.Logger, claimRepo repos.TokenClaimRepo, ledger LedgerService) ClaimService {
	return &claimService{
		db:        db,
		log:       log.With("service", "ClaimService"),
		claimRepo: claimRepo,
		ledger:    ledger,
	}
}

func (s *claimService) GetByCode(ctx context.Context, code string) (*types.TokenClaim, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrClaimInvalid
	}
	claim, err := s.claimRepo.GetByCode(ctx, nil, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimInvalid
		}
		return nil, fmt.Errorf("Failed to load claim: %w", err)
	}
	return claim, nil
}

// Claim flips the code to claimed and credits the balance in one
// transaction. The flip is a guarded update on claimed=false, so a code
// redeemed concurrently fails cleanly instead of double-crediting.
func (s *claimService) Claim(ctx context.Context, code string, userID uuid.UUID) (*types.TokenClaim, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrClaimInvalid
	}

	var claim *types.TokenClaim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flipped, err := s.claimRepo.MarkClaimed(ctx, tx, code, userID)
		if err != nil {
			return fmt.Errorf("Failed to mark claim used: %w", err)
		}
		if !flipped {
			return ErrClaimInvalid
		}
		claim, err = s.claimRepo.GetByCode(ctx, tx, code)
		if err != nil {
			return fmt.Errorf("Failed to reload claim: %w", err)
		}
		if err := s.ledger.Credit(ctx, tx, userID, claim.Amount); err != nil {
			return fmt.Errorf("Failed to credit claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Token claim redeemed", "claim_id", claim.ID, "user_id", userID, "amount", claim.Amount)
	return claim, nil
}

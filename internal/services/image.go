package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mirelia/companion-backend/internal/logger"
	"github.com/mirelia/companion-backend/internal/repos"
	"github.com/mirelia/companion-backend/internal/types"
)

type ImageService interface {
	// Generate debits the image price, runs the generation, and records the
	// outcome on the generation row. The debit is not refunded on failure.
	Generate(ctx context.Context, userID uuid.UUID, prompt string) (*types.Generation, error)
	ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Generation, error)
}

type imageService struct {
	log     *logger.Logger
	ledger  LedgerService
	genRepo repos.GenerationRepo
	ai      AIClient
}

func NewImageService(log *logger.Logger, ledger LedgerService, genRepo repos.GenerationRepo, ai AIClient) ImageService {
	return &imageService{
		log:     log.With("service", "ImageService"),
		ledger:  ledger,
		genRepo: genRepo,
		ai:      ai,
	}
}

func (s *imageService) Generate(ctx context.Context, userID uuid.UUID, prompt string) (*types.Generation, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("empty prompt")
	}

	gen, err := s.ledger.Deduct(ctx, userID, types.GenerationTypeImage, prompt)
	if err != nil {
		return nil, err
	}

	url, aiErr := s.ai.GenerateImage(ctx, prompt)
	if aiErr != nil {
		s.log.Error("Image generation failed", "generation_id", gen.ID, "error", aiErr)
		if uErr := s.genRepo.UpdateFields(ctx, nil, gen.ID, map[string]interface{}{
			"status": types.GenerationStatusFailed,
			"result": aiErr.Error(),
		}); uErr != nil {
			s.log.Error("Failed to mark generation failed", "generation_id", gen.ID, "error", uErr)
		}
		return nil, fmt.Errorf("Failed to generate image: %w", aiErr)
	}

	if err := s.genRepo.UpdateFields(ctx, nil, gen.ID, map[string]interface{}{
		"status": types.GenerationStatusCompleted,
		"result": url,
	}); err != nil {
		return nil, fmt.Errorf("Failed to record generation result: %w", err)
	}
	return s.genRepo.GetByID(ctx, nil, gen.ID)
}

func (s *imageService) ListHistory(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Generation, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.genRepo.ListByUser(ctx, nil, userID, limit)
}

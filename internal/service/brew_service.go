package service

import (
	"context"

	"github.com/kbalyzer/kbalyzer-api/internal/domain"
	"github.com/kbalyzer/kbalyzer-api/internal/repository"
	apperrors "github.com/kbalyzer/kbalyzer-api/pkg/util"
)

// BrewService lists brews.
type BrewService struct {
	brews repository.BrewRepository
}

// NewBrewService wires a brew service.
func NewBrewService(brews repository.BrewRepository) *BrewService {
	return &BrewService{brews: brews}
}

// List returns one page of brews and the total count.
func (s *BrewService) List(ctx context.Context, page domain.Page) ([]domain.Brew, int64, error) {
	brews, err := s.brews.List(ctx, page)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	total, err := s.brews.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.NewInternalError(err)
	}
	return brews, total, nil
}

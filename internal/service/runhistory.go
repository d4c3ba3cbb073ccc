package service

import (
	"context"

	"smart_irrigation/internal/models"
	"smart_irrigation/internal/repository"
)

const maxRunListLimit = 500

// RunHistoryService exposes past pump runs for reporting consumers.
type RunHistoryService struct {
	runRepo repository.RunRepo
}

func NewRunHistoryService(runRepo repository.RunRepo) *RunHistoryService {
	return &RunHistoryService{runRepo: runRepo}
}

// Recent returns the newest runs, capped to a sane limit.
func (s *RunHistoryService) Recent(ctx context.Context, limit int) ([]models.IrrigationRun, error) {
	if limit <= 0 || limit > maxRunListLimit {
		limit = 50
	}
	return s.runRepo.List(ctx, limit)
}

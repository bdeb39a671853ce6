package report

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/core/storage"

	"go.uber.org/zap"
)

const defaultLimit = 20

// Archive is the report store.
type Archive interface {
	List(ctx context.Context, limit int) ([]storage.ObjectEntry, error)
	Load(ctx context.Context, key string) ([]byte, error)
}

// Service browses archived run reports.
type Service struct {
	archive Archive
	logger  *zap.Logger
}

// NewService creates a new report service.
func NewService(archive Archive, logger *zap.Logger) *Service {
	return &Service{archive: archive, logger: logger}
}

// List returns the most recent reports.
func (s *Service) List(ctx context.Context, limit int) ([]storage.ObjectEntry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	entries, err := s.archive.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []storage.ObjectEntry{}
	}
	return entries, nil
}

// Get returns the raw JSON of one report.
func (s *Service) Get(ctx context.Context, key string) ([]byte, error) {
	return s.archive.Load(ctx, key)
}

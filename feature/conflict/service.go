package conflict

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"

	"go.uber.org/zap"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Store is the conflict log.
type Store interface {
	ListConflicts(ctx context.Context, f mapping.ConflictFilter) ([]mapping.ConflictRecord, int64, error)
	GetConflict(ctx context.Context, id uint) (*mapping.ConflictRecord, error)
	ResolveConflict(ctx context.Context, id uint, resolution mapping.Resolution) (*mapping.ConflictRecord, error)
}

// Page is one page of conflicts.
type Page struct {
	Items  []mapping.ConflictRecord `json:"items"`
	Total  int64                    `json:"total"`
	Limit  int                      `json:"limit"`
	Offset int                      `json:"offset"`
}

// Service reads and settles conflicts.
type Service struct {
	store  Store
	logger *zap.Logger
}

// NewService creates a new conflict service.
func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// List returns a page of conflicts, newest first.
func (s *Service) List(ctx context.Context, entityType string, resolved *bool, limit, offset int) (*Page, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := s.store.ListConflicts(ctx, mapping.ConflictFilter{
		EntityType: reconcile.EntityType(entityType),
		Resolved:   resolved,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []mapping.ConflictRecord{}
	}
	return &Page{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Get returns a conflict by id.
func (s *Service) Get(ctx context.Context, id uint) (*mapping.ConflictRecord, error) {
	return s.store.GetConflict(ctx, id)
}

// Resolve settles a conflict.
func (s *Service) Resolve(ctx context.Context, id uint, resolution mapping.Resolution) (*mapping.ConflictRecord, error) {
	rec, err := s.store.ResolveConflict(ctx, id, resolution)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Conflict resolved",
		zap.Uint("id", rec.ID),
		zap.String("entity_type", rec.EntityType),
		zap.String("local_key", rec.LocalKey),
		zap.String("field", rec.FieldName),
		zap.String("resolution", string(resolution)),
	)
	return rec, nil
}

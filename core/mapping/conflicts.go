package mapping

import (
	"context"
	"errors"
	"fmt"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"

	"gorm.io/gorm/clause"
)

// Resolution is how an operator settled a conflict.
type Resolution string

const (
	// ResolutionKeepStored keeps the stored value; the incoming value will not be raised again.
	ResolutionKeepStored Resolution = "keep_stored"
	// ResolutionApplyIncoming writes the incoming value to the mapping row.
	ResolutionApplyIncoming Resolution = "apply_incoming"
)

// Valid reports whether r is a known resolution.
func (r Resolution) Valid() bool {
	return r == ResolutionKeepStored || r == ResolutionApplyIncoming
}

var (
	// ErrConflictNotFound is returned when no conflict has the requested id.
	ErrConflictNotFound = errors.New("conflict not found")
	// ErrConflictResolved is returned when resolving an already resolved conflict.
	ErrConflictResolved = errors.New("conflict already resolved")
	// ErrInvalidResolution is returned for unknown resolutions.
	ErrInvalidResolution = errors.New("invalid resolution")
	// ErrFieldNotWritable is returned when a conflict field is outside the profile whitelist.
	ErrFieldNotWritable = errors.New("field is not writable")
)

// ConflictFilter narrows ListConflicts.
type ConflictFilter struct {
	EntityType reconcile.EntityType
	LocalKey   string
	Resolved   *bool
	Limit      int
	Offset     int
}

// RecordConflict appends a conflict to the log. An identical unresolved conflict
// makes the call a no-op, and prior unresolved conflicts are never rewritten.
func (s *Store) RecordConflict(ctx context.Context, c reconcile.Conflict) error {
	rec := toRecord(c)

	q := s.db.WithContext(ctx).Model(&ConflictRecord{}).
		Where("entity_type = ? AND local_key = ? AND field_name = ? AND resolved = ?", rec.EntityType, rec.LocalKey, rec.FieldName, false).
		Where(clause.Eq{Column: clause.Column{Name: "value_a"}, Value: nullString(rec.ValueA)}).
		Where(clause.Eq{Column: clause.Column{Name: "value_b"}, Value: nullString(rec.ValueB)})

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up conflict: %w", err)
	}
	if count > 0 {
		return nil
	}

	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to record conflict: %w", err)
	}
	return nil
}

// ResolvedConflicts lists the settled conflicts of an entity type.
func (s *Store) ResolvedConflicts(ctx context.Context, t reconcile.EntityType) ([]reconcile.Conflict, error) {
	var recs []ConflictRecord
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND resolved = ?", string(t), true).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list resolved conflicts: %w", err)
	}

	out := make([]reconcile.Conflict, 0, len(recs))
	for _, r := range recs {
		out = append(out, fromRecord(r))
	}
	return out, nil
}

// ListConflicts returns a page of conflicts, newest first, with the total count.
func (s *Store) ListConflicts(ctx context.Context, f ConflictFilter) ([]ConflictRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&ConflictRecord{})
	if f.EntityType != "" {
		q = q.Where("entity_type = ?", string(f.EntityType))
	}
	if f.LocalKey != "" {
		q = q.Where("local_key = ?", f.LocalKey)
	}
	if f.Resolved != nil {
		q = q.Where("resolved = ?", *f.Resolved)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count conflicts: %w", err)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	var recs []ConflictRecord
	if err := q.Order("id DESC").Limit(limit).Offset(f.Offset).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return recs, total, nil
}

// GetConflict returns a conflict by id.
func (s *Store) GetConflict(ctx context.Context, id uint) (*ConflictRecord, error) {
	var rec ConflictRecord
	if err := s.db.WithContext(ctx).First(&rec, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrConflictNotFound
		}
		return nil, fmt.Errorf("failed to load conflict %d: %w", id, err)
	}
	return &rec, nil
}

// ResolveConflict settles a conflict. With apply_incoming the incoming value is
// first written to the mapping row through the whitelist.
func (s *Store) ResolveConflict(ctx context.Context, id uint, resolution Resolution) (*ConflictRecord, error) {
	if !resolution.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidResolution, resolution)
	}

	rec, err := s.GetConflict(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Resolved {
		return nil, ErrConflictResolved
	}

	if resolution == ResolutionApplyIncoming {
		t := reconcile.EntityType(rec.EntityType)
		p, err := s.Profile(t)
		if err != nil {
			return nil, err
		}
		if _, ok := p.Columns[rec.FieldName]; !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrFieldNotWritable, rec.EntityType, rec.FieldName)
		}
		var value any
		if rec.ValueB != nil {
			value = *rec.ValueB
		}
		if err := s.UpdateFields(ctx, t, rec.LocalKey, map[string]any{rec.FieldName: value}); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	res := string(resolution)
	err = s.db.WithContext(ctx).Model(&ConflictRecord{}).
		Where("id = ? AND resolved = ?", rec.ID, false).
		Updates(map[string]any{"resolved": true, "resolved_at": now, "resolution": res}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict %d: %w", id, err)
	}

	rec.Resolved = true
	rec.ResolvedAt = &now
	rec.Resolution = &res
	return rec, nil
}

func toRecord(c reconcile.Conflict) ConflictRecord {
	return ConflictRecord{
		EntityType: string(c.EntityType),
		LocalKey:   c.LocalKey,
		FieldName:  c.FieldName,
		ValueA:     stringPtr(c.ValueA),
		ValueB:     stringPtr(c.ValueB),
		DetectedAt: c.DetectedAt,
		Resolved:   c.Resolved,
	}
}

func fromRecord(r ConflictRecord) reconcile.Conflict {
	c := reconcile.Conflict{
		ID:         r.ID,
		EntityType: reconcile.EntityType(r.EntityType),
		LocalKey:   r.LocalKey,
		FieldName:  r.FieldName,
		DetectedAt: r.DetectedAt,
		Resolved:   r.Resolved,
	}
	if r.ValueA != nil {
		c.ValueA = *r.ValueA
	}
	if r.ValueB != nil {
		c.ValueB = *r.ValueB
	}
	return c
}

func stringPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := utils.ToString(v)
	return &s
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

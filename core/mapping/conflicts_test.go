package mapping

import (
	"context"
	"testing"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSiteConflict(t *testing.T, s *Store) reconcile.Conflict {
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, reconcile.EntitySite, []reconcile.Entity{
		{KeyA: "S1", KeyB: "10", Fields: map[string]any{"name": "Stored name"}},
	}))
	c := reconcile.Conflict{
		EntityType: reconcile.EntitySite,
		LocalKey:   "1",
		FieldName:  "name",
		ValueA:     "Stored name",
		ValueB:     "Incoming name",
		DetectedAt: testNow,
	}
	require.NoError(t, s.RecordConflict(ctx, c))
	return c
}

func TestRecordConflict_IdenticalUnresolvedIsNoop(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	c := seedSiteConflict(t, s)

	require.NoError(t, s.RecordConflict(ctx, c))

	var count int64
	require.NoError(t, s.DB().Model(&ConflictRecord{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// A different incoming value is a new conflict; the first one stays untouched
	c.ValueB = "Another name"
	require.NoError(t, s.RecordConflict(ctx, c))
	require.NoError(t, s.DB().Model(&ConflictRecord{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	first, err := s.GetConflict(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Incoming name", *first.ValueB)
	assert.False(t, first.Resolved)
}

func TestRecordConflict_NullValues(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	c := reconcile.Conflict{EntityType: reconcile.EntityTicket, LocalKey: "4", FieldName: "priority", ValueB: "high", DetectedAt: testNow}
	require.NoError(t, s.RecordConflict(ctx, c))
	require.NoError(t, s.RecordConflict(ctx, c))

	recs, total, err := s.ListConflicts(ctx, ConflictFilter{EntityType: reconcile.EntityTicket})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, recs, 1)
	assert.Nil(t, recs[0].ValueA)
}

func TestResolveConflict_KeepStored(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	c := seedSiteConflict(t, s)

	rec, err := s.ResolveConflict(ctx, 1, ResolutionKeepStored)
	require.NoError(t, err)
	assert.True(t, rec.Resolved)
	assert.Equal(t, "keep_stored", *rec.Resolution)

	sites, _ := s.Fetch(ctx, reconcile.EntitySite)
	assert.Equal(t, "Stored name", sites[0].Fields["name"])

	resolved, err := s.ResolvedConflicts(ctx, reconcile.EntitySite)
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, c.Signature(), resolved[0].Signature())

	_, err = s.ResolveConflict(ctx, 1, ResolutionApplyIncoming)
	assert.ErrorIs(t, err, ErrConflictResolved)
}

func TestResolveConflict_ApplyIncoming(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)
	seedSiteConflict(t, s)

	_, err := s.ResolveConflict(ctx, 1, ResolutionApplyIncoming)
	require.NoError(t, err)

	sites, _ := s.Fetch(ctx, reconcile.EntitySite)
	assert.Equal(t, "Incoming name", sites[0].Fields["name"])

	open := false
	recs, total, err := s.ListConflicts(ctx, ConflictFilter{Resolved: &open})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, recs)
}

func TestResolveConflict_Errors(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	_, err := s.ResolveConflict(ctx, 99, ResolutionKeepStored)
	assert.ErrorIs(t, err, ErrConflictNotFound)

	_, err = s.ResolveConflict(ctx, 1, "merge")
	assert.ErrorIs(t, err, ErrInvalidResolution)

	require.NoError(t, s.RecordConflict(ctx, reconcile.Conflict{
		EntityType: reconcile.EntitySite, LocalKey: "1", FieldName: "category_name", ValueB: "x", DetectedAt: testNow,
	}))
	_, err = s.ResolveConflict(ctx, 1, ResolutionApplyIncoming)
	assert.ErrorIs(t, err, ErrFieldNotWritable)
}

func TestListConflicts_Paging(t *testing.T) {
	ctx := context.Background()
	s := setupStore(t)

	for _, key := range []string{"1", "2", "3"} {
		require.NoError(t, s.RecordConflict(ctx, reconcile.Conflict{
			EntityType: reconcile.EntityEquipment, LocalKey: key, FieldName: "model", ValueA: "a", ValueB: "b", DetectedAt: testNow,
		}))
	}

	recs, total, err := s.ListConflicts(ctx, ConflictFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, recs, 2)
	assert.Equal(t, "3", recs[0].LocalKey, "newest first")

	recs, _, err = s.ListConflicts(ctx, ConflictFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "1", recs[0].LocalKey)

	recs, total, err = s.ListConflicts(ctx, ConflictFilter{LocalKey: "2"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "2", recs[0].LocalKey)
}

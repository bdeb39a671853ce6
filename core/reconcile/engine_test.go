package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff_AddsNewRecord(t *testing.T) {
	existing := []Entity{site("1", "Site A")}
	incoming := []Entity{site("1", "Site A"), site("2", "Site B")}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)

	require.Len(t, d.ToAdd, 1)
	assert.Equal(t, "2", d.ToAdd[0].KeyA)
	assert.Empty(t, d.ToUpdate)
	assert.Empty(t, d.ToObsolete)
	assert.Len(t, d.Unchanged, 1)
}

func TestDiff_ObsoletesMissingRecord(t *testing.T) {
	store := newMemStore(ByKeyA, Entity{Type: EntityTicket, KeyA: "1", Fields: map[string]any{"status": "Open"}})
	existing, _ := store.Fetch(context.Background(), EntityTicket)

	d, err := Diff(existing, nil, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	require.Len(t, d.ToObsolete, 1)
	assert.Equal(t, "1", d.ToObsolete[0].KeyA)

	plan, err := BuildPlan(&Pipeline{Type: EntityTicket, Key: ByKeyA}, PlanInput{Existing: existing})
	require.NoError(t, err)
	_, err = ApplyPlan(context.Background(), store, plan, ReconcileOptions{})
	require.NoError(t, err)

	row := store.rows["1"]
	assert.True(t, row.IsObsolete, "record stays in the store, soft-deleted")
	assert.NotNil(t, row.ObsoleteAt)
	assert.Equal(t, "Open", row.Fields["status"])
}

func TestDiff_Update(t *testing.T) {
	existing := []Entity{{Type: EntitySite, LocalKey: "10", KeyA: "1", Fields: map[string]any{"name": "Old", "kwp": 99.5}}}
	incoming := []Entity{{Type: EntitySite, KeyA: "1", Fields: map[string]any{"name": "New", "kwp": "99.5"}}}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	require.Len(t, d.ToUpdate, 1)

	u := d.ToUpdate[0]
	assert.Equal(t, []string{"name"}, u.Changed)
	assert.Equal(t, "10", u.New.LocalKey, "stored key is carried to the new record")
}

func TestDiff_IgnoresDerivedAndAbsentFields(t *testing.T) {
	existing := []Entity{{KeyA: "1", Fields: map[string]any{"name": "A", "site_id": int64(3), "notes": "curated"}}}
	incoming := []Entity{{KeyA: "1", Fields: map[string]any{"name": "A", "site_id": int64(4)}}}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{Ignore: []string{"site_id"}})
	require.NoError(t, err)
	assert.Empty(t, d.ToUpdate)
	assert.Len(t, d.Unchanged, 1)
}

func TestDiff_EmptyValuesAreEqual(t *testing.T) {
	existing := []Entity{{KeyA: "1", Fields: map[string]any{"aldi_id": nil}}}
	incoming := []Entity{{KeyA: "1", Fields: map[string]any{"aldi_id": ""}}}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestDiff_LinkingAndRevival(t *testing.T) {
	existing := []Entity{
		{LocalKey: "1", KeyA: "A1", Fields: map[string]any{"name": "x"}},
		{LocalKey: "2", KeyA: "A2", Fields: map[string]any{"name": "y"}, IsObsolete: true},
	}
	incoming := []Entity{
		{KeyA: "A1", KeyB: "77", Fields: map[string]any{"name": "x"}},
		{KeyA: "A2", Fields: map[string]any{"name": "y"}},
	}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	require.Len(t, d.ToUpdate, 2)

	assert.True(t, d.ToUpdate[0].Relinked)
	assert.Equal(t, "77", d.ToUpdate[0].New.KeyB)
	assert.True(t, d.ToUpdate[1].Revived)
	assert.False(t, d.ToUpdate[1].New.IsObsolete)
}

func TestDiff_ObsoleteRecordsAreNotListedTwice(t *testing.T) {
	existing := []Entity{{LocalKey: "1", KeyA: "A1", IsObsolete: true}}

	d, err := Diff(existing, nil, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestDiff_StoredRecordsWithoutKeyAreIgnored(t *testing.T) {
	existing := []Entity{{LocalKey: "1", KeyB: "B1"}}

	d, err := Diff(existing, nil, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

func TestDiff_AmbiguousKeys(t *testing.T) {
	tests := []struct {
		name     string
		existing []Entity
		incoming []Entity
		key      string
		count    int
	}{
		{
			name:     "incoming collision",
			incoming: []Entity{site("1", "a"), site("1", "b"), site("1", "c")},
			key:      "1",
			count:    3,
		},
		{
			name:     "incoming empty key",
			incoming: []Entity{site("", "a")},
		},
		{
			name:     "stored collision",
			existing: []Entity{site("9", "a"), site("9", "b")},
			key:      "9",
			count:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Diff(tt.existing, tt.incoming, ByKeyA, DiffOptions{})
			var ake *AmbiguousKeyError
			require.ErrorAs(t, err, &ake)
			assert.Equal(t, tt.key, ake.Key)
			assert.Equal(t, tt.count, ake.Count)
		})
	}
}

func TestDiff_OutputSortedByKey(t *testing.T) {
	incoming := []Entity{site("c", "c"), site("a", "a"), site("b", "b")}
	existing := []Entity{site("z", "z"), site("y", "y")}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, []string{d.ToAdd[0].KeyA, d.ToAdd[1].KeyA, d.ToAdd[2].KeyA})
	assert.Equal(t, "y", d.ToObsolete[0].KeyA)
	assert.Equal(t, "z", d.ToObsolete[1].KeyA)
}

func TestDiff_Completeness(t *testing.T) {
	var existing, incoming []Entity
	for i := 0; i < 50; i++ {
		if i%3 != 0 {
			existing = append(existing, site(fmt.Sprintf("%02d", i), "stored"))
		}
		if i%2 == 0 {
			incoming = append(incoming, site(fmt.Sprintf("%02d", i), "stored"))
		}
	}

	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)

	added := map[string]int{}
	for _, e := range d.ToAdd {
		added[e.KeyA]++
	}
	obsoleted := map[string]int{}
	for _, e := range d.ToObsolete {
		obsoleted[e.KeyA]++
	}

	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("%02d", i)
		inStore, inSource := i%3 != 0, i%2 == 0
		switch {
		case inSource && !inStore:
			assert.Equal(t, 1, added[k], k)
		case inStore && !inSource:
			assert.Equal(t, 1, obsoleted[k], k)
		default:
			assert.Zero(t, added[k]+obsoleted[k], k)
		}
	}
}

func TestDiff_Idempotence(t *testing.T) {
	ctx := context.Background()
	p := &Pipeline{Type: EntitySite, Key: ByKeyA, Policies: PolicyTable{Default: SourceWins(SideIncoming)}}

	store := newMemStore(ByKeyA,
		site("1", "Site A"),
		site("3", "Gone"),
		Entity{KeyA: "4", Fields: map[string]any{"name": "Back"}, IsObsolete: true},
	)
	incoming := []Entity{site("1", "Site A renamed"), site("2", "Site B"), site("4", "Back")}

	existing, _ := store.Fetch(ctx, EntitySite)
	plan, err := BuildPlan(p, PlanInput{Existing: existing, Incoming: incoming})
	require.NoError(t, err)
	assert.Equal(t, PlanSummary{Added: 1, Updated: 2, Obsoleted: 1}, plan.Summary)

	_, err = ApplyPlan(ctx, store, plan, ReconcileOptions{})
	require.NoError(t, err)

	existing, _ = store.Fetch(ctx, EntitySite)
	d, err := Diff(existing, incoming, ByKeyA, DiffOptions{})
	require.NoError(t, err)
	assert.True(t, d.Empty(), "second diff after applying the first must be empty")
}

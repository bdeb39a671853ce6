package reconcile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }

func TestResolve_ManualRaisesConflict(t *testing.T) {
	r := &Resolver{Policies: PolicyTable{Default: Manual()}, Now: fixedNow}
	old := Entity{Type: EntityWorkOrder, LocalKey: "5", Fields: map[string]any{"status": "Closed"}}
	next := Entity{Type: EntityWorkOrder, Fields: map[string]any{"status": "Open"}}

	res := r.Resolve(old, next)

	require.Len(t, res.Conflicts, 1)
	c := res.Conflicts[0]
	assert.Equal(t, "status", c.FieldName)
	assert.Equal(t, "Closed", c.ValueA)
	assert.Equal(t, "Open", c.ValueB)
	assert.Equal(t, "5", c.LocalKey)
	assert.False(t, c.Resolved)
	assert.Equal(t, fixedNow(), c.DetectedAt)
	assert.Equal(t, "Closed", res.Applied["status"], "stored value is kept until resolved")
}

func TestResolve_SourceWins(t *testing.T) {
	r := &Resolver{Policies: PolicyTable{
		Default: SourceWins(SideIncoming),
		Fields:  map[string]Policy{"notes": SourceWins(SideStored)},
	}}
	old := Entity{Fields: map[string]any{"name": "old", "notes": "curated"}}
	next := Entity{Fields: map[string]any{"name": "new", "notes": "from api"}}

	res := r.Resolve(old, next)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, "new", res.Applied["name"])
	assert.Equal(t, "curated", res.Applied["notes"])
}

func TestResolve_LastWriterWins(t *testing.T) {
	r := &Resolver{Policies: PolicyTable{Default: LastWriterWins()}}
	older, newer := ts("2025-01-01T00:00:00Z"), ts("2025-01-02T00:00:00Z")

	tests := []struct {
		name    string
		oldAt   *time.Time
		newAt   *time.Time
		applied string
	}{
		{"incoming newer", older, newer, "incoming"},
		{"stored newer", newer, older, "stored"},
		{"tie prefers incoming", older, older, "incoming"},
		{"both missing prefers incoming", nil, nil, "incoming"},
		{"incoming missing", older, nil, "stored"},
		{"stored missing", nil, older, "incoming"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := Entity{ChangedAt: tt.oldAt, Fields: map[string]any{"status": "stored"}}
			next := Entity{ChangedAt: tt.newAt, Fields: map[string]any{"status": "incoming"}}
			res := r.Resolve(old, next)
			assert.Empty(t, res.Conflicts)
			assert.Equal(t, tt.applied, res.Applied["status"])
		})
	}
}

func TestResolve_IgnoredAndNewFieldsPassThrough(t *testing.T) {
	r := &Resolver{Policies: PolicyTable{Default: Manual()}, Ignore: []string{"site_id"}}
	old := Entity{Fields: map[string]any{"site_id": int64(1)}}
	next := Entity{Fields: map[string]any{"site_id": int64(2), "brand_new": "x"}}

	res := r.Resolve(old, next)
	assert.Empty(t, res.Conflicts)
	assert.Equal(t, int64(2), res.Applied["site_id"])
	assert.Equal(t, "x", res.Applied["brand_new"])
}

func TestResolve_Deterministic(t *testing.T) {
	r := &Resolver{Policies: PolicyTable{
		Default: Manual(),
		Fields:  map[string]Policy{"name": SourceWins(SideIncoming)},
	}, Now: fixedNow}
	old := Entity{LocalKey: "1", Fields: map[string]any{"a": 1, "b": 2, "c": 3, "name": "x"}}
	next := Entity{Fields: map[string]any{"a": 9, "b": 8, "c": 3, "name": "y"}}

	first := r.Resolve(old, next)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, r.Resolve(old, next))
	}
	require.Len(t, first.Conflicts, 2)
	assert.Equal(t, "a", first.Conflicts[0].FieldName)
	assert.Equal(t, "b", first.Conflicts[1].FieldName)
}

func TestPolicyTable_For(t *testing.T) {
	table := PolicyTable{Default: Manual(), Fields: map[string]Policy{"name": LastWriterWins()}}
	assert.Equal(t, PolicyLastWriterWins, table.For("name").Kind)
	assert.Equal(t, PolicyManual, table.For("other").Kind)
	assert.Equal(t, "manual", table.For("other").Kind.String())
}

func TestEqual(t *testing.T) {
	at := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"nil and empty", nil, "", true},
		{"nil and value", nil, "x", false},
		{"int and float", int64(3), 3.0, true},
		{"number and numeric string", 12, "12", true},
		{"numeric strings keep leading zeros", "06000", "6000", false},
		{"time and string", at, "2025-01-02T01:00:00+01:00", true},
		{"time pointer", &at, at, true},
		{"bool and int", true, int64(1), true},
		{"json structural", map[string]any{"a": 1.0}, []byte(`{"a":1}`), true},
		{"different strings", "a", "b", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

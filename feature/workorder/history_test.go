package workorder

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func tech(id int64) *int64 { return &id }

func TestMerge_OpenNeverCarriesPlannedDate(t *testing.T) {
	obs := Entry{Status: StatusOpen, PlannedAt: at("2025-01-01"), TechnicianID: tech(5), ChangedAt: at("2025-01-02")}

	got := Merge(nil, obs)

	require.Len(t, got, 1)
	assert.Nil(t, got[0].PlannedAt)
	assert.Equal(t, StatusOpen, got[0].Status)
	assert.Equal(t, int64(5), *got[0].TechnicianID)
	assert.True(t, at("2025-01-02").Equal(*got[0].ChangedAt))
}

func TestMerge_Invariants(t *testing.T) {
	history := []Entry{
		{Status: StatusOpen, ChangedAt: at("2025-01-01")},
		{Status: StatusPlanned, PlannedAt: at("2025-02-01"), TechnicianID: tech(5), ChangedAt: at("2025-01-03")},
	}
	observations := []Entry{
		{Status: StatusOpen, PlannedAt: at("2025-03-01"), ChangedAt: at("2025-01-05")},
		{Status: StatusPlanned, PlannedAt: at("2025-02-01"), TechnicianID: tech(5), ChangedAt: at("2025-01-03")},
		{Status: StatusClosed, PlannedAt: at("2025-02-01"), TechnicianID: tech(5), ChangedAt: at("2025-02-02")},
	}

	for _, obs := range observations {
		merged := Merge(history, obs)
		for _, e := range merged {
			if e.Status == StatusOpen {
				assert.Nil(t, e.PlannedAt)
			}
		}
		assert.NotEmpty(t, merged)
	}
}

func TestMerge_Deduplicates(t *testing.T) {
	history := Merge(nil, Entry{Status: StatusPlanned, PlannedAt: at("2025-02-01"), ChangedAt: at("2025-01-03")})

	// Same instant expressed in another zone
	paris := time.FixedZone("CET", 3600)
	planned := at("2025-02-01").In(paris)
	changed := at("2025-01-03").In(paris)
	again := Merge(history, Entry{Status: StatusPlanned, PlannedAt: &planned, ChangedAt: &changed})
	assert.Len(t, again, len(history))

	// Any differing field is a new entry
	other := Merge(history, Entry{Status: StatusPlanned, PlannedAt: at("2025-02-01"), TechnicianID: tech(7), ChangedAt: at("2025-01-03")})
	assert.Len(t, other, len(history)+1)
}

func TestMerge_DoesNotMutateInput(t *testing.T) {
	history := []Entry{{Status: StatusOpen, PlannedAt: at("2025-01-01")}}
	_ = Merge(history, Entry{Status: StatusClosed})
	require.Len(t, history, 1)
	assert.NotNil(t, history[0].PlannedAt, "input is left untouched")
}

func TestMergeSeeded(t *testing.T) {
	seed := Entry{Status: StatusOpen, ChangedAt: at("2025-01-01")}
	obs := Entry{Status: StatusInProgress, TechnicianID: tech(5), ChangedAt: at("2025-01-10")}

	got := MergeSeeded(nil, seed, obs)
	require.Len(t, got, 2)
	assert.Equal(t, StatusOpen, got[0].Status)
	assert.Equal(t, StatusInProgress, got[1].Status)

	// The seed is ignored once history exists
	got = MergeSeeded(got, Entry{Status: "Bogus"}, obs)
	assert.Len(t, got, 2)
}

func TestEntry_SameState(t *testing.T) {
	a := Entry{Status: StatusOpen, PlannedAt: at("2025-01-01"), ChangedAt: at("2025-01-01")}
	b := Entry{Status: StatusOpen, ChangedAt: at("2025-02-01")}
	assert.True(t, a.SameState(b))
	assert.False(t, a.Equal(b))
}

func TestDecodeHistory(t *testing.T) {
	raw, err := json.Marshal([]Entry{{Status: StatusOpen, ChangedAt: at("2025-01-01")}})
	require.NoError(t, err)

	got, err := DecodeHistory(json.RawMessage(raw))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, at("2025-01-01").Equal(*got[0].ChangedAt))

	got, err = DecodeHistory(string(raw))
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = DecodeHistory(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = DecodeHistory("{not json")
	assert.Error(t, err)
	_, err = DecodeHistory(42)
	assert.Error(t, err)
}

func TestNormalizeStatus(t *testing.T) {
	tests := map[string]string{
		"Open":        StatusOpen,
		"Scheduled":   StatusPlanned,
		"In progress": StatusInProgress,
		"in_progress": StatusInProgress,
		"Closed":      StatusClosed,
		"Paused":      "Paused",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeStatus(in), in)
	}
}

package workorder

import (
	"encoding/json"
	"fmt"
	"time"
)

// Entry is one observation of a work order's status, schedule and technician.
type Entry struct {
	Status       string     `json:"status"`
	PlannedAt    *time.Time `json:"planned_at"`
	TechnicianID *int64     `json:"technician_id"`
	ChangedAt    *time.Time `json:"changed_at"`
}

// Normalize returns e with UTC timestamps and no planned date when Open.
func (e Entry) Normalize() Entry {
	out := Entry{Status: e.Status, PlannedAt: utcPtr(e.PlannedAt), ChangedAt: utcPtr(e.ChangedAt)}
	if e.TechnicianID != nil {
		id := *e.TechnicianID
		out.TechnicianID = &id
	}
	if out.Status == StatusOpen {
		out.PlannedAt = nil
	}
	return out
}

// Equal reports structural equality. Timestamps compare as instants.
func (e Entry) Equal(o Entry) bool {
	return e.Status == o.Status &&
		timeEqual(e.PlannedAt, o.PlannedAt) &&
		int64Equal(e.TechnicianID, o.TechnicianID) &&
		timeEqual(e.ChangedAt, o.ChangedAt)
}

// SameState reports whether e and o describe the same status, schedule and
// technician, whatever their timestamps.
func (e Entry) SameState(o Entry) bool {
	a, b := e.Normalize(), o.Normalize()
	return a.Status == b.Status && timeEqual(a.PlannedAt, b.PlannedAt) && int64Equal(a.TechnicianID, b.TechnicianID)
}

// Merge appends observation to history unless an equal entry is already
// present. An empty history is first seeded with the observation itself, so
// the result is never empty. The input slice is not modified.
func Merge(history []Entry, observation Entry) []Entry {
	return MergeSeeded(history, observation, observation)
}

// MergeSeeded is Merge with an explicit seed, used when the state of the work
// order before the observation is known. The seed is only used when history
// is empty.
func MergeSeeded(history []Entry, seed, observation Entry) []Entry {
	out := make([]Entry, 0, len(history)+2)
	for _, e := range history {
		out = append(out, e.Normalize())
	}
	if len(out) == 0 {
		out = append(out, seed.Normalize())
	}

	obs := observation.Normalize()
	for _, e := range out {
		if e.Equal(obs) {
			return out
		}
	}
	return append(out, obs)
}

// DecodeHistory reads a wo_history value as stored or as produced by Merge.
func DecodeHistory(v any) ([]Entry, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []Entry:
		return append([]Entry(nil), t...), nil
	case json.RawMessage:
		raw = t
	case []byte:
		raw = t
	case string:
		raw = []byte(t)
	default:
		return nil, fmt.Errorf("unsupported history value %T", v)
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var out []Entry
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode work order history: %w", err)
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func int64Equal(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

package reconcile

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"
)

// memStore is an in-memory Store keyed on the identity key, mirroring the
// upsert-on-key semantics of the gorm store.
type memStore struct {
	key       KeyFunc
	rows      map[string]Entity
	nextID    int
	conflicts []Conflict

	fetchErr  error
	upsertErr error
	calls     []string
}

func newMemStore(key KeyFunc, seed ...Entity) *memStore {
	s := &memStore{key: key, rows: make(map[string]Entity)}
	for _, e := range seed {
		if e.LocalKey == "" {
			s.nextID++
			e.LocalKey = strconv.Itoa(s.nextID)
		}
		e.Source = SourceStore
		s.rows[key(e)] = e.Clone()
	}
	return s
}

func (s *memStore) Fetch(_ context.Context, t EntityType) ([]Entity, error) {
	s.calls = append(s.calls, "fetch")
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Entity, 0, len(keys))
	for _, k := range keys {
		e := s.rows[k].Clone()
		e.Type = t
		out = append(out, e)
	}
	return out, nil
}

func (s *memStore) Upsert(_ context.Context, _ EntityType, records []Entity) error {
	s.calls = append(s.calls, "upsert")
	if s.upsertErr != nil {
		return s.upsertErr
	}
	for _, e := range records {
		k := s.key(e)
		row, ok := s.rows[k]
		if !ok {
			s.nextID++
			row = Entity{LocalKey: strconv.Itoa(s.nextID), Fields: map[string]any{}}
		}
		row.KeyA, row.KeyB = e.KeyA, e.KeyB
		if row.Fields == nil {
			row.Fields = map[string]any{}
		}
		for f, v := range e.Fields {
			row.Fields[f] = v
		}
		row.ChangedAt = e.ChangedAt
		row.IsObsolete = false
		row.ObsoleteAt = nil
		row.Source = SourceStore
		s.rows[k] = row
	}
	return nil
}

func (s *memStore) MarkObsolete(_ context.Context, _ EntityType, localKeys []string) error {
	s.calls = append(s.calls, "obsolete")
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	for k, row := range s.rows {
		for _, lk := range localKeys {
			if row.LocalKey == lk {
				row.IsObsolete = true
				row.ObsoleteAt = &now
				s.rows[k] = row
			}
		}
	}
	return nil
}

func (s *memStore) RecordConflict(_ context.Context, c Conflict) error {
	s.calls = append(s.calls, "conflict")
	for _, prev := range s.conflicts {
		if !prev.Resolved && prev.Signature() == c.Signature() && Equal(prev.ValueA, c.ValueA) {
			return nil
		}
	}
	c.ID = uint(len(s.conflicts) + 1)
	s.conflicts = append(s.conflicts, c)
	return nil
}

func (s *memStore) ResolvedConflicts(_ context.Context, t EntityType) ([]Conflict, error) {
	var out []Conflict
	for _, c := range s.conflicts {
		if c.Resolved && c.EntityType == t {
			out = append(out, c)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func site(key, name string) Entity {
	return Entity{Type: EntitySite, KeyA: key, Fields: map[string]any{"name": name}}
}

func ts(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

package reconcile

import (
	"sort"
)

// DiffOptions tunes a diff.
type DiffOptions struct {
	// Ignore lists derived fields that are recomputed after every read and never compared.
	Ignore []string
}

func (o DiffOptions) ignored() map[string]struct{} {
	set := make(map[string]struct{}, len(o.Ignore))
	for _, f := range o.Ignore {
		set[f] = struct{}{}
	}
	return set
}

// Update pairs a stored record with the incoming record that replaces it.
type Update struct {
	// Old is the stored record.
	Old Entity
	// New is the incoming record, carrying the stored LocalKey.
	New Entity
	// Changed lists the compared fields that differ, sorted.
	Changed []string
	// Relinked is set when New carries a source key Old lacked.
	Relinked bool
	// Revived is set when Old was obsolete.
	Revived bool
}

// HasChanges reports whether the update writes anything.
func (u Update) HasChanges() bool {
	return len(u.Changed) > 0 || u.Relinked || u.Revived
}

// DiffResult holds the operations needed to converge the store on the incoming snapshot.
// Every set is sorted by identity key.
type DiffResult struct {
	ToAdd      []Entity
	ToUpdate   []Update
	ToObsolete []Entity
	// Unchanged holds matched records with nothing to write. History hooks still see them.
	Unchanged []Update
}

// Empty reports whether the diff carries no operation.
func (d *DiffResult) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToUpdate) == 0 && len(d.ToObsolete) == 0
}

// Diff classifies incoming records against the stored ones.
//
// Incoming records without a stored match are added. Matched records are updated
// when a compared field differs, when they carry a source key the stored record
// lacks, or when the stored record is obsolete. Active stored records without an
// incoming counterpart are obsoleted; records already obsolete are left alone so
// that a second diff after applying the first is empty.
//
// Stored records with an empty identity key cannot be matched and are ignored.
func Diff(existing, incoming []Entity, key KeyFunc, opts DiffOptions) (*DiffResult, error) {
	stored, err := indexByKey(existing, key, false)
	if err != nil {
		return nil, err
	}
	in, err := indexByKey(incoming, key, true)
	if err != nil {
		return nil, err
	}

	ignore := opts.ignored()
	result := &DiffResult{}

	for _, k := range sortedKeys(in) {
		next := in[k]
		old, ok := stored[k]
		if !ok {
			result.ToAdd = append(result.ToAdd, next)
			continue
		}

		changed := changedFields(old, next, ignore)
		relinked := (next.KeyA != "" && old.KeyA == "") || (next.KeyB != "" && old.KeyB == "")
		u := Update{
			Old:      old,
			New:      carryKeys(old, next),
			Changed:  changed,
			Relinked: relinked,
			Revived:  old.IsObsolete,
		}
		if !u.HasChanges() {
			result.Unchanged = append(result.Unchanged, u)
			continue
		}
		result.ToUpdate = append(result.ToUpdate, u)
	}

	for _, k := range sortedKeys(stored) {
		old := stored[k]
		if _, ok := in[k]; ok || old.IsObsolete {
			continue
		}
		result.ToObsolete = append(result.ToObsolete, old)
	}

	return result, nil
}

// changedFields returns the compared fields of next whose value differs from old.
func changedFields(old, next Entity, ignore map[string]struct{}) []string {
	var changed []string
	for f, v := range next.Fields {
		if _, skip := ignore[f]; skip {
			continue
		}
		if !Equal(old.Fields[f], v) {
			changed = append(changed, f)
		}
	}
	sort.Strings(changed)
	return changed
}

// carryKeys fills the keys next does not know from the stored record.
func carryKeys(old, next Entity) Entity {
	out := next.Clone()
	if out.LocalKey == "" {
		out.LocalKey = old.LocalKey
	}
	if out.KeyA == "" {
		out.KeyA = old.KeyA
	}
	if out.KeyB == "" {
		out.KeyB = old.KeyB
	}
	out.IsObsolete = false
	out.ObsoleteAt = nil
	return out
}

// indexByKey indexes records by identity key. Empty keys are an error for
// incoming records and skipped for stored ones.
func indexByKey(records []Entity, key KeyFunc, strict bool) (map[string]Entity, error) {
	index := make(map[string]Entity, len(records))
	counts := make(map[string]int)
	for _, e := range records {
		k := key(e)
		if k == "" {
			if strict {
				return nil, &AmbiguousKeyError{EntityType: e.Type, Source: e.Source}
			}
			continue
		}
		counts[k]++
		if counts[k] > 1 {
			continue
		}
		index[k] = e
	}
	for _, k := range sortedCounts(counts) {
		if counts[k] > 1 {
			e := index[k]
			return nil, &AmbiguousKeyError{EntityType: e.Type, Source: e.Source, Key: k, Count: counts[k]}
		}
	}
	return index, nil
}

func sortedKeys(m map[string]Entity) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedCounts(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

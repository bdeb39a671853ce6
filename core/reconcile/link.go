package reconcile

import "sort"

// LinkResult holds the joined snapshot of both sources.
type LinkResult struct {
	// Entities is the joined snapshot, sorted by identity key.
	Entities []Entity
	// Pending counts source records that carry no identity key yet.
	Pending int
}

// Link joins the VCOM (a) and Yuman (b) snapshots on the identity key.
//
// A values take precedence; b contributes its key and the fields a does not
// carry. Records without an identity key cannot be matched: they are counted
// as pending and left out. Records present on one side only are kept as
// unlinked records.
func Link(a, b []Entity, key KeyFunc) (*LinkResult, error) {
	result := &LinkResult{}
	joined := make(map[string]Entity, len(a)+len(b))

	left, pending, err := indexSide(a, key)
	if err != nil {
		return nil, err
	}
	result.Pending += pending
	for k, e := range left {
		joined[k] = e
	}

	right, pending, err := indexSide(b, key)
	if err != nil {
		return nil, err
	}
	result.Pending += pending
	for k, e := range right {
		base, ok := joined[k]
		if !ok {
			joined[k] = e
			continue
		}
		joined[k] = join(base, e)
	}

	keys := make([]string, 0, len(joined))
	for k := range joined {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		result.Entities = append(result.Entities, joined[k])
	}
	return result, nil
}

func join(a, b Entity) Entity {
	out := a.Clone()
	if out.KeyB == "" {
		out.KeyB = b.KeyB
	}
	if out.KeyA == "" {
		out.KeyA = b.KeyA
	}
	for f, v := range b.Fields {
		if cur, ok := out.Fields[f]; !ok || isEmpty(cur) {
			out.Fields[f] = v
		}
	}
	if b.ChangedAt != nil && (out.ChangedAt == nil || b.ChangedAt.After(*out.ChangedAt)) {
		t := *b.ChangedAt
		out.ChangedAt = &t
	}
	return out
}

func indexSide(records []Entity, key KeyFunc) (map[string]Entity, int, error) {
	index := make(map[string]Entity, len(records))
	pending := 0
	for _, e := range records {
		k := key(e)
		if k == "" {
			pending++
			continue
		}
		if _, dup := index[k]; dup {
			count := 0
			for _, o := range records {
				if key(o) == k {
					count++
				}
			}
			return nil, 0, &AmbiguousKeyError{EntityType: e.Type, Source: e.Source, Key: k, Count: count}
		}
		index[k] = e
	}
	return index, pending, nil
}

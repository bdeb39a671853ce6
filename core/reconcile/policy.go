package reconcile

import (
	"sort"
	"time"
)

// PolicyKind selects how a field disagreement is settled.
type PolicyKind int

const (
	// PolicySourceWins makes one side authoritative; no conflict is ever raised.
	PolicySourceWins PolicyKind = iota
	// PolicyLastWriterWins keeps the value of the record with the newer ChangedAt.
	PolicyLastWriterWins
	// PolicyManual raises a conflict and keeps the stored value.
	PolicyManual
)

func (k PolicyKind) String() string {
	switch k {
	case PolicySourceWins:
		return "source-wins"
	case PolicyLastWriterWins:
		return "last-writer-wins"
	case PolicyManual:
		return "manual"
	default:
		return "unknown"
	}
}

// Side names the record a source-wins policy trusts.
type Side int

const (
	// SideIncoming trusts the freshly fetched record.
	SideIncoming Side = iota
	// SideStored trusts the mapping store, for operator-curated columns.
	SideStored
)

// Policy is one entry of a PolicyTable.
type Policy struct {
	Kind PolicyKind
	Side Side
}

// SourceWins returns a policy where side always wins.
func SourceWins(side Side) Policy { return Policy{Kind: PolicySourceWins, Side: side} }

// LastWriterWins returns a policy where the newer record wins. Ties go to the incoming record.
func LastWriterWins() Policy { return Policy{Kind: PolicyLastWriterWins} }

// Manual returns a policy that records disagreements as conflicts.
func Manual() Policy { return Policy{Kind: PolicyManual} }

// PolicyTable maps field names to policies.
type PolicyTable struct {
	// Default applies to fields absent from Fields.
	Default Policy
	// Fields holds per-field overrides.
	Fields map[string]Policy
}

// For returns the policy for a field.
func (t PolicyTable) For(field string) Policy {
	if p, ok := t.Fields[field]; ok {
		return p
	}
	return t.Default
}

// Resolution is the outcome of resolving one stored/incoming pair.
type Resolution struct {
	// Applied holds the value to persist for every compared field of the incoming record.
	Applied map[string]any
	// Conflicts lists the disagreements left for an operator, sorted by field.
	Conflicts []Conflict
}

// Resolver settles field disagreements between a stored record and its incoming version.
type Resolver struct {
	// Policies is the static field policy table.
	Policies PolicyTable
	// Ignore lists derived fields that are copied from the incoming record without comparison.
	Ignore []string
	// Now stamps detected conflicts. Defaults to time.Now.
	Now func() time.Time
}

// Resolve applies the policy table field by field. It is deterministic: the same
// pair and table always give the same split between applied values and conflicts.
func (r *Resolver) Resolve(old, next Entity) Resolution {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	ignore := make(map[string]struct{}, len(r.Ignore))
	for _, f := range r.Ignore {
		ignore[f] = struct{}{}
	}

	res := Resolution{Applied: make(map[string]any, len(next.Fields))}
	for field, incoming := range next.Fields {
		stored, present := old.Fields[field]
		if _, skip := ignore[field]; skip || !present || Equal(stored, incoming) {
			res.Applied[field] = incoming
			continue
		}

		policy := r.Policies.For(field)
		switch policy.Kind {
		case PolicySourceWins:
			if policy.Side == SideStored {
				res.Applied[field] = stored
			} else {
				res.Applied[field] = incoming
			}
		case PolicyLastWriterWins:
			if newerOrEqual(next.ChangedAt, old.ChangedAt) {
				res.Applied[field] = incoming
			} else {
				res.Applied[field] = stored
			}
		default:
			res.Applied[field] = stored
			res.Conflicts = append(res.Conflicts, Conflict{
				EntityType: old.Type,
				LocalKey:   old.LocalKey,
				FieldName:  field,
				ValueA:     stored,
				ValueB:     incoming,
				DetectedAt: now().UTC(),
			})
		}
	}

	sort.Slice(res.Conflicts, func(i, j int) bool {
		return res.Conflicts[i].FieldName < res.Conflicts[j].FieldName
	})
	return res
}

// newerOrEqual reports whether a is at least as recent as b. A nil timestamp is the zero time.
func newerOrEqual(a, b *time.Time) bool {
	var ta, tb time.Time
	if a != nil {
		ta = *a
	}
	if b != nil {
		tb = *b
	}
	return !ta.Before(tb)
}

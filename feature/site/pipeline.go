package site

import (
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
)

// Policies is the field policy table of sites.
//
// VCOM owns the technical data and Yuman the business identifiers. Names and
// addresses are curated by hand on both sides, so disagreements go to review.
// Operator flags never come from a source.
func Policies() reconcile.PolicyTable {
	incoming := reconcile.SourceWins(reconcile.SideIncoming)
	stored := reconcile.SourceWins(reconcile.SideStored)
	return reconcile.PolicyTable{
		Default: reconcile.Manual(),
		Fields: map[string]reconcile.Policy{
			"name":              reconcile.Manual(),
			"address":           reconcile.Manual(),
			"latitude":          incoming,
			"longitude":         incoming,
			"nominal_power":     incoming,
			"site_area":         incoming,
			"commission_date":   incoming,
			"code":              incoming,
			"aldi_id":           incoming,
			"aldi_store_id":     incoming,
			"project_number_cp": incoming,
			"client_map_id":     stored,
			"ignore_site":       stored,
		},
	}
}

// NewPipeline returns the site pipeline. Sites are matched on the VCOM system
// key; Yuman sites without one are pending until an operator fills it in.
// Persisting sites invalidates the site index.
func NewPipeline(a, b reconcile.Snapshotter) *reconcile.Pipeline {
	return &reconcile.Pipeline{
		Type:            reconcile.EntitySite,
		Key:             reconcile.ByKeyA,
		SourceA:         a,
		SourceB:         b,
		Policies:        Policies(),
		RequireLink:     true,
		InvalidatesRefs: true,
	}
}

// ScopeKey restricts a site run to one VCOM system.
func ScopeKey(key string) func(reconcile.Entity) bool {
	return func(e reconcile.Entity) bool { return e.KeyA == key }
}

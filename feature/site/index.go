package site

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/core/mapping"
	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
)

// RefLoader loads the active site references from the mapping store.
type RefLoader interface {
	SiteRefs(ctx context.Context) ([]mapping.SiteRef, error)
}

// Index resolves a site from any of its three identifiers.
type Index struct {
	byKey   map[string]mapping.SiteRef
	byYuman map[int64]mapping.SiteRef
	byID    map[int64]mapping.SiteRef
}

// NewIndex builds an index over refs. Later entries win on duplicate keys.
func NewIndex(refs []mapping.SiteRef) *Index {
	idx := &Index{
		byKey:   make(map[string]mapping.SiteRef, len(refs)),
		byYuman: make(map[int64]mapping.SiteRef, len(refs)),
		byID:    make(map[int64]mapping.SiteRef, len(refs)),
	}
	for _, r := range refs {
		idx.byID[r.ID] = r
		if r.VcomSystemKey != "" {
			idx.byKey[r.VcomSystemKey] = r
		}
		if r.YumanSiteID != 0 {
			idx.byYuman[r.YumanSiteID] = r
		}
	}
	return idx
}

// ByVcomKey returns the site with a VCOM system key.
func (i *Index) ByVcomKey(key string) (mapping.SiteRef, bool) {
	r, ok := i.byKey[key]
	return r, ok
}

// ByYumanID returns the site with a Yuman site id.
func (i *Index) ByYumanID(id int64) (mapping.SiteRef, bool) {
	r, ok := i.byYuman[id]
	return r, ok
}

// ByID returns the site with a mapping row id.
func (i *Index) ByID(id int64) (mapping.SiteRef, bool) {
	r, ok := i.byID[id]
	return r, ok
}

// Len returns the number of indexed sites.
func (i *Index) Len() int { return len(i.byID) }

// NewIndexCache returns a reference cache filled from the mapping store.
func NewIndexCache(loader RefLoader) *reconcile.RefCache[*Index] {
	return reconcile.NewRefCache("site-index", func(ctx context.Context) (*Index, error) {
		refs, err := loader.SiteRefs(ctx)
		if err != nil {
			return nil, err
		}
		return NewIndex(refs), nil
	})
}

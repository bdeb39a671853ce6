package mapping

import (
	"context"
	"errors"
	"fmt"
)

// ErrClientNotFound is returned when a client map id has no Yuman client.
var ErrClientNotFound = errors.New("client not found")

// SiteRef is one entry of the site reference index.
type SiteRef struct {
	ID            int64
	VcomSystemKey string
	YumanSiteID   int64
}

// SiteRefs loads the active sites with the keys needed to enrich equipment,
// tickets and work orders.
func (s *Store) SiteRefs(ctx context.Context) ([]SiteRef, error) {
	var rows []SiteMapping
	err := s.db.WithContext(ctx).
		Select("id", "vcom_system_key", "yuman_site_id").
		Where("is_obsolete = ?", false).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load site references: %w", err)
	}

	refs := make([]SiteRef, 0, len(rows))
	for _, r := range rows {
		ref := SiteRef{ID: int64(r.ID)}
		if r.VcomSystemKey != nil {
			ref.VcomSystemKey = *r.VcomSystemKey
		}
		if r.YumanSiteID != nil {
			ref.YumanSiteID = *r.YumanSiteID
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// Categories loads the work order category catalog.
func (s *Store) Categories(ctx context.Context) (map[int64]string, error) {
	var rows []WorkorderCategory
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load workorder categories: %w", err)
	}
	out := make(map[int64]string, len(rows))
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

// YumanClientID resolves a site's client_map_id to the Yuman client id.
func (s *Store) YumanClientID(ctx context.Context, clientMapID int64) (int64, error) {
	var row ClientMapping
	err := s.db.WithContext(ctx).Where("id = ?", clientMapID).Take(&row).Error
	if isNotFound(err) {
		return 0, fmt.Errorf("client map %d: %w", clientMapID, ErrClientNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to load client map %d: %w", clientMapID, err)
	}
	if row.YumanClientID == nil {
		return 0, fmt.Errorf("client map %d has no Yuman client: %w", clientMapID, ErrClientNotFound)
	}
	return *row.YumanClientID, nil
}

package site

import (
	"context"
	"fmt"
	"strings"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"

	"go.uber.org/zap"
)

// VcomSource snapshots VCOM systems as site records.
type VcomSource struct {
	client vcom.Client
	logger *zap.Logger
}

// NewVcomSource creates a VCOM site source.
func NewVcomSource(client vcom.Client, logger *zap.Logger) *VcomSource {
	return &VcomSource{client: client, logger: logger}
}

// Snapshot fetches every system with its details and technical data.
// A failure on any system fails the snapshot, so that no site is obsoleted
// because of a transient error.
func (s *VcomSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	systems, err := s.client.Systems(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]reconcile.Entity, 0, len(systems))
	for _, sys := range systems {
		details, err := s.client.SystemDetails(ctx, sys.Key)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Key, err)
		}
		tech, err := s.client.TechnicalData(ctx, sys.Key)
		if err != nil {
			return nil, fmt.Errorf("system %s: %w", sys.Key, err)
		}
		out = append(out, FromVcom(sys, details, tech))
	}

	s.logger.Debug("Fetched VCOM systems", zap.Int("count", len(out)))
	return out, nil
}

// FromVcom translates a VCOM system into a site record.
func FromVcom(sys vcom.System, details *vcom.SystemDetails, tech *vcom.TechnicalData) reconcile.Entity {
	name := sys.Name
	if name == "" {
		name = sys.Key
	}
	e := reconcile.Entity{
		Type:   reconcile.EntitySite,
		KeyA:   sys.Key,
		Source: reconcile.SourceVCOM,
		Fields: map[string]any{"name": name},
	}
	if details != nil {
		e.Fields["address"] = utils.NilIfEmpty(FormatAddress(details.Address))
		e.Fields["latitude"] = floatOrNil(details.Coordinates.Latitude)
		e.Fields["longitude"] = floatOrNil(details.Coordinates.Longitude)
		e.Fields["commission_date"] = dateOrNil(details.CommissionDate)
	}
	if tech != nil {
		e.Fields["nominal_power"] = floatOrNil(tech.NominalPower)
		e.Fields["site_area"] = floatOrNil(tech.SiteArea)
	}
	return e
}

// FormatAddress renders "street, postcode city", skipping empty parts.
func FormatAddress(a vcom.Address) string {
	var parts []string
	if s := strings.TrimSpace(a.Street); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(a.PostalCode + " " + a.City); s != "" {
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

func floatOrNil(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

// dateOrNil converts any supported date format to "2006-01-02".
func dateOrNil(s string) any {
	t, ok := utils.ToTime(s)
	if !ok {
		return nil
	}
	return t.Format("2006-01-02")
}

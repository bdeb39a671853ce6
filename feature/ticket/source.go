package ticket

import (
	"context"

	"github.com/Centroplan-france/vcom-yuman-sync/core/reconcile"
	"github.com/Centroplan-france/vcom-yuman-sync/core/utils"
	"github.com/Centroplan-france/vcom-yuman-sync/pkg/vcom"

	"go.uber.org/zap"
)

// CollectedStatuses are the VCOM ticket statuses mirrored in the store.
// Tickets leaving them disappear from the snapshot and are obsoleted.
var CollectedStatuses = []string{vcom.TicketOpen, vcom.TicketAssigned, vcom.TicketInProgress}

// VcomSource snapshots VCOM tickets.
type VcomSource struct {
	client vcom.Client
	logger *zap.Logger
}

// NewVcomSource creates a ticket source.
func NewVcomSource(client vcom.Client, logger *zap.Logger) *VcomSource {
	return &VcomSource{client: client, logger: logger}
}

// Snapshot lists the tickets of every collected status. A ticket that moved
// between two listings is kept once, from the later listing.
func (s *VcomSource) Snapshot(ctx context.Context) ([]reconcile.Entity, error) {
	var out []reconcile.Entity
	seen := make(map[string]int)
	for _, status := range CollectedStatuses {
		tickets, err := s.client.Tickets(ctx, status)
		if err != nil {
			return nil, err
		}
		for _, t := range tickets {
			if i, ok := seen[t.ID]; ok {
				out[i] = FromVcom(t)
				continue
			}
			seen[t.ID] = len(out)
			out = append(out, FromVcom(t))
		}
		s.logger.Debug("Fetched VCOM tickets", zap.String("status", status), zap.Int("count", len(tickets)))
	}
	return out, nil
}

// FromVcom translates a VCOM ticket. created_at is left out when VCOM does not
// give one, so the insertion time stamped by the store is kept.
func FromVcom(t vcom.Ticket) reconcile.Entity {
	e := reconcile.Entity{
		Type:   reconcile.EntityTicket,
		KeyA:   t.ID,
		Source: reconcile.SourceVCOM,
		Fields: map[string]any{
			"system_key":  utils.NilIfEmpty(t.SystemKey),
			"title":       utils.NilIfEmpty(t.Designation),
			"description": utils.NilIfEmpty(t.Description),
			"status":      utils.NilIfEmpty(t.Status),
			"priority":    utils.NilIfEmpty(t.Priority),
		},
		ChangedAt: utils.TimePtr(t.LastChangedAt),
	}
	if ts, ok := utils.ToTime(t.CreatedAt); ok {
		e.Fields["created_at"] = ts
	}
	return e
}

// Policies is the field policy table of tickets. Status and priority are also
// written locally by the business rules, so the latest change wins.
func Policies() reconcile.PolicyTable {
	return reconcile.PolicyTable{
		Default: reconcile.SourceWins(reconcile.SideIncoming),
		Fields: map[string]reconcile.Policy{
			"status":             reconcile.LastWriterWins(),
			"priority":           reconcile.LastWriterWins(),
			"yuman_workorder_id": reconcile.SourceWins(reconcile.SideStored),
		},
	}
}

// NewPipeline returns the ticket pipeline, matched on the VCOM ticket id.
func NewPipeline(a reconcile.Snapshotter) *reconcile.Pipeline {
	return &reconcile.Pipeline{
		Type:     reconcile.EntityTicket,
		Key:      reconcile.ByKeyA,
		SourceA:  a,
		Policies: Policies(),
	}
}

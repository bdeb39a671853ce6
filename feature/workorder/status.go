package workorder

import "strings"

// Canonical work order statuses.
const (
	StatusOpen       = "Open"
	StatusPlanned    = "Planned"
	StatusInProgress = "InProgress"
	StatusClosed     = "Closed"
)

var statusAliases = map[string]string{
	"open":       StatusOpen,
	"planned":    StatusPlanned,
	"scheduled":  StatusPlanned,
	"inprogress": StatusInProgress,
	"started":    StatusInProgress,
	"closed":     StatusClosed,
	"done":       StatusClosed,
}

// NormalizeStatus maps a source status onto the canonical enum. Unknown
// values are returned unchanged.
func NormalizeStatus(s string) string {
	key := strings.ToLower(strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.TrimSpace(s)))
	if canonical, ok := statusAliases[key]; ok {
		return canonical
	}
	return s
}

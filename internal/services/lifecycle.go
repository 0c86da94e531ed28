package services

import (
	"fmt"

	"github.com/citizenvoice/engagement-server/internal/models"
)

// escalationLadder is the fixed 3-stage ladder. Organization is terminal:
// escalating again is a level-wise no-op but is still recorded.
var escalationLadder = map[string]string{
	models.LevelSector:       models.LevelDistrict,
	models.LevelDistrict:     models.LevelOrganization,
	models.LevelOrganization: models.LevelOrganization,
}

// NextEscalationLevel returns the level above current. Unknown levels map
// to sector so a corrupt row can only ever move up from the bottom.
func NextEscalationLevel(current string) string {
	if next, ok := escalationLadder[current]; ok {
		return next
	}
	return models.LevelSector
}

// statusTransitions is the enforced lifecycle: received → in_progress →
// needs_info → resolved, with rejected reachable from any live state.
// Resolved and rejected are terminal.
var statusTransitions = map[string][]string{
	models.StatusReceived:   {models.StatusInProgress, models.StatusNeedsInfo, models.StatusRejected},
	models.StatusInProgress: {models.StatusNeedsInfo, models.StatusResolved, models.StatusRejected},
	models.StatusNeedsInfo:  {models.StatusInProgress, models.StatusResolved, models.StatusRejected},
	models.StatusResolved:   {},
	models.StatusRejected:   {},
}

// CanTransition reports whether a complaint may move from one status to
// another.
func CanTransition(from, to string) bool {
	for _, allowed := range statusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// FormatComplaintID renders the year-scoped human-readable identifier,
// e.g. CM-2024-007.
func FormatComplaintID(year, seq int) string {
	return fmt.Sprintf("CM-%d-%03d", year, seq)
}

// deleteBlocked is the single delete-refusal rule for every hierarchy
// tier: any child node, affiliated user or complaint blocks deletion
// without cascade. Callers count users excluding the node's own admin
// row, so a node holding nothing but its admin account deletes directly.
func deleteBlocked(children, users, complaints int) bool {
	return children > 0 || users > 0 || complaints > 0
}

// removeURL filters url out of list, preserving order. Returns the input
// unchanged (an equal slice) when url is absent.
func removeURL(list []string, url string) []string {
	out := list[:0:0]
	for _, u := range list {
		if u != url {
			out = append(out, u)
		}
	}
	return out
}

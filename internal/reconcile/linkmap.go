package reconcile

import "github.com/vthunder/goalstate/internal/gtd"

// ReconcileLinkMap keeps entries whose project survived and whose goal exists
func ReconcileLinkMap(m gtd.LinkMap, projectIDs, goalIDs map[string]struct{}) (gtd.LinkMap, int) {
	all := m.Entries()
	kept := make([]gtd.LinkEntry, 0, len(all))
	for _, e := range all {
		if _, ok := projectIDs[e.ProjectID]; !ok {
			continue
		}
		if _, ok := goalIDs[e.GoalID]; !ok {
			continue
		}
		kept = append(kept, e)
	}
	return gtd.NewLinkMap(kept), len(all) - len(kept)
}

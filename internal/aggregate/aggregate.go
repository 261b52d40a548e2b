// Package aggregate recomputes derived project totals from committed
// source collections.
package aggregate

import "crewtime/internal/domain"

// ActualHours returns a copy of projects with ActualHours recomputed as
// the sum of work-entry hours across every Approved timesheet block that
// references the project. Pending and Rejected timesheets contribute
// nothing; any user-authored value is overwritten.
func ActualHours(projects []domain.Project, timesheets []domain.Timesheet) []domain.Project {
	out := make([]domain.Project, len(projects))
	for i, p := range projects {
		var total float64
		for _, ts := range timesheets {
			if ts.Status != domain.StatusApproved {
				continue
			}
			total += ts.Hours(p.ID)
		}
		p.ActualHours = total
		out[i] = p
	}
	return out
}

// Changed reports whether any project's derived total differs between the
// two snapshots. Only the (id, actualHours) projection is compared, so a
// write-back of recomputed totals cannot re-trigger itself.
func Changed(previous, recomputed []domain.Project) bool {
	if len(previous) != len(recomputed) {
		return true
	}
	prev := make(map[int64]float64, len(previous))
	for _, p := range previous {
		prev[p.ID] = p.ActualHours
	}
	for _, p := range recomputed {
		hours, ok := prev[p.ID]
		if !ok || hours != p.ActualHours {
			return true
		}
	}
	return false
}

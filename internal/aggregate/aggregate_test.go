package aggregate_test

import (
	"testing"

	"crewtime/internal/aggregate"
	"crewtime/internal/domain"
)

func sheet(user int64, status domain.Status, project int64, hours ...float64) domain.Timesheet {
	entries := make([]domain.WorkEntry, len(hours))
	for i, h := range hours {
		entries[i] = domain.WorkEntry{Hours: h}
	}
	return domain.Timesheet{
		UserID: user,
		Status: status,
		ProjectWork: []domain.ProjectWork{
			{ProjectID: project, WorkEntries: entries},
		},
	}
}

func TestActualHoursSumsApprovedOnly(t *testing.T) {
	projects := []domain.Project{{ID: 1, Name: "Atlas"}, {ID: 2, Name: "Beacon"}}
	timesheets := []domain.Timesheet{
		sheet(4, domain.StatusApproved, 1, 4, 3.5),
		sheet(5, domain.StatusApproved, 1, 2),
		sheet(4, domain.StatusPending, 1, 8),
		sheet(4, domain.StatusRejected, 2, 6),
		sheet(5, domain.StatusApproved, 2, 1.5),
	}

	out := aggregate.ActualHours(projects, timesheets)

	if out[0].ActualHours != 9.5 {
		t.Fatalf("project 1 hours = %v, want 9.5", out[0].ActualHours)
	}
	if out[1].ActualHours != 1.5 {
		t.Fatalf("project 2 hours = %v, want 1.5", out[1].ActualHours)
	}
}

func TestActualHoursOverwritesAuthoredValue(t *testing.T) {
	projects := []domain.Project{{ID: 1, ActualHours: 777}}
	out := aggregate.ActualHours(projects, nil)
	if out[0].ActualHours != 0 {
		t.Fatalf("hours = %v, want 0", out[0].ActualHours)
	}
}

func TestActualHoursDoesNotMutateInput(t *testing.T) {
	projects := []domain.Project{{ID: 1}}
	timesheets := []domain.Timesheet{sheet(4, domain.StatusApproved, 1, 5)}
	aggregate.ActualHours(projects, timesheets)
	if projects[0].ActualHours != 0 {
		t.Fatalf("input mutated: %v", projects[0].ActualHours)
	}
}

func TestActualHoursMultiProjectSheet(t *testing.T) {
	projects := []domain.Project{{ID: 1}, {ID: 2}}
	ts := domain.Timesheet{
		Status: domain.StatusApproved,
		ProjectWork: []domain.ProjectWork{
			{ProjectID: 1, WorkEntries: []domain.WorkEntry{{Hours: 3}}},
			{ProjectID: 2, WorkEntries: []domain.WorkEntry{{Hours: 5}}},
		},
	}
	out := aggregate.ActualHours(projects, []domain.Timesheet{ts})
	if out[0].ActualHours != 3 || out[1].ActualHours != 5 {
		t.Fatalf("hours = %v, %v", out[0].ActualHours, out[1].ActualHours)
	}
}

func TestChanged(t *testing.T) {
	base := []domain.Project{{ID: 1, ActualHours: 4}, {ID: 2, ActualHours: 0}}

	same := []domain.Project{{ID: 1, ActualHours: 4, Name: "renamed"}, {ID: 2}}
	if aggregate.Changed(base, same) {
		t.Fatal("non-hours fields must not count as change")
	}

	bumped := []domain.Project{{ID: 1, ActualHours: 6}, {ID: 2}}
	if !aggregate.Changed(base, bumped) {
		t.Fatal("hours delta not detected")
	}

	added := []domain.Project{{ID: 1, ActualHours: 4}, {ID: 2}, {ID: 3}}
	if !aggregate.Changed(base, added) {
		t.Fatal("membership delta not detected")
	}
}

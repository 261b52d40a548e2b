package domain

import "testing"

func TestTotalHoursCountsRepeatedProjectBlocksOnce(t *testing.T) {
	sheet := Timesheet{
		ProjectWork: []ProjectWork{
			{ProjectID: 1, WorkEntries: []WorkEntry{{Description: "review", Hours: 2}}},
			{ProjectID: 2, WorkEntries: []WorkEntry{{Description: "standup", Hours: 0.5}}},
			{ProjectID: 1, WorkEntries: []WorkEntry{{Description: "deploy", Hours: 1.5}}},
		},
	}
	if got := sheet.TotalHours(); got != 4 {
		t.Fatalf("TotalHours = %v, want 4", got)
	}
	// Per project the repeated blocks still add up.
	if got := sheet.Hours(1); got != 3.5 {
		t.Fatalf("Hours(1) = %v, want 3.5", got)
	}
}

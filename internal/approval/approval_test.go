package approval_test

import (
	"errors"
	"testing"

	"crewtime/internal/approval"
	"crewtime/internal/domain"
)

var roster = []domain.Actor{
	{ID: 1, Name: "Mara", Role: domain.RoleManager, Company: "Acme"},
	{ID: 2, Name: "Aditi", Role: domain.RoleAdmin, Company: "Acme"},
	{ID: 3, Name: "Theo", Role: domain.RoleTeamLeader, Company: "Acme", ManagerID: 1},
	{ID: 4, Name: "Evan", Role: domain.RoleEmployee, Company: "Acme", ManagerID: 3},
	{ID: 5, Name: "Nia", Role: domain.RoleEmployee, Company: "Acme", ManagerID: 1},
	{ID: 6, Name: "Remy", Role: domain.RoleEmployee, Company: "Globex", ManagerID: 0},
}

func actor(id int64) domain.Actor {
	for _, a := range roster {
		if a.ID == id {
			return a
		}
	}
	return domain.Actor{}
}

func TestVisible(t *testing.T) {
	cases := []struct {
		name     string
		reviewer int64
		owner    int64
		want     bool
	}{
		{"manager sees company employee", 1, 4, true},
		{"manager sees company team leader", 1, 3, true},
		{"manager does not see other company", 1, 6, false},
		{"admin sees company employee", 2, 4, true},
		{"admin does not see peer manager", 2, 1, false},
		{"admin does not see other company", 2, 6, false},
		{"team leader sees direct report", 3, 4, true},
		{"team leader does not see non-report", 3, 5, false},
		{"team leader does not see manager", 3, 1, false},
		{"employee sees nothing", 4, 5, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := approval.Visible(actor(tc.reviewer), actor(tc.owner)); got != tc.want {
				t.Fatalf("Visible(%d, %d) = %v, want %v", tc.reviewer, tc.owner, got, tc.want)
			}
		})
	}
}

func TestResolveExcludesAbsentOwners(t *testing.T) {
	records := []domain.Timesheet{
		{ID: 10, UserID: 4, Status: domain.StatusPending},
		{ID: 11, UserID: 999, Status: domain.StatusPending}, // owner not on roster
		{ID: 12, UserID: 5, Status: domain.StatusApproved},
	}
	got := approval.Resolve(actor(1), roster, records)
	if len(got) != 2 {
		t.Fatalf("resolved %d records, want 2: %v", len(got), got)
	}
	for _, rec := range got {
		if rec.ID == 11 {
			t.Fatal("record with dangling owner leaked through")
		}
	}
}

func TestResolveTeamLeaderScope(t *testing.T) {
	records := []domain.Timesheet{
		{ID: 10, UserID: 4, Status: domain.StatusPending},
		{ID: 11, UserID: 5, Status: domain.StatusPending},
	}
	got := approval.Resolve(actor(3), roster, records)
	if len(got) != 1 || got[0].ID != 10 {
		t.Fatalf("team leader resolved %v, want only record 10", got)
	}
}

func TestAuthorizeTerminalRecord(t *testing.T) {
	rec := domain.Timesheet{ID: 10, UserID: 4, Status: domain.StatusApproved}
	err := approval.Authorize(actor(1), roster, rec, domain.StatusRejected)
	var terminal approval.TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("err = %v, want TerminalError", err)
	}
	if terminal.RecordID != 10 || terminal.Status != domain.StatusApproved {
		t.Fatalf("terminal = %+v", terminal)
	}
}

func TestAuthorizeRejectsNonTerminalTarget(t *testing.T) {
	rec := domain.Timesheet{ID: 10, UserID: 4, Status: domain.StatusPending}
	if err := approval.Authorize(actor(1), roster, rec, domain.StatusPending); err == nil {
		t.Fatal("expected error for Pending target status")
	}
}

func TestAuthorizeDeniedOutsideVisibility(t *testing.T) {
	rec := domain.Timesheet{ID: 10, UserID: 5, Status: domain.StatusPending}
	err := approval.Authorize(actor(3), roster, rec, domain.StatusApproved)
	var denied approval.DeniedError
	if !errors.As(err, &denied) {
		t.Fatalf("err = %v, want DeniedError", err)
	}
}

func TestAuthorizeAllows(t *testing.T) {
	rec := domain.Timesheet{ID: 10, UserID: 4, Status: domain.StatusPending}
	if err := approval.Authorize(actor(1), roster, rec, domain.StatusApproved); err != nil {
		t.Fatalf("manager approve: %v", err)
	}
	if err := approval.Authorize(actor(3), roster, rec, domain.StatusRejected); err != nil {
		t.Fatalf("team leader reject: %v", err)
	}
}

func TestSplit(t *testing.T) {
	records := []domain.LeaveRequest{
		{ID: 1, Status: domain.StatusPending},
		{ID: 2, Status: domain.StatusApproved},
		{ID: 3, Status: domain.StatusRejected},
		{ID: 4, Status: domain.StatusPending},
	}
	pending, history := approval.Split(records)
	if len(pending) != 2 || pending[0].ID != 1 || pending[1].ID != 4 {
		t.Fatalf("pending = %v", pending)
	}
	if len(history) != 2 {
		t.Fatalf("history = %v", history)
	}
}

func TestFilterHistory(t *testing.T) {
	history := []domain.Timesheet{
		{ID: 1, UserID: 4, Date: "2026-01-05", Status: domain.StatusApproved},
		{ID: 2, UserID: 4, Date: "2026-01-20", Status: domain.StatusRejected},
		{ID: 3, UserID: 5, Date: "2026-02-02", Status: domain.StatusApproved},
	}
	date := func(ts domain.Timesheet) string { return ts.Date }
	text := func(ts domain.Timesheet) string { return ts.Date }

	got := approval.FilterHistory(history, approval.HistoryFilter{Status: domain.StatusApproved}, date, text)
	if len(got) != 2 {
		t.Fatalf("status filter: %v", got)
	}

	got = approval.FilterHistory(history, approval.HistoryFilter{From: "2026-01-10", To: "2026-01-31"}, date, text)
	if len(got) != 1 || got[0].ID != 2 {
		t.Fatalf("date window: %v", got)
	}

	got = approval.FilterHistory(history, approval.HistoryFilter{Query: "2026-02"}, date, text)
	if len(got) != 1 || got[0].ID != 3 {
		t.Fatalf("query: %v", got)
	}

	got = approval.FilterHistory(history, approval.HistoryFilter{}, date, text)
	if len(got) != 3 {
		t.Fatalf("zero filter should match everything: %v", got)
	}
}

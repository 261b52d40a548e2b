package notify_test

import (
	"testing"
	"time"

	"crewtime/internal/domain"
	"crewtime/internal/notify"
)

var now = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func TestSubmissionRecipientManagerLink(t *testing.T) {
	owner := domain.Actor{ID: 4, Role: domain.RoleEmployee, ManagerID: 3}
	recipient, ok := notify.SubmissionRecipient(owner, nil)
	if !ok || recipient != 3 {
		t.Fatalf("recipient = %d ok=%v, want 3", recipient, ok)
	}
}

func TestSubmissionRecipientSingleTeamLeaderFallback(t *testing.T) {
	owner := domain.Actor{ID: 4, Role: domain.RoleEmployee}
	projects := []domain.Project{
		{ID: 1, TeamLeaderID: 7, TeamIDs: []int64{4, 5}},
		{ID: 2, TeamLeaderID: 7, TeamIDs: []int64{4}},
		{ID: 3, TeamLeaderID: 9, TeamIDs: []int64{5}}, // owner not a member
	}
	recipient, ok := notify.SubmissionRecipient(owner, projects)
	if !ok || recipient != 7 {
		t.Fatalf("recipient = %d ok=%v, want 7", recipient, ok)
	}
}

func TestSubmissionRecipientAmbiguousLeaders(t *testing.T) {
	owner := domain.Actor{ID: 4, Role: domain.RoleEmployee}
	projects := []domain.Project{
		{ID: 1, TeamLeaderID: 7, TeamIDs: []int64{4}},
		{ID: 2, TeamLeaderID: 9, TeamIDs: []int64{4}},
	}
	if _, ok := notify.SubmissionRecipient(owner, projects); ok {
		t.Fatal("two distinct leaders must yield no recipient")
	}
	if _, ok := notify.SubmissionRecipient(owner, nil); ok {
		t.Fatal("no leaders must yield no recipient")
	}
}

func TestSubmissionRecipientNonEmployeeNoFallback(t *testing.T) {
	owner := domain.Actor{ID: 3, Role: domain.RoleTeamLeader}
	projects := []domain.Project{{ID: 1, TeamLeaderID: 7, TeamIDs: []int64{3}}}
	if _, ok := notify.SubmissionRecipient(owner, projects); ok {
		t.Fatal("project fallback applies to Employees only")
	}
}

func TestForSubmission(t *testing.T) {
	owner := domain.Actor{ID: 4, Name: "Evan", Role: domain.RoleEmployee, ManagerID: 3}
	n, ok := notify.ForSubmission(101, owner, nil, notify.KindLeaveRequest, now)
	if !ok {
		t.Fatal("expected a notice")
	}
	if n.ID != 101 || n.UserID != 3 {
		t.Fatalf("notice = %+v", n)
	}
	if n.LinkTo != notify.LinkTeamLeave {
		t.Fatalf("link = %q, want %q", n.LinkTo, notify.LinkTeamLeave)
	}
	if n.CreatedAt != "2026-03-14T09:30:00Z" {
		t.Fatalf("createdAt = %q", n.CreatedAt)
	}
}

func TestForDecision(t *testing.T) {
	rec := domain.Timesheet{ID: 10, UserID: 4, Status: domain.StatusPending}
	decider := domain.Actor{ID: 1, Name: "Mara"}
	n := notify.ForDecision(102, rec, notify.KindTimesheet, "2026-03-13", decider, domain.StatusApproved, now)
	if n.UserID != 4 {
		t.Fatalf("recipient = %d, want owner 4", n.UserID)
	}
	if n.Title != "Timesheet Approved" {
		t.Fatalf("title = %q", n.Title)
	}
	if n.LinkTo != notify.LinkTimesheets {
		t.Fatalf("link = %q", n.LinkTo)
	}
}

func TestForTaskAssignmentOnlyNewAssignees(t *testing.T) {
	task := domain.Task{ID: 5, Title: "Wire the dashboard", AssignedTo: []int64{4, 5, 6}}
	assigner := domain.Actor{ID: 1, Name: "Mara"}
	next := int64(200)
	nextID := func() int64 { next++; return next }

	out := notify.ForTaskAssignment(task, []int64{4}, assigner, now, nextID)
	if len(out) != 2 {
		t.Fatalf("notices = %v, want 2", out)
	}
	if out[0].UserID != 5 || out[1].UserID != 6 {
		t.Fatalf("recipients = %d, %d", out[0].UserID, out[1].UserID)
	}
	if out[0].ID == out[1].ID {
		t.Fatal("notices must carry distinct ids")
	}
}

func TestForTaskAssignmentNoNewAssignees(t *testing.T) {
	task := domain.Task{ID: 5, AssignedTo: []int64{4}}
	out := notify.ForTaskAssignment(task, []int64{4, 5}, domain.Actor{}, now, func() int64 { return 1 })
	if len(out) != 0 {
		t.Fatalf("notices = %v, want none", out)
	}
}

func TestAnnouncementFanOut(t *testing.T) {
	recipients := []domain.Actor{{ID: 1}, {ID: 2}, {ID: 3}}
	out := notify.Announcement("Office Closed", "Closed Friday.", recipients, now)
	if len(out) != 3 {
		t.Fatalf("records = %d, want 3", len(out))
	}
	stamp := now.UnixMilli()
	seen := make(map[int64]bool)
	for i, n := range out {
		if n.ID != stamp+recipients[i].ID {
			t.Fatalf("id = %d, want %d", n.ID, stamp+recipients[i].ID)
		}
		if seen[n.ID] {
			t.Fatalf("duplicate id %d", n.ID)
		}
		seen[n.ID] = true
		if !n.IsAnnouncement {
			t.Fatal("record not flagged as announcement")
		}
		if n.CreatedAt != out[0].CreatedAt {
			t.Fatal("broadcast records must share one timestamp")
		}
		if notify.GroupKey(n) != notify.GroupKey(out[0]) {
			t.Fatal("broadcast records must share one group key")
		}
	}
}

func TestCollapseAnnouncements(t *testing.T) {
	broadcast := notify.Announcement("Office Closed", "Closed Friday.", []domain.Actor{{ID: 1}, {ID: 2}, {ID: 3}}, now)
	other := domain.Notification{ID: 900, UserID: 1, Title: "New Timesheet Submission", CreatedAt: "2026-03-14T10:00:00Z"}
	second := notify.Announcement("Office Closed", "Closed Friday.", []domain.Actor{{ID: 1}}, now.Add(time.Hour))

	list := append(append(broadcast, other), second...)
	out := notify.CollapseAnnouncements(list)

	if len(out) != 3 {
		t.Fatalf("collapsed = %v, want 3 entries", out)
	}
	if out[0].ID != broadcast[0].ID {
		t.Fatalf("first representative = %+v, want first-seen record", out[0])
	}
	if out[1].ID != 900 {
		t.Fatal("non-announcement record must pass through in place")
	}
}

func TestForActorNewestFirst(t *testing.T) {
	list := []domain.Notification{
		{ID: 1, UserID: 4},
		{ID: 2, UserID: 5},
		{ID: 3, UserID: 4},
	}
	out := notify.ForActor(list, 4)
	if len(out) != 2 || out[0].ID != 3 || out[1].ID != 1 {
		t.Fatalf("out = %v, want [3 1]", out)
	}
}

func TestUnreadCount(t *testing.T) {
	list := []domain.Notification{
		{ID: 1, UserID: 4},
		{ID: 2, UserID: 4, Read: true},
		{ID: 3, UserID: 5},
	}
	if got := notify.UnreadCount(list, 4); got != 1 {
		t.Fatalf("unread = %d, want 1", got)
	}
}

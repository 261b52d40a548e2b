// Package notify produces notification records for domain events and
// keeps the local notification cache converged with the remote store.
package notify

import (
	"fmt"
	"strings"
	"time"

	"crewtime/internal/domain"
)

// Link targets attached to notifications so a rendering collaborator can
// route on tap.
const (
	LinkTimesheets     = "TIMESHEETS"
	LinkLeave          = "LEAVE"
	LinkTeamTimesheets = "TEAM_TIMESHEETS"
	LinkTeamLeave      = "TEAM_LEAVE"
	LinkTasks          = "TASKS"
)

// SubmissionKind names the record variant in submission notices.
type SubmissionKind string

const (
	KindTimesheet    SubmissionKind = "Timesheet"
	KindLeaveRequest SubmissionKind = "Leave Request"
)

func (k SubmissionKind) link() string {
	if k == KindLeaveRequest {
		return LinkTeamLeave
	}
	return LinkTeamTimesheets
}

func (k SubmissionKind) ownerLink() string {
	if k == KindLeaveRequest {
		return LinkLeave
	}
	return LinkTimesheets
}

// SubmissionRecipient picks who reviews a new submission: the owner's
// upward ManagerID link when present. An Employee without one is routed
// through project membership; when their projects name exactly one
// distinct team leader, that leader receives the notice. Zero or several
// distinct leaders is an accepted ambiguity: no recipient, no error.
func SubmissionRecipient(owner domain.Actor, projects []domain.Project) (int64, bool) {
	if owner.ManagerID != 0 {
		return owner.ManagerID, true
	}
	if owner.Role != domain.RoleEmployee {
		return 0, false
	}
	leaders := make(map[int64]struct{})
	for _, p := range projects {
		if p.TeamLeaderID != 0 && p.HasMember(owner.ID) {
			leaders[p.TeamLeaderID] = struct{}{}
		}
	}
	if len(leaders) != 1 {
		return 0, false
	}
	for id := range leaders {
		return id, true
	}
	return 0, false
}

// ForSubmission builds the reviewer notice for a newly submitted record,
// or nothing when routing is ambiguous.
func ForSubmission(id int64, owner domain.Actor, projects []domain.Project, kind SubmissionKind, now time.Time) (domain.Notification, bool) {
	recipient, ok := SubmissionRecipient(owner, projects)
	if !ok {
		return domain.Notification{}, false
	}
	return domain.Notification{
		ID:        id,
		UserID:    recipient,
		Title:     fmt.Sprintf("New %s Submission", kind),
		Message:   fmt.Sprintf("%s (%s) has submitted a %s for review.", owner.Name, owner.Role, strings.ToLower(string(kind))),
		LinkTo:    kind.link(),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}, true
}

// ForDecision builds the single owner notice for a review decision.
func ForDecision(id int64, record domain.Submittable, kind SubmissionKind, date string, decider domain.Actor, status domain.Status, now time.Time) domain.Notification {
	return domain.Notification{
		ID:        id,
		UserID:    record.OwnerID(),
		Title:     fmt.Sprintf("%s %s", kind, status),
		Message:   fmt.Sprintf("Your %s for %s has been %s by %s.", strings.ToLower(string(kind)), date, strings.ToLower(string(status)), decider.Name),
		LinkTo:    kind.ownerLink(),
		CreatedAt: now.UTC().Format(time.RFC3339),
	}
}

// ForTaskAssignment notifies only actors newly present in the task's
// assignee set relative to its previous state. Carry-over assignees
// receive nothing.
func ForTaskAssignment(task domain.Task, previous []int64, assigner domain.Actor, now time.Time, nextID func() int64) []domain.Notification {
	known := make(map[int64]struct{}, len(previous))
	for _, id := range previous {
		known[id] = struct{}{}
	}
	var out []domain.Notification
	for _, assignee := range task.AssignedTo {
		if _, ok := known[assignee]; ok {
			continue
		}
		out = append(out, domain.Notification{
			ID:        nextID(),
			UserID:    assignee,
			Title:     "New Task Assigned",
			Message:   fmt.Sprintf("%s assigned you to task %q.", assigner.Name, task.Title),
			LinkTo:    LinkTasks,
			CreatedAt: now.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// Announcement fans a broadcast out to every company member: one record
// per recipient with a distinct id derived from the shared broadcast
// timestamp and the recipient's id. All N records share one grouping key.
func Announcement(title, message string, recipients []domain.Actor, now time.Time) []domain.Notification {
	stamp := now.UnixMilli()
	created := now.UTC().Format(time.RFC3339)
	out := make([]domain.Notification, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, domain.Notification{
			ID:             stamp + r.ID,
			UserID:         r.ID,
			Title:          title,
			Message:        message,
			CreatedAt:      created,
			IsAnnouncement: true,
		})
	}
	return out
}

// GroupKey collapses an announcement broadcast into one logical entry:
// records sharing a broadcast timestamp and title belong together.
func GroupKey(n domain.Notification) string {
	return n.CreatedAt + "|" + n.Title
}

// CollapseAnnouncements reduces a notification list to one representative
// per announcement group, preserving first-seen order. Non-announcement
// records pass through untouched.
func CollapseAnnouncements(list []domain.Notification) []domain.Notification {
	seen := make(map[string]struct{})
	var out []domain.Notification
	for _, n := range list {
		if !n.IsAnnouncement {
			out = append(out, n)
			continue
		}
		key := GroupKey(n)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, n)
	}
	return out
}

// ForActor returns the actor's own notifications, newest first by id.
func ForActor(list []domain.Notification, actorID int64) []domain.Notification {
	var out []domain.Notification
	for _, n := range list {
		if n.UserID == actorID {
			out = append(out, n)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// UnreadCount counts the actor's unread notifications.
func UnreadCount(list []domain.Notification, actorID int64) int {
	count := 0
	for _, n := range list {
		if n.UserID == actorID && !n.Read {
			count++
		}
	}
	return count
}

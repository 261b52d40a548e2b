package engine

import (
	"context"
	"fmt"
	"strings"

	"crewtime/internal/approval"
	"crewtime/internal/domain"
	"crewtime/internal/notify"
)

// ReviewableTimesheets resolves the timesheets this session may see and
// decide. Deterministic for a given snapshot.
func (e Engine) ReviewableTimesheets() []domain.Timesheet {
	return approval.Resolve(e.Store.Me, e.Store.Users, e.Store.CompanyTimesheets())
}

// ReviewableLeaveRequests resolves the leave requests this session may
// see and decide.
func (e Engine) ReviewableLeaveRequests() []domain.LeaveRequest {
	return approval.Resolve(e.Store.Me, e.Store.Users, e.Store.CompanyLeaveRequests())
}

// TimesheetQueue splits the resolved timesheets into the actionable
// Pending queue and decided history, with the filter applied to history.
func (e Engine) TimesheetQueue(f approval.HistoryFilter) (pending, history []domain.Timesheet) {
	pending, history = approval.Split(e.ReviewableTimesheets())
	history = approval.FilterHistory(history, f,
		func(t domain.Timesheet) string { return t.Date },
		timesheetText)
	return pending, history
}

// LeaveQueue splits the resolved leave requests the same way.
func (e Engine) LeaveQueue(f approval.HistoryFilter) (pending, history []domain.LeaveRequest) {
	pending, history = approval.Split(e.ReviewableLeaveRequests())
	history = approval.FilterHistory(history, f,
		func(l domain.LeaveRequest) string {
			if len(l.LeaveEntries) == 0 {
				return ""
			}
			return l.LeaveEntries[0].Date
		},
		leaveText)
	return pending, history
}

// ReviewTimesheet transitions a Pending timesheet to a terminal status.
// The resolver is consulted before any network call; out-of-scope
// reviewers and repeat decisions both fail without side effects. The
// owner receives exactly one decision notice.
func (e Engine) ReviewTimesheet(ctx context.Context, id int64, to domain.Status) (domain.Timesheet, error) {
	ts, ok := findTimesheet(e.Store.Timesheets, id)
	if !ok {
		return domain.Timesheet{}, fmt.Errorf("timesheet %d not found", id)
	}
	if err := approval.Authorize(e.Store.Me, e.Store.Users, ts, to); err != nil {
		return domain.Timesheet{}, err
	}

	e.AddNotification(ctx, notify.ForDecision(e.Store.NewID(), ts, notify.KindTimesheet, ts.Date, e.Store.Me, to, e.now()))

	ts.Status = to
	ts.ApproverID = e.Store.Me.ID
	e.SyncTimesheets(ctx, replaceTimesheet(e.Store.Timesheets, ts))
	return ts, nil
}

// ReviewLeaveRequest transitions a Pending leave request to a terminal
// status under the same resolver and terminal-state guards.
func (e Engine) ReviewLeaveRequest(ctx context.Context, id int64, to domain.Status) (domain.LeaveRequest, error) {
	var lr domain.LeaveRequest
	found := false
	for _, l := range e.Store.LeaveRequests {
		if l.ID == id {
			lr, found = l, true
			break
		}
	}
	if !found {
		return domain.LeaveRequest{}, fmt.Errorf("leave request %d not found", id)
	}
	if err := approval.Authorize(e.Store.Me, e.Store.Users, lr, to); err != nil {
		return domain.LeaveRequest{}, err
	}

	date := ""
	if len(lr.LeaveEntries) > 0 {
		date = lr.LeaveEntries[0].Date
	}
	e.AddNotification(ctx, notify.ForDecision(e.Store.NewID(), lr, notify.KindLeaveRequest, date, e.Store.Me, to, e.now()))

	lr.Status = to
	lr.ApproverID = e.Store.Me.ID
	desired := make([]domain.LeaveRequest, len(e.Store.LeaveRequests))
	for i, l := range e.Store.LeaveRequests {
		if l.ID == lr.ID {
			desired[i] = lr
		} else {
			desired[i] = l
		}
	}
	e.SyncLeaveRequests(ctx, desired)
	return lr, nil
}

func timesheetText(t domain.Timesheet) string {
	var b strings.Builder
	b.WriteString(t.Date)
	for _, pw := range t.ProjectWork {
		for _, entry := range pw.WorkEntries {
			b.WriteByte(' ')
			b.WriteString(entry.Description)
		}
	}
	return b.String()
}

func leaveText(l domain.LeaveRequest) string {
	var b strings.Builder
	b.WriteString(l.Reason)
	for _, entry := range l.LeaveEntries {
		b.WriteByte(' ')
		b.WriteString(entry.Date)
	}
	return b.String()
}

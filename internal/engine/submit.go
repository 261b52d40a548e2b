package engine

import (
	"context"
	"fmt"
	"strings"

	"crewtime/internal/domain"
	"crewtime/internal/notify"
)

// validateTimesheet enforces the submission contract before any network
// call: a date plus at least one work entry with a description and
// positive hours. A project reference is required for everyone except
// Admins and Managers, who may log unprojected work.
func (e Engine) validateTimesheet(ts domain.Timesheet) ([]domain.ProjectWork, error) {
	if strings.TrimSpace(ts.Date) == "" {
		return nil, fmt.Errorf("timesheet date is required")
	}
	projectOptional := e.Store.Me.Role == domain.RoleAdmin || e.Store.Me.Role == domain.RoleManager
	var cleaned []domain.ProjectWork
	for _, pw := range ts.ProjectWork {
		var entries []domain.WorkEntry
		for _, entry := range pw.WorkEntries {
			if strings.TrimSpace(entry.Description) == "" || entry.Hours <= 0 {
				continue
			}
			entries = append(entries, entry)
		}
		if len(entries) == 0 {
			continue
		}
		if pw.ProjectID == 0 && !projectOptional {
			continue
		}
		cleaned = append(cleaned, domain.ProjectWork{ProjectID: pw.ProjectID, WorkEntries: entries})
	}
	if len(cleaned) == 0 {
		if projectOptional {
			return nil, fmt.Errorf("at least one work entry with a description and hours is required")
		}
		return nil, fmt.Errorf("at least one work entry with a project, description, and hours is required")
	}
	return cleaned, nil
}

// SubmitTimesheet creates a Pending timesheet owned by the session actor
// and routes the reviewer notice. Returns the committed record, which may
// carry a server-assigned id.
func (e Engine) SubmitTimesheet(ctx context.Context, ts domain.Timesheet) (domain.Timesheet, error) {
	work, err := e.validateTimesheet(ts)
	if err != nil {
		return domain.Timesheet{}, err
	}
	ts.ProjectWork = work
	ts.UserID = e.Store.Me.ID
	ts.Status = domain.StatusPending
	ts.ApproverID = 0
	if ts.ID == 0 {
		ts.ID = e.Store.NewID()
	}

	desired := append(append([]domain.Timesheet(nil), e.Store.Timesheets...), ts)
	e.SyncTimesheets(ctx, desired)
	committed := e.Store.Timesheets[len(e.Store.Timesheets)-1]

	if n, ok := notify.ForSubmission(e.Store.NewID(), e.Store.Me, e.Store.CompanyProjects(), notify.KindTimesheet, e.now()); ok {
		e.AddNotification(ctx, n)
	}
	e.Store.Toast("Timesheet Submitted", fmt.Sprintf("Your timesheet for %s has been submitted.", committed.Date))
	return committed, nil
}

// UpdateTimesheet rewrites a Pending timesheet owned by the session actor.
// Decided records are immutable.
func (e Engine) UpdateTimesheet(ctx context.Context, ts domain.Timesheet) (domain.Timesheet, error) {
	existing, ok := findTimesheet(e.Store.Timesheets, ts.ID)
	if !ok {
		return domain.Timesheet{}, fmt.Errorf("timesheet %d not found", ts.ID)
	}
	if existing.UserID != e.Store.Me.ID {
		return domain.Timesheet{}, ErrNotOwner
	}
	if existing.Status != domain.StatusPending {
		return domain.Timesheet{}, ErrNotPending
	}
	work, err := e.validateTimesheet(ts)
	if err != nil {
		return domain.Timesheet{}, err
	}
	ts.ProjectWork = work
	ts.UserID = existing.UserID
	ts.Status = domain.StatusPending
	ts.ApproverID = 0

	desired := replaceTimesheet(e.Store.Timesheets, ts)
	e.SyncTimesheets(ctx, desired)
	e.Store.Toast("Timesheet Updated", fmt.Sprintf("Your timesheet for %s has been updated.", ts.Date))
	return ts, nil
}

// DeleteTimesheet removes a timesheet, allowed only to its owner and only
// while it is still Pending.
func (e Engine) DeleteTimesheet(ctx context.Context, id int64) error {
	existing, ok := findTimesheet(e.Store.Timesheets, id)
	if !ok {
		return fmt.Errorf("timesheet %d not found", id)
	}
	if existing.UserID != e.Store.Me.ID {
		return ErrNotOwner
	}
	if existing.Status != domain.StatusPending {
		return ErrNotPending
	}
	desired := make([]domain.Timesheet, 0, len(e.Store.Timesheets)-1)
	for _, t := range e.Store.Timesheets {
		if t.ID != id {
			desired = append(desired, t)
		}
	}
	e.SyncTimesheets(ctx, desired)
	return nil
}

// SubmitLeaveRequest creates a Pending leave request owned by the session
// actor and routes the reviewer notice.
func (e Engine) SubmitLeaveRequest(ctx context.Context, lr domain.LeaveRequest) (domain.LeaveRequest, error) {
	if len(lr.LeaveEntries) == 0 {
		return domain.LeaveRequest{}, fmt.Errorf("at least one leave entry is required")
	}
	for _, entry := range lr.LeaveEntries {
		if strings.TrimSpace(entry.Date) == "" {
			return domain.LeaveRequest{}, fmt.Errorf("every leave entry needs a date")
		}
	}
	if strings.TrimSpace(lr.Reason) == "" {
		return domain.LeaveRequest{}, fmt.Errorf("a leave reason is required")
	}
	lr.UserID = e.Store.Me.ID
	lr.Status = domain.StatusPending
	lr.ApproverID = 0
	if lr.ID == 0 {
		lr.ID = e.Store.NewID()
	}

	desired := append(append([]domain.LeaveRequest(nil), e.Store.LeaveRequests...), lr)
	e.SyncLeaveRequests(ctx, desired)
	committed := e.Store.LeaveRequests[len(e.Store.LeaveRequests)-1]

	if n, ok := notify.ForSubmission(e.Store.NewID(), e.Store.Me, e.Store.CompanyProjects(), notify.KindLeaveRequest, e.now()); ok {
		e.AddNotification(ctx, n)
	}
	e.Store.Toast("Leave Request Submitted", "Your leave request has been submitted for review.")
	return committed, nil
}

// DeleteLeaveRequest removes a leave request, owner-only and Pending-only.
func (e Engine) DeleteLeaveRequest(ctx context.Context, id int64) error {
	for _, l := range e.Store.LeaveRequests {
		if l.ID != id {
			continue
		}
		if l.UserID != e.Store.Me.ID {
			return ErrNotOwner
		}
		if l.Status != domain.StatusPending {
			return ErrNotPending
		}
		desired := make([]domain.LeaveRequest, 0, len(e.Store.LeaveRequests)-1)
		for _, keep := range e.Store.LeaveRequests {
			if keep.ID != id {
				desired = append(desired, keep)
			}
		}
		e.SyncLeaveRequests(ctx, desired)
		return nil
	}
	return fmt.Errorf("leave request %d not found", id)
}

func findTimesheet(list []domain.Timesheet, id int64) (domain.Timesheet, bool) {
	for _, t := range list {
		if t.ID == id {
			return t, true
		}
	}
	return domain.Timesheet{}, false
}

func replaceTimesheet(list []domain.Timesheet, ts domain.Timesheet) []domain.Timesheet {
	out := make([]domain.Timesheet, len(list))
	for i, t := range list {
		if t.ID == ts.ID {
			out[i] = ts
		} else {
			out[i] = t
		}
	}
	return out
}

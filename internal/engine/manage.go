package engine

import (
	"context"
	"fmt"

	"crewtime/internal/domain"
	"crewtime/internal/notify"
)

// canManageProjects reports whether the session actor may author projects.
func (e Engine) canManageProjects() bool {
	switch e.Store.Me.Role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleSuperadmin:
		return true
	}
	return false
}

// canManageTask additionally admits the project's team leader.
func (e Engine) canManageTask(projectID int64) bool {
	if e.canManageProjects() {
		return true
	}
	if e.Store.Me.Role != domain.RoleTeamLeader {
		return false
	}
	for _, p := range e.Store.Projects {
		if p.ID == projectID {
			return p.TeamLeaderID == e.Store.Me.ID
		}
	}
	return false
}

// SaveProject creates or updates a project. ActualHours is derived from
// approved timesheets; whatever the caller set is overwritten with the
// current snapshot value before the write.
func (e Engine) SaveProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	if !e.canManageProjects() {
		return domain.Project{}, fmt.Errorf("save project: %w", ErrPermission)
	}
	if p.Name == "" {
		return domain.Project{}, fmt.Errorf("project name is required")
	}
	if p.Company == "" {
		p.Company = e.Store.Me.Company
	}

	created := p.ID == 0
	var desired []domain.Project
	if created {
		p.ID = e.Store.NewID()
		desired = append(append([]domain.Project(nil), e.Store.Projects...), p)
	} else {
		found := false
		desired = make([]domain.Project, len(e.Store.Projects))
		for i, cur := range e.Store.Projects {
			if cur.ID == p.ID {
				p.ActualHours = cur.ActualHours
				desired[i] = p
				found = true
				continue
			}
			desired[i] = cur
		}
		if !found {
			return domain.Project{}, fmt.Errorf("project %d not found", p.ID)
		}
	}

	e.SyncProjects(ctx, desired)
	if created {
		// the server may have replaced the provisional id on create
		if n := len(e.Store.Projects); n > 0 {
			return e.Store.Projects[n-1], nil
		}
		return p, nil
	}
	for _, cur := range e.Store.Projects {
		if cur.ID == p.ID {
			return cur, nil
		}
	}
	return p, nil
}

// DeleteProject removes a project and every task that belongs to it.
func (e Engine) DeleteProject(ctx context.Context, id int64) error {
	if !e.canManageProjects() {
		return fmt.Errorf("delete project: %w", ErrPermission)
	}
	found := false
	var projects []domain.Project
	for _, p := range e.Store.Projects {
		if p.ID == id {
			found = true
			continue
		}
		projects = append(projects, p)
	}
	if !found {
		return fmt.Errorf("project %d not found", id)
	}

	var tasks []domain.Task
	orphaned := false
	for _, t := range e.Store.Tasks {
		if t.ProjectID == id {
			orphaned = true
			continue
		}
		tasks = append(tasks, t)
	}
	if orphaned {
		e.SyncTasks(ctx, tasks)
	}
	e.SyncProjects(ctx, projects)
	return nil
}

// SaveTask creates or updates a task and notifies every actor newly added
// to its assignee list. Actors already on the list get nothing even when
// the task is otherwise edited.
func (e Engine) SaveTask(ctx context.Context, task domain.Task) (domain.Task, error) {
	if !e.canManageTask(task.ProjectID) {
		return domain.Task{}, fmt.Errorf("save task: %w", ErrPermission)
	}
	if task.Title == "" {
		return domain.Task{}, fmt.Errorf("task title is required")
	}
	if task.Status == "" {
		task.Status = domain.TaskToDo
	}

	var previous []int64
	var desired []domain.Task
	if task.ID == 0 {
		task.ID = e.Store.NewID()
		desired = append(append([]domain.Task(nil), e.Store.Tasks...), task)
	} else {
		found := false
		desired = make([]domain.Task, len(e.Store.Tasks))
		for i, cur := range e.Store.Tasks {
			if cur.ID == task.ID {
				previous = cur.AssignedTo
				desired[i] = task
				found = true
				continue
			}
			desired[i] = cur
		}
		if !found {
			return domain.Task{}, fmt.Errorf("task %d not found", task.ID)
		}
	}

	e.SyncTasks(ctx, desired)

	notices := notify.ForTaskAssignment(task, previous, e.Store.Me, e.now(), e.Store.NewID)
	if len(notices) > 0 {
		all := append(append([]domain.Notification(nil), e.Store.Notifications...), notices...)
		e.SyncNotifications(ctx, all)
	}
	return task, nil
}

// UpdateTaskStatus moves a task across the board. Assignees may move their
// own tasks; project authors may move any. Reaching Done stamps the
// completion date, leaving Done clears it.
func (e Engine) UpdateTaskStatus(ctx context.Context, id int64, to domain.TaskStatus) (domain.Task, error) {
	for _, cur := range e.Store.Tasks {
		if cur.ID != id {
			continue
		}
		assigned := false
		for _, a := range cur.AssignedTo {
			if a == e.Store.Me.ID {
				assigned = true
				break
			}
		}
		if !assigned && !e.canManageTask(cur.ProjectID) {
			return domain.Task{}, fmt.Errorf("update task status: %w", ErrPermission)
		}
		cur.Status = to
		if to == domain.TaskDone {
			cur.CompletionDate = e.now().Format("2006-01-02")
		} else {
			cur.CompletionDate = ""
		}
		desired := make([]domain.Task, len(e.Store.Tasks))
		for i, t := range e.Store.Tasks {
			if t.ID == id {
				desired[i] = cur
			} else {
				desired[i] = t
			}
		}
		e.SyncTasks(ctx, desired)
		return cur, nil
	}
	return domain.Task{}, fmt.Errorf("task %d not found", id)
}

// DeleteTask removes a task from the board.
func (e Engine) DeleteTask(ctx context.Context, id int64) error {
	for _, cur := range e.Store.Tasks {
		if cur.ID != id {
			continue
		}
		if !e.canManageTask(cur.ProjectID) {
			return fmt.Errorf("delete task: %w", ErrPermission)
		}
		var desired []domain.Task
		for _, t := range e.Store.Tasks {
			if t.ID != id {
				desired = append(desired, t)
			}
		}
		e.SyncTasks(ctx, desired)
		return nil
	}
	return fmt.Errorf("task %d not found", id)
}

// SetBestEmployees replaces one period's designations wholesale. Records
// whose user survives the replacement keep their ids so the reconciler
// issues updates, not churn.
func (e Engine) SetBestEmployees(ctx context.Context, period string, userIDs []int64) error {
	switch e.Store.Me.Role {
	case domain.RoleAdmin, domain.RoleSuperadmin:
	default:
		return fmt.Errorf("set best employees: %w", ErrPermission)
	}
	if period != domain.BestEmployeePeriodMonth && period != domain.BestEmployeePeriodYear {
		return fmt.Errorf("unknown period %q", period)
	}

	existing := make(map[int64]int64)
	var desired []domain.BestEmployee
	for _, be := range e.Store.BestEmployees {
		if be.Period == period {
			existing[be.UserID] = be.ID
			continue
		}
		desired = append(desired, be)
	}
	for _, uid := range userIDs {
		id, ok := existing[uid]
		if !ok {
			id = e.Store.NewID()
		}
		desired = append(desired, domain.BestEmployee{ID: id, UserID: uid, Period: period})
	}
	e.SyncBestEmployees(ctx, desired)
	return nil
}

// UpdateProfile edits an actor record. Anyone may edit their own contact
// fields; only Admin and Superadmin may edit others or change a role.
func (e Engine) UpdateProfile(ctx context.Context, a domain.Actor) (domain.Actor, error) {
	admin := e.Store.Me.Role == domain.RoleAdmin || e.Store.Me.Role == domain.RoleSuperadmin
	if a.ID != e.Store.Me.ID && !admin {
		return domain.Actor{}, fmt.Errorf("update profile: %w", ErrPermission)
	}

	desired := make([]domain.Actor, len(e.Store.Users))
	found := false
	for i, cur := range e.Store.Users {
		if cur.ID == a.ID {
			if !admin {
				a.Role = cur.Role
				a.ManagerID = cur.ManagerID
				a.Company = cur.Company
			}
			desired[i] = a
			found = true
			continue
		}
		desired[i] = cur
	}
	if !found {
		return domain.Actor{}, fmt.Errorf("user %d not found", a.ID)
	}

	e.SyncUsers(ctx, desired)
	if a.ID == e.Store.Me.ID {
		e.Store.Me = a
	}
	return a, nil
}

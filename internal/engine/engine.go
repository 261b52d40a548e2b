// Package engine ties the reconciler, approval workflow, aggregation, and
// notification fan-out together behind the operations a session performs.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"crewtime/internal/aggregate"
	"crewtime/internal/alert"
	"crewtime/internal/config"
	"crewtime/internal/domain"
	"crewtime/internal/notify"
	"crewtime/internal/reconcile"
	"crewtime/internal/remote"
	"crewtime/internal/session"
)

var (
	// ErrNotOwner guards records against modification by anyone else.
	ErrNotOwner = errors.New("only the owner may modify this record")
	// ErrNotPending guards decided records against edits and deletion.
	ErrNotPending = errors.New("only pending records may be modified or deleted")
	// ErrPermission is the generic role-gate denial.
	ErrPermission = errors.New("permission denied")
)

// Engine executes session operations against the remote store through the
// collection reconciler. All work runs on the session's single logical
// thread; the only suspension points are the network round-trips inside
// a sync and the notification poll.
type Engine struct {
	Client *remote.Client
	Store  *session.Store
	Config *config.Config
	Logger *log.Logger
	Now    func() time.Time
}

// New wires an engine for an authenticated session.
func New(client *remote.Client, store *session.Store, cfg *config.Config) Engine {
	return Engine{
		Client: client,
		Store:  store,
		Config: cfg,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	if e.Store != nil && e.Store.Now != nil {
		return e.Store.Now()
	}
	return time.Now()
}

func (e Engine) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.Default()
}

func syncer[T any](e Engine, key string, id func(T) int64, withID func(T, int64) T) reconcile.Syncer[T] {
	return reconcile.Syncer[T]{
		Key:    key,
		ID:     id,
		WithID: withID,
		Remote: remote.NewResource[T](e.Client, key),
		Logger: e.Logger,
		OnError: func(collection string, err error) {
			e.Store.Toast("Sync Error", fmt.Sprintf("%s: %v", collection, err))
		},
		OnCommit: e.Store.OnChange,
	}
}

func (e Engine) userSyncer() reconcile.Syncer[domain.Actor] {
	return syncer(e, remote.Users,
		func(a domain.Actor) int64 { return a.ID },
		func(a domain.Actor, id int64) domain.Actor { a.ID = id; return a })
}

func (e Engine) projectSyncer() reconcile.Syncer[domain.Project] {
	return syncer(e, remote.Projects,
		func(p domain.Project) int64 { return p.ID },
		func(p domain.Project, id int64) domain.Project { p.ID = id; return p })
}

func (e Engine) taskSyncer() reconcile.Syncer[domain.Task] {
	return syncer(e, remote.Tasks,
		func(t domain.Task) int64 { return t.ID },
		func(t domain.Task, id int64) domain.Task { t.ID = id; return t })
}

func (e Engine) timesheetSyncer() reconcile.Syncer[domain.Timesheet] {
	return syncer(e, remote.Timesheets,
		func(t domain.Timesheet) int64 { return t.ID },
		func(t domain.Timesheet, id int64) domain.Timesheet { t.ID = id; return t })
}

func (e Engine) leaveSyncer() reconcile.Syncer[domain.LeaveRequest] {
	return syncer(e, remote.LeaveRequests,
		func(l domain.LeaveRequest) int64 { return l.ID },
		func(l domain.LeaveRequest, id int64) domain.LeaveRequest { l.ID = id; return l })
}

func (e Engine) notificationSyncer() reconcile.Syncer[domain.Notification] {
	return syncer(e, remote.Notifications,
		func(n domain.Notification) int64 { return n.ID },
		func(n domain.Notification, id int64) domain.Notification { n.ID = id; return n })
}

func (e Engine) bestEmployeeSyncer() reconcile.Syncer[domain.BestEmployee] {
	return syncer(e, remote.BestEmployees,
		func(b domain.BestEmployee) int64 { return b.ID },
		func(b domain.BestEmployee, id int64) domain.BestEmployee { b.ID = id; return b })
}

// SyncUsers reconciles the user roster toward desired and commits it.
func (e Engine) SyncUsers(ctx context.Context, desired []domain.Actor) {
	e.Store.Users = e.userSyncer().Sync(ctx, e.Store.Users, desired)
}

// SyncProjects reconciles projects toward desired, then recomputes the
// derived hours so a user-authored ActualHours never survives a commit.
func (e Engine) SyncProjects(ctx context.Context, desired []domain.Project) {
	e.Store.Projects = e.projectSyncer().Sync(ctx, e.Store.Projects, desired)
	e.RecomputeProjectHours(ctx)
}

// SyncTasks reconciles the task board toward desired.
func (e Engine) SyncTasks(ctx context.Context, desired []domain.Task) {
	e.Store.Tasks = e.taskSyncer().Sync(ctx, e.Store.Tasks, desired)
}

// SyncTimesheets reconciles timesheets toward desired and retriggers the
// aggregation pass that keeps project totals consistent with approvals.
func (e Engine) SyncTimesheets(ctx context.Context, desired []domain.Timesheet) {
	e.Store.Timesheets = e.timesheetSyncer().Sync(ctx, e.Store.Timesheets, desired)
	e.RecomputeProjectHours(ctx)
}

// SyncLeaveRequests reconciles leave requests toward desired.
func (e Engine) SyncLeaveRequests(ctx context.Context, desired []domain.LeaveRequest) {
	e.Store.LeaveRequests = e.leaveSyncer().Sync(ctx, e.Store.LeaveRequests, desired)
}

// SyncNotifications reconciles notifications toward desired and bumps the
// snapshot revision so an in-flight poll cannot clobber this commit.
func (e Engine) SyncNotifications(ctx context.Context, desired []domain.Notification) {
	committed := e.notificationSyncer().Sync(ctx, e.Store.Notifications, desired)
	e.Store.CommitNotifications(committed)
}

// SyncBestEmployees reconciles the designation collection toward desired.
func (e Engine) SyncBestEmployees(ctx context.Context, desired []domain.BestEmployee) {
	e.Store.BestEmployees = e.bestEmployeeSyncer().Sync(ctx, e.Store.BestEmployees, desired)
}

// RecomputeProjectHours runs the idempotent aggregation pass: compute the
// candidate totals, compare against the committed snapshot, and write back
// only when something differs. The projection compare breaks the feedback
// loop a write-back would otherwise enter.
func (e Engine) RecomputeProjectHours(ctx context.Context) {
	candidate := aggregate.ActualHours(e.Store.Projects, e.Store.Timesheets)
	if !aggregate.Changed(e.Store.Projects, candidate) {
		return
	}
	e.Store.Projects = e.projectSyncer().Sync(ctx, e.Store.Projects, candidate)
}

// Load pulls every collection from the remote store and replaces the
// session snapshots wholesale, then runs one aggregation pass.
func (e Engine) Load(ctx context.Context) error {
	users, err := remote.NewResource[domain.Actor](e.Client, remote.Users).List(ctx)
	if err != nil {
		return fmt.Errorf("load users: %w", err)
	}
	projects, err := remote.NewResource[domain.Project](e.Client, remote.Projects).List(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	tasks, err := remote.NewResource[domain.Task](e.Client, remote.Tasks).List(ctx)
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	timesheets, err := remote.NewResource[domain.Timesheet](e.Client, remote.Timesheets).List(ctx)
	if err != nil {
		return fmt.Errorf("load timesheets: %w", err)
	}
	leaves, err := remote.NewResource[domain.LeaveRequest](e.Client, remote.LeaveRequests).List(ctx)
	if err != nil {
		return fmt.Errorf("load leave requests: %w", err)
	}
	notifications, err := remote.NewResource[domain.Notification](e.Client, remote.Notifications).List(ctx)
	if err != nil {
		return fmt.Errorf("load notifications: %w", err)
	}
	best, err := remote.NewResource[domain.BestEmployee](e.Client, remote.BestEmployees).List(ctx)
	if err != nil {
		return fmt.Errorf("load best employees: %w", err)
	}

	e.Store.Users = users
	e.Store.Projects = projects
	e.Store.Tasks = tasks
	e.Store.Timesheets = timesheets
	e.Store.LeaveRequests = leaves
	e.Store.CommitNotifications(notifications)
	e.Store.BestEmployees = best

	e.RecomputeProjectHours(ctx)
	return nil
}

// NewPoller builds the delivery-convergence loop for this session.
func (e Engine) NewPoller(alerter alert.Alerter) *notify.Poller {
	interval := time.Second
	if e.Config != nil && e.Config.Sync.PollInterval > 0 {
		interval = e.Config.Sync.PollInterval
	}
	return &notify.Poller{
		Fetch: func(ctx context.Context) ([]domain.Notification, error) {
			return remote.NewResource[domain.Notification](e.Client, remote.Notifications).List(ctx)
		},
		Store:    e.Store,
		Alerter:  alerter,
		Interval: interval,
		Logger:   e.Logger,
	}
}

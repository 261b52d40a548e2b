// Package session owns the mirrored collections for one authenticated
// session. A Store is constructed after login and torn down on logout;
// nothing here survives the session or is shared across logins.
package session

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"crewtime/internal/domain"
)

// Identity is the decoded session identity attached to every call.
type Identity struct {
	ID      int64
	Role    domain.Role
	Company string
}

// Claims is the JWT payload carried by the bearer credential.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int64  `json:"uid"`
	Role    string `json:"role"`
	Company string `json:"company,omitempty"`
}

// DecodeIdentity extracts the session identity from a bearer credential
// without verifying it. Verification happens at the remote store; on the
// client the token is opaque except for the identity it names.
func DecodeIdentity(token string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Identity{}, err
	}
	if claims.UserID == 0 {
		return Identity{}, errors.New("token carries no user id")
	}
	return Identity{
		ID:      claims.UserID,
		Role:    domain.Role(claims.Role),
		Company: claims.Company,
	}, nil
}

// Store is the committed local snapshot of every synced collection, plus
// the ephemeral toast stream. All snapshot access happens on the session's
// single logical thread of control; the Store itself does no locking.
type Store struct {
	Identity Identity
	Me       domain.Actor

	Users         []domain.Actor
	Projects      []domain.Project
	Tasks         []domain.Task
	Timesheets    []domain.Timesheet
	LeaveRequests []domain.LeaveRequest
	Notifications []domain.Notification
	BestEmployees []domain.BestEmployee

	// OnChange is the best-effort cross-session change signal, fired by
	// the reconciler after each committed batch.
	OnChange func(collection string)

	Now func() time.Time

	toasts   chan domain.Toast
	lastID   int64
	notifRev int64
}

// NewStore builds the session store for an authenticated actor.
func NewStore(identity Identity, me domain.Actor) *Store {
	return &Store{
		Identity: identity,
		Me:       me,
		Now:      time.Now,
		toasts:   make(chan domain.Toast, 64),
	}
}

// NewID returns a client-provisional id derived from the wall clock in
// milliseconds. Consecutive calls within one millisecond are bumped so a
// batch never reuses an id; the server may still replace it on create.
func (s *Store) NewID() int64 {
	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func (s *Store) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Toast queues an ephemeral notification. The stream never blocks a
// mutation path; when no consumer keeps up, the toast is dropped.
func (s *Store) Toast(title, message string) {
	t := domain.Toast{ID: s.NewID(), Title: title, Message: message}
	select {
	case s.toasts <- t:
	default:
	}
}

// CommitNotifications replaces the notification snapshot and bumps its
// revision. A poll result fetched against an older revision must be
// discarded rather than committed over newer local state.
func (s *Store) CommitNotifications(list []domain.Notification) {
	s.Notifications = list
	s.notifRev++
}

// NotificationsRev returns the current notification snapshot revision.
func (s *Store) NotificationsRev() int64 {
	return s.notifRev
}

// Toasts exposes the ephemeral toast stream to rendering collaborators.
func (s *Store) Toasts() <-chan domain.Toast {
	return s.toasts
}

// Close tears the session down. Snapshots are dropped and the toast
// stream is closed; the Store must not be used afterwards.
func (s *Store) Close() {
	s.Users = nil
	s.Projects = nil
	s.Tasks = nil
	s.Timesheets = nil
	s.LeaveRequests = nil
	s.Notifications = nil
	s.BestEmployees = nil
	close(s.toasts)
}

// CompanyUsers returns the roster visible to this session: the whole
// directory for a Superadmin, company members for everyone else.
func (s *Store) CompanyUsers() []domain.Actor {
	if s.Identity.Role == domain.RoleSuperadmin {
		return s.Users
	}
	var out []domain.Actor
	for _, u := range s.Users {
		if u.Company == s.Identity.Company {
			out = append(out, u)
		}
	}
	return out
}

// CompanyProjects returns projects scoped the same way as CompanyUsers.
func (s *Store) CompanyProjects() []domain.Project {
	if s.Identity.Role == domain.RoleSuperadmin {
		return s.Projects
	}
	var out []domain.Project
	for _, p := range s.Projects {
		if p.Company == s.Identity.Company {
			out = append(out, p)
		}
	}
	return out
}

// CompanyTimesheets returns timesheets owned by company members.
func (s *Store) CompanyTimesheets() []domain.Timesheet {
	if s.Identity.Role == domain.RoleSuperadmin {
		return s.Timesheets
	}
	members := s.companyMemberIDs()
	var out []domain.Timesheet
	for _, t := range s.Timesheets {
		if _, ok := members[t.UserID]; ok {
			out = append(out, t)
		}
	}
	return out
}

// CompanyLeaveRequests returns leave requests owned by company members.
func (s *Store) CompanyLeaveRequests() []domain.LeaveRequest {
	if s.Identity.Role == domain.RoleSuperadmin {
		return s.LeaveRequests
	}
	members := s.companyMemberIDs()
	var out []domain.LeaveRequest
	for _, l := range s.LeaveRequests {
		if _, ok := members[l.UserID]; ok {
			out = append(out, l)
		}
	}
	return out
}

func (s *Store) companyMemberIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, u := range s.CompanyUsers() {
		ids[u.ID] = struct{}{}
	}
	return ids
}

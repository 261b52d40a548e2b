package session_test

import (
	"testing"
	"time"

	"crewtime/internal/domain"
	"crewtime/internal/session"
)

func frozenStore(identity session.Identity) *session.Store {
	s := session.NewStore(identity, domain.Actor{ID: identity.ID})
	s.Now = func() time.Time { return time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC) }
	return s
}

func TestNewIDMonotonicWithinOneMillisecond(t *testing.T) {
	s := frozenStore(session.Identity{ID: 1})
	defer s.Close()
	a := s.NewID()
	b := s.NewID()
	c := s.NewID()
	if a == 0 || b != a+1 || c != b+1 {
		t.Fatalf("ids = %d, %d, %d", a, b, c)
	}
}

func TestToastNeverBlocks(t *testing.T) {
	s := frozenStore(session.Identity{ID: 1})
	defer s.Close()
	// Overfill the buffer; the excess is dropped, not deadlocked.
	for i := 0; i < 200; i++ {
		s.Toast("Title", "message")
	}
	count := 0
	for {
		select {
		case <-s.Toasts():
			count++
			continue
		default:
		}
		break
	}
	if count == 0 || count > 200 {
		t.Fatalf("drained %d toasts", count)
	}
}

func TestCommitNotificationsBumpsRevision(t *testing.T) {
	s := frozenStore(session.Identity{ID: 1})
	defer s.Close()
	rev := s.NotificationsRev()
	s.CommitNotifications([]domain.Notification{{ID: 1}})
	if s.NotificationsRev() != rev+1 {
		t.Fatalf("rev = %d, want %d", s.NotificationsRev(), rev+1)
	}
	if len(s.Notifications) != 1 {
		t.Fatalf("snapshot = %v", s.Notifications)
	}
}

func TestCompanyScoping(t *testing.T) {
	s := frozenStore(session.Identity{ID: 1, Role: domain.RoleManager, Company: "Acme"})
	defer s.Close()
	s.Users = []domain.Actor{
		{ID: 1, Company: "Acme"},
		{ID: 2, Company: "Acme"},
		{ID: 3, Company: "Globex"},
	}
	s.Timesheets = []domain.Timesheet{
		{ID: 10, UserID: 2},
		{ID: 11, UserID: 3},
	}
	s.LeaveRequests = []domain.LeaveRequest{
		{ID: 20, UserID: 3},
	}
	s.Projects = []domain.Project{
		{ID: 30, Company: "Acme"},
		{ID: 31, Company: "Globex"},
	}

	if got := s.CompanyUsers(); len(got) != 2 {
		t.Fatalf("users = %v", got)
	}
	if got := s.CompanyTimesheets(); len(got) != 1 || got[0].ID != 10 {
		t.Fatalf("timesheets = %v", got)
	}
	if got := s.CompanyLeaveRequests(); len(got) != 0 {
		t.Fatalf("leave = %v", got)
	}
	if got := s.CompanyProjects(); len(got) != 1 || got[0].ID != 30 {
		t.Fatalf("projects = %v", got)
	}
}

func TestSuperadminSeesEverything(t *testing.T) {
	s := frozenStore(session.Identity{ID: 1, Role: domain.RoleSuperadmin, Company: "Acme"})
	defer s.Close()
	s.Users = []domain.Actor{{ID: 1, Company: "Acme"}, {ID: 2, Company: "Globex"}}
	if got := s.CompanyUsers(); len(got) != 2 {
		t.Fatalf("users = %v", got)
	}
}

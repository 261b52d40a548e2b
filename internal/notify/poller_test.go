package notify_test

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"crewtime/internal/alert"
	"crewtime/internal/domain"
	"crewtime/internal/notify"
	"crewtime/internal/session"
)

type recordingAlerter struct {
	permission alert.Permission
	alerts     []string
}

func (r *recordingAlerter) Permission() alert.Permission        { return r.permission }
func (r *recordingAlerter) RequestPermission() alert.Permission { return r.permission }
func (r *recordingAlerter) Alert(title, message string) error {
	r.alerts = append(r.alerts, title)
	return nil
}

func newPollerEnv(alerter alert.Alerter, fetch func(ctx context.Context) ([]domain.Notification, error)) (*notify.Poller, *session.Store) {
	store := session.NewStore(session.Identity{ID: 4, Role: domain.RoleEmployee, Company: "Acme"}, domain.Actor{ID: 4})
	p := &notify.Poller{
		Fetch:   fetch,
		Store:   store,
		Alerter: alerter,
		Logger:  log.New(io.Discard, "", 0),
	}
	return p, store
}

func TestTickFirstLoadNeverAlerts(t *testing.T) {
	alerter := &recordingAlerter{permission: alert.PermissionGranted}
	fetched := []domain.Notification{{ID: 1, UserID: 4, Title: "Hello"}}
	p, store := newPollerEnv(alerter, func(ctx context.Context) ([]domain.Notification, error) {
		return fetched, nil
	})
	defer store.Close()

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("alerts on first load: %v", alerter.alerts)
	}
	if len(store.Notifications) != 1 {
		t.Fatalf("cache not replaced: %v", store.Notifications)
	}
}

func TestTickAlertsOncePerNewOwnNotification(t *testing.T) {
	alerter := &recordingAlerter{permission: alert.PermissionGranted}
	existing := domain.Notification{ID: 1, UserID: 4, Title: "Old"}
	fetched := []domain.Notification{
		existing,
		{ID: 2, UserID: 4, Title: "Mine"},
		{ID: 3, UserID: 9, Title: "Someone Else's"},
	}
	p, store := newPollerEnv(alerter, func(ctx context.Context) ([]domain.Notification, error) {
		return fetched, nil
	})
	defer store.Close()
	store.CommitNotifications([]domain.Notification{existing})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(alerter.alerts) != 1 || alerter.alerts[0] != "Mine" {
		t.Fatalf("alerts = %v, want only mine", alerter.alerts)
	}
	if len(store.Notifications) != 3 {
		t.Fatalf("cache = %v", store.Notifications)
	}
}

func TestTickNoReplacementWhenEqual(t *testing.T) {
	existing := []domain.Notification{{ID: 1, UserID: 4, Title: "Same"}}
	p, store := newPollerEnv(nil, func(ctx context.Context) ([]domain.Notification, error) {
		return []domain.Notification{{ID: 1, UserID: 4, Title: "Same"}}, nil
	})
	defer store.Close()
	store.CommitNotifications(existing)
	rev := store.NotificationsRev()

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if store.NotificationsRev() != rev {
		t.Fatal("equal fetch must not bump the snapshot revision")
	}
}

func TestTickDiscardsStaleResult(t *testing.T) {
	alerter := &recordingAlerter{permission: alert.PermissionGranted}
	var store *session.Store
	fetch := func(ctx context.Context) ([]domain.Notification, error) {
		// A local commit lands while this poll is in flight.
		store.CommitNotifications([]domain.Notification{{ID: 5, UserID: 4, Title: "Local"}})
		return []domain.Notification{{ID: 6, UserID: 4, Title: "Stale"}}, nil
	}
	p, s := newPollerEnv(alerter, fetch)
	store = s
	defer store.Close()
	store.CommitNotifications([]domain.Notification{{ID: 1, UserID: 4, Title: "Old"}})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("stale result alerted: %v", alerter.alerts)
	}
	if len(store.Notifications) != 1 || store.Notifications[0].ID != 5 {
		t.Fatalf("local commit overwritten: %v", store.Notifications)
	}
}

func TestTickPermissionDeniedSuppressesAlerts(t *testing.T) {
	alerter := &recordingAlerter{permission: alert.PermissionDenied}
	p, store := newPollerEnv(alerter, func(ctx context.Context) ([]domain.Notification, error) {
		return []domain.Notification{
			{ID: 1, UserID: 4, Title: "Old"},
			{ID: 2, UserID: 4, Title: "New"},
		}, nil
	})
	defer store.Close()
	store.CommitNotifications([]domain.Notification{{ID: 1, UserID: 4, Title: "Old"}})

	if err := p.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(alerter.alerts) != 0 {
		t.Fatalf("alerts despite denied permission: %v", alerter.alerts)
	}
	if len(store.Notifications) != 2 {
		t.Fatal("cache must still converge when alerts are suppressed")
	}
}

func TestTickFetchErrorLeavesCache(t *testing.T) {
	boom := errors.New("network down")
	p, store := newPollerEnv(nil, func(ctx context.Context) ([]domain.Notification, error) {
		return nil, boom
	})
	defer store.Close()
	store.CommitNotifications([]domain.Notification{{ID: 1, UserID: 4}})

	if err := p.Tick(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want fetch error", err)
	}
	if len(store.Notifications) != 1 {
		t.Fatalf("cache mutated on fetch error: %v", store.Notifications)
	}
}

package notify

import (
	"context"
	"log"
	"reflect"
	"time"

	"crewtime/internal/alert"
	"crewtime/internal/domain"
	"crewtime/internal/session"
)

// Poller pulls the authoritative notification set on a fixed interval and
// converges the local cache against it. Replacement happens only when the
// fetched set differs structurally from the cache, and a result fetched
// against an already superseded snapshot is discarded outright.
type Poller struct {
	Fetch    func(ctx context.Context) ([]domain.Notification, error)
	Store    *session.Store
	Alerter  alert.Alerter
	Interval time.Duration
	Logger   *log.Logger
}

func (p *Poller) logger() *log.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return log.Default()
}

func (p *Poller) interval() time.Duration {
	if p.Interval > 0 {
		return p.Interval
	}
	return time.Second
}

// Tick performs one poll. Ids present now but absent from the immediately
// prior snapshot raise exactly one external alert each, provided the prior
// snapshot was non-empty (never on the very first load), the recipient is
// the session actor, and alert permission has been granted.
func (p *Poller) Tick(ctx context.Context) error {
	rev := p.Store.NotificationsRev()
	fetched, err := p.Fetch(ctx)
	if err != nil {
		return err
	}
	if p.Store.NotificationsRev() != rev {
		// A local commit landed while the poll was in flight; its
		// snapshot is newer than this result.
		return nil
	}
	previous := p.Store.Notifications
	if reflect.DeepEqual(previous, fetched) {
		return nil
	}

	if len(previous) > 0 && p.Alerter != nil && p.Alerter.Permission() == alert.PermissionGranted {
		known := make(map[int64]struct{}, len(previous))
		for _, n := range previous {
			known[n.ID] = struct{}{}
		}
		for _, n := range fetched {
			if _, ok := known[n.ID]; ok {
				continue
			}
			if n.UserID != p.Store.Identity.ID {
				continue
			}
			if err := p.Alerter.Alert(n.Title, n.Message); err != nil {
				p.logger().Printf("alert for notification %d: %v", n.ID, err)
			}
		}
	}

	p.Store.CommitNotifications(fetched)
	return nil
}

// Run polls until the context is cancelled. Fetch failures are logged and
// the loop keeps going; nothing here is fatal to the session.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Tick(ctx); err != nil {
				p.logger().Printf("poll notifications: %v", err)
			}
		}
	}
}

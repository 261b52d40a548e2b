package engine

import (
	"context"
	"fmt"

	"crewtime/internal/domain"
	"crewtime/internal/notify"
)

// AddNotification persists one notification through the reconciler.
func (e Engine) AddNotification(ctx context.Context, n domain.Notification) {
	desired := append(append([]domain.Notification(nil), e.Store.Notifications...), n)
	e.SyncNotifications(ctx, desired)
}

// SendAnnouncement fans a broadcast out to every company member. Gated to
// Team Leaders and above; the broadcast produces one record per recipient,
// all sharing a grouping key for the history view.
func (e Engine) SendAnnouncement(ctx context.Context, title, message string) error {
	switch e.Store.Me.Role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleTeamLeader, domain.RoleSuperadmin:
	default:
		return fmt.Errorf("send announcement: %w", ErrPermission)
	}
	if title == "" || message == "" {
		return fmt.Errorf("announcement title and message are required")
	}
	broadcast := notify.Announcement(title, message, e.Store.CompanyUsers(), e.now())
	desired := append(append([]domain.Notification(nil), e.Store.Notifications...), broadcast...)
	e.SyncNotifications(ctx, desired)
	e.Store.Toast("Announcement Sent", "Your announcement has been sent to all users.")
	return nil
}

// DismissNotification permanently deletes one of the session actor's own
// notifications. Dismissal is a hard delete, not a soft flag.
func (e Engine) DismissNotification(ctx context.Context, id int64) error {
	for _, n := range e.Store.Notifications {
		if n.ID != id {
			continue
		}
		if n.UserID != e.Store.Identity.ID {
			return fmt.Errorf("dismiss notification: %w", ErrPermission)
		}
		desired := make([]domain.Notification, 0, len(e.Store.Notifications)-1)
		for _, keep := range e.Store.Notifications {
			if keep.ID != id {
				desired = append(desired, keep)
			}
		}
		e.SyncNotifications(ctx, desired)
		return nil
	}
	return fmt.Errorf("notification %d not found", id)
}

// DismissAll deletes every notification addressed to the session actor,
// leaving everyone else's untouched.
func (e Engine) DismissAll(ctx context.Context) {
	var desired []domain.Notification
	for _, n := range e.Store.Notifications {
		if n.UserID != e.Store.Identity.ID {
			desired = append(desired, n)
		}
	}
	e.SyncNotifications(ctx, desired)
}

// MarkAllRead flips the read flag on the session actor's notifications
// only; the scope never widens past the acting recipient.
func (e Engine) MarkAllRead(ctx context.Context) {
	desired := make([]domain.Notification, len(e.Store.Notifications))
	for i, n := range e.Store.Notifications {
		if n.UserID == e.Store.Identity.ID {
			n.Read = true
		}
		desired[i] = n
	}
	e.SyncNotifications(ctx, desired)
}

// MyNotifications returns the session actor's stream, newest first.
func (e Engine) MyNotifications() []domain.Notification {
	return notify.ForActor(e.Store.Notifications, e.Store.Identity.ID)
}

// UnreadCount counts the session actor's unread notifications.
func (e Engine) UnreadCount() int {
	return notify.UnreadCount(e.Store.Notifications, e.Store.Identity.ID)
}

// AnnouncementHistory collapses broadcasts into one entry per grouping
// key across the whole collection, for the announcement archive view.
func (e Engine) AnnouncementHistory() []domain.Notification {
	var announcements []domain.Notification
	for _, n := range e.Store.Notifications {
		if n.IsAnnouncement {
			announcements = append(announcements, n)
		}
	}
	return notify.CollapseAnnouncements(announcements)
}

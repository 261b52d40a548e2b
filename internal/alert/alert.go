// Package alert is the boundary to the platform alerting primitive:
// a titled out-of-process message, gated by a user-granted permission.
package alert

import (
	"log"

	"crewtime/internal/config"
)

// Permission is the externally queried alert permission state.
type Permission string

const (
	PermissionUndetermined Permission = "undetermined"
	PermissionGranted      Permission = "granted"
	PermissionDenied       Permission = "denied"
)

// Alerter raises one external alert per call. Implementations must be
// safe to call with permission not granted; such calls are dropped.
type Alerter interface {
	Permission() Permission
	RequestPermission() Permission
	Alert(title, message string) error
}

// FromConfig builds the configured alert channel.
func FromConfig(cfg *config.Config, logger *log.Logger) (Alerter, error) {
	switch cfg.Alerts.Channel {
	case config.AlertChannelTelegram:
		return NewTelegram(cfg.Alerts.Telegram.Token, cfg.Alerts.Telegram.ChatID)
	case config.AlertChannelNone:
		return Muted{}, nil
	default:
		return &Log{Logger: logger}, nil
	}
}

// Log writes alerts to a logger. Permission is granted by construction.
type Log struct {
	Logger *log.Logger
}

func (l *Log) Permission() Permission        { return PermissionGranted }
func (l *Log) RequestPermission() Permission { return PermissionGranted }

func (l *Log) Alert(title, message string) error {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf("ALERT %s: %s", title, message)
	return nil
}

// Muted drops every alert. Permission stays denied.
type Muted struct{}

func (Muted) Permission() Permission        { return PermissionDenied }
func (Muted) RequestPermission() Permission { return PermissionDenied }
func (Muted) Alert(string, string) error    { return nil }

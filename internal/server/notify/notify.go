// Package notify is the best-effort notification side channel. Services
// emit one domain event per mutation; delivery failures are logged and
// swallowed, never surfaced as the operation's result.
package notify

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/passvault/internal/logging"
)

// EventKind enumerates every notification the server can produce. The set
// is closed: rendering switches over it exhaustively, so an unknown kind
// cannot exist at runtime.
type EventKind int

const (
	EventAccountRegistered EventKind = iota
	EventPasswordResetRequested
	EventAccountSecretChanged
	EventMasterSecretChanged
	EventCredentialCreated
	EventCredentialUpdated
	EventCredentialDeleted
	EventCredentialFavorited
)

// String returns the stable wire name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventAccountRegistered:
		return "account_registered"
	case EventPasswordResetRequested:
		return "password_reset_requested"
	case EventAccountSecretChanged:
		return "account_secret_changed"
	case EventMasterSecretChanged:
		return "master_secret_changed"
	case EventCredentialCreated:
		return "credential_created"
	case EventCredentialUpdated:
		return "credential_updated"
	case EventCredentialDeleted:
		return "credential_deleted"
	case EventCredentialFavorited:
		return "credential_favorited"
	}
	return "unknown"
}

// Event is one notification about an account. Subject names the affected
// object (a credential title, a display name). RecoveryToken is set only
// on EventPasswordResetRequested, for sinks that deliver the reset link;
// it must never appear in rendered text or logs.
type Event struct {
	Kind          EventKind
	AccountID     string
	Subject       string
	RecoveryToken string
}

// Render produces the user-facing title and message for the event.
func (e Event) Render() (title, message string) {
	switch e.Kind {
	case EventAccountRegistered:
		return "Welcome to PassVault", fmt.Sprintf("Your account %q is ready.", e.Subject)
	case EventPasswordResetRequested:
		return "Password reset requested", "A password reset was requested for your account. The link expires in one hour."
	case EventAccountSecretChanged:
		return "Password changed", "Your account password was changed."
	case EventMasterSecretChanged:
		return "Master password changed", "Your master password was changed."
	case EventCredentialCreated:
		return "Credential added", fmt.Sprintf("Credential %q was added to your vault.", e.Subject)
	case EventCredentialUpdated:
		return "Credential updated", fmt.Sprintf("Credential %q was updated.", e.Subject)
	case EventCredentialDeleted:
		return "Credential deleted", fmt.Sprintf("Credential %q was removed from your vault.", e.Subject)
	case EventCredentialFavorited:
		return "Favorite changed", fmt.Sprintf("Favorite flag changed on %q.", e.Subject)
	}
	return "Notification", ""
}

// Sink receives events. Implementations own delivery; callers treat Emit
// as fire-and-forget.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// LogSink renders events into the structured log. It is the default sink
// and a reasonable stand-in until a mail/push transport is attached.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink constructs a LogSink over the given logger.
func NewLogSink(l logging.Logger) *LogSink {
	return &LogSink{logger: l.With("module", "notify")}
}

// Emit logs the rendered event. The recovery token is deliberately not
// logged.
func (s *LogSink) Emit(ctx context.Context, event Event) error {
	title, message := event.Render()
	s.logger.Info(ctx, "notification",
		"kind", event.Kind.String(),
		"account_id", event.AccountID,
		"title", title,
		"message", message,
	)
	return nil
}

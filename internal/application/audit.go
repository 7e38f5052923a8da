package application

import "time"

// AuditLogger appends entries to audit trails. Trails are append-only: the
// logger never edits or drops an existing entry and never writes into the
// slice it was given.
type AuditLogger struct {
	now   func() time.Time
	newID func() string
}

// NewAuditLogger constructs a logger with the provided clock and id source.
func NewAuditLogger(newID func() string, now func() time.Time) *AuditLogger {
	if newID == nil {
		newID = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AuditLogger{now: now, newID: newID}
}

// Append returns a new trail holding every entry of trail followed by one new
// entry describing action.
func (a *AuditLogger) Append(trail []AuditEntry, action AuditAction, actor, details string) []AuditEntry {
	out := make([]AuditEntry, len(trail), len(trail)+1)
	copy(out, trail)
	return append(out, AuditEntry{
		ID:        a.newID(),
		Action:    action,
		Actor:     actor,
		Details:   details,
		Timestamp: a.now(),
	})
}

// Package insight records what transformers and pipelines did during a session and
// renders the record as text, as a table, or as JSON/CSV exports.
//
// A Reporter is wired into transformers through its Callback; that callback is the
// only coupling between the reporter and the code it observes. Reporters are
// independent of each other and are meant for sequential use.
package insight

import (
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/Troge-dev/Transfory/pkg/transformer"
)

// UnknownEvent is the kind recorded for payloads without an event kind.
const UnknownEvent = "unknown"

// TimestampLayout is the timestamp format used in summaries and exports.
const TimestampLayout = "2006-01-02 15:04:05"

// Event is one immutable record of a transformer or pipeline action.
type Event struct {
	Timestamp   time.Time
	Step        string
	Transformer string
	Kind        string
	Config      map[string]interface{}
	Details     map[string]interface{}
}

// Reporter accumulates events for one session.
type Reporter struct {
	sessionID string
	started   time.Time
	now       func() time.Time
	events    []Event
}

// Option configures a Reporter.
type Option func(*Reporter)

// WithClock sets the time source used for the session start and event timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reporter) {
		r.now = now
	}
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(r *Reporter) {
		r.sessionID = id
	}
}

// NewReporter starts a new session.
func NewReporter(opts ...Option) *Reporter {
	r := &Reporter{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.sessionID == "" {
		r.sessionID = uuid.NewString()
	}
	r.started = r.now()
	return r
}

// SessionID returns the session identifier.
func (r *Reporter) SessionID() string { return r.sessionID }

// Started returns the session start time.
func (r *Reporter) Started() time.Time { return r.started }

// Record appends one event. It never rejects a payload: a missing event kind is
// recorded as UnknownEvent and missing details as an empty map.
func (r *Reporter) Record(step string, payload transformer.Payload) {
	kind := payload.Event
	if kind == "" {
		kind = UnknownEvent
	}
	details := maps.Clone(payload.Details)
	if details == nil {
		details = map[string]interface{}{}
	}
	r.events = append(r.events, Event{
		Timestamp:   r.now(),
		Step:        step,
		Transformer: payload.Transformer,
		Kind:        kind,
		Config:      maps.Clone(payload.Config),
		Details:     details,
	})
}

// Callback returns the LogFunc to attach to transformers and pipelines.
func (r *Reporter) Callback() transformer.LogFunc {
	return r.Record
}

// Events returns the recorded events in emission order.
func (r *Reporter) Events() []Event {
	out := make([]Event, len(r.events))
	for i, e := range r.events {
		e.Config = maps.Clone(e.Config)
		e.Details = maps.Clone(e.Details)
		out[i] = e
	}
	return out
}

// Len returns the number of recorded events.
func (r *Reporter) Len() int { return len(r.events) }

// Clear discards all events. The session start time is kept.
func (r *Reporter) Clear() {
	r.events = nil
}

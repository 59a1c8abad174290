package session

import "time"

// EventKind names a session event.
type EventKind string

// Event kinds.
const (
	EventCaptured EventKind = "captured"
	EventCropped  EventKind = "cropped"
	EventCleared  EventKind = "cleared"
	EventSearched EventKind = "searched"
	EventNotice   EventKind = "notice"
)

// Event is delivered to registered handlers on the session goroutine.
type Event struct {
	Kind    EventKind    `json:"kind"`
	At      time.Time    `json:"at"`
	Capture *CaptureInfo `json:"capture,omitempty"`
	Lines   []string     `json:"lines,omitempty"`
	URL     string       `json:"url,omitempty"`

	// Notice fields.
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// On registers h for events of kind. Handlers run on the session goroutine
// and must not call back into the session.
func (s *Session) On(kind EventKind, h func(Event)) {
	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.handlers[kind] = append(s.handlers[kind], h)
}

// OnAny registers h for every event kind.
func (s *Session) OnAny(h func(Event)) {
	for _, k := range []EventKind{EventCaptured, EventCropped, EventCleared, EventSearched, EventNotice} {
		s.On(k, h)
	}
}

func (s *Session) emit(ev Event) {
	ev.At = time.Now()

	s.hmu.Lock()
	handlers := append([]func(Event){}, s.handlers[ev.Kind]...)
	s.hmu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
}

// notice raises err as a user-visible notice and returns it unchanged.
func (s *Session) notice(op string, err error) error {
	s.logger.Warnw("action failed", "op", op, "error", err)
	s.emit(Event{Kind: EventNotice, Error: Kind(err), Message: err.Error()})
	return err
}

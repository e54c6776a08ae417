package app

// EventType identifies session events.
type EventType int

const (
	EventPageLoaded EventType = iota
	EventPageChanged
	EventCellChanged
	EventCellRemoved
	EventBackgroundChanged
	EventBackgroundInvalid
	EventBackgroundRemoved
	EventPageAccepted
)

func (e EventType) String() string {
	switch e {
	case EventPageLoaded:
		return "page-loaded"
	case EventPageChanged:
		return "page-changed"
	case EventCellChanged:
		return "cell-changed"
	case EventCellRemoved:
		return "cell-removed"
	case EventBackgroundChanged:
		return "background-changed"
	case EventBackgroundInvalid:
		return "background-invalid"
	case EventBackgroundRemoved:
		return "background-removed"
	case EventPageAccepted:
		return "page-accepted"
	default:
		return "unknown"
	}
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type event struct {
	typ  EventType
	data interface{}
}

// On registers an event listener for the specified event type.
func (s *Session) On(typ EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[typ] = append(s.listeners[typ], listener)
}

// queue records an event for delivery once the current call releases the lock.
func (s *Session) queue(typ EventType, data interface{}) {
	s.pending = append(s.pending, event{typ: typ, data: data})
}

// flush delivers queued events outside the lock, so listeners may call back
// into the session.
func (s *Session) flush() {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	listeners := make(map[EventType][]EventListener, len(s.listeners))
	for k, v := range s.listeners {
		listeners[k] = v
	}
	s.mu.Unlock()

	for _, ev := range pending {
		for _, l := range listeners[ev.typ] {
			l(ev.data)
		}
	}
}

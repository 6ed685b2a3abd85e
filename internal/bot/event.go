package bot

import "time"

type EventKind string

const (
	EventRegister   EventKind = "REGISTER"
	EventUnregister EventKind = "UNREGISTER"
	EventStart      EventKind = "START"
	EventStop       EventKind = "STOP"
	EventPause      EventKind = "PAUSE"
	EventResume     EventKind = "RESUME"
	EventFault      EventKind = "FAULT"
)

// Event is one lifecycle transition, as written to the audit log and index.
type Event struct {
	Time       time.Time `json:"time"`
	Task       string    `json:"task"`
	RunID      string    `json:"run_id,omitempty"`
	Kind       EventKind `json:"kind"`
	Reason     string    `json:"reason,omitempty"`
	Iterations uint64    `json:"iterations"`
	RuntimeMs  int64     `json:"runtime_ms"`
}

type EventSink interface {
	Record(Event)
}

// MultiSink fans one event out to several sinks in order.
type MultiSink []EventSink

func (m MultiSink) Record(e Event) {
	for _, s := range m {
		if s != nil {
			s.Record(e)
		}
	}
}

// MemorySink keeps events in memory.
type MemorySink struct {
	Events []Event
}

func (m *MemorySink) Record(e Event) { m.Events = append(m.Events, e) }

func (m *MemorySink) Kinds() []EventKind {
	out := make([]EventKind, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Kind
	}
	return out
}

package workflow

import (
	"fmt"
	"strings"
)

// EventType classifies workflow events.
type EventType string

const (
	EventInfo        EventType = "info"
	EventPlan        EventType = "plan"
	EventSkipped     EventType = "skipped"
	EventProcessing  EventType = "processing"
	EventMetadata    EventType = "metadata"
	EventTranscribed EventType = "transcribed"
	EventAnalyzed    EventType = "analyzed"
	EventCompleted   EventType = "completed"
	EventWarning     EventType = "warning"
	EventError       EventType = "error"
	EventSummary     EventType = "summary"
)

// Event is one progress update from a run.
type Event struct {
	Type    EventType
	Message string
	// File is the input path the event is about, when there is one.
	File string
	Data map[string]any
}

// Emitter receives events as they happen.
type Emitter func(Event)

// Counter is one named summary value.
type Counter struct {
	Name  string
	Value int
}

// Summary holds the counters of one run in a fixed order.
type Summary struct {
	Run      string
	Counters []Counter
}

func newSummary(run string, names ...string) *Summary {
	s := &Summary{Run: run, Counters: make([]Counter, len(names))}
	for i, name := range names {
		s.Counters[i].Name = name
	}
	return s
}

func (s *Summary) add(name string) {
	for i := range s.Counters {
		if s.Counters[i].Name == name {
			s.Counters[i].Value++
			return
		}
	}
	s.Counters = append(s.Counters, Counter{Name: name, Value: 1})
}

// Get returns the value of the named counter.
func (s Summary) Get(name string) int {
	for _, c := range s.Counters {
		if c.Name == name {
			return c.Value
		}
	}
	return 0
}

// Map returns the counters keyed by name.
func (s Summary) Map() map[string]any {
	out := make(map[string]any, len(s.Counters))
	for _, c := range s.Counters {
		out[c.Name] = c.Value
	}
	return out
}

// String renders "name=value" pairs in counter order.
func (s Summary) String() string {
	parts := make([]string, 0, len(s.Counters))
	for _, c := range s.Counters {
		parts = append(parts, fmt.Sprintf("%s=%d", c.Name, c.Value))
	}
	return strings.Join(parts, " ")
}

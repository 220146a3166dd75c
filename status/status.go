// Package status carries human-readable progress events from the automation
// flows to whatever front end is driving them. The console entry point and
// any embedding UI differ only in which Sink they pass in.
package status

import "log"

type Level string

const (
	Info   Level = "info"
	Warn   Level = "warn"
	Manual Level = "manual" // operator action required before the flow continues
	Error  Level = "error"
)

// Event is one status line from a flow stage
type Event struct {
	Flow    string // voiceflow | instagram | youtube
	Stage   string
	Level   Level
	Message string
}

// Sink receives status events. Implementations must be safe for use from
// the single orchestration goroutine plus the watcher goroutine.
type Sink interface {
	Emit(Event)
}

// ConsoleSink logs events through the standard logger
type ConsoleSink struct{}

func (ConsoleSink) Emit(ev Event) {
	switch ev.Level {
	case Warn:
		log.Printf("[%s] ⚠️  %s", ev.Flow, ev.Message)
	case Manual:
		log.Printf("[%s] 👤 MANUAL: %s", ev.Flow, ev.Message)
	case Error:
		log.Printf("[%s] ❌ %s", ev.Flow, ev.Message)
	default:
		log.Printf("[%s] %s", ev.Flow, ev.Message)
	}
}

// FuncSink adapts a plain function into a Sink, for UI log panes and tests
type FuncSink func(Event)

func (f FuncSink) Emit(ev Event) { f(ev) }

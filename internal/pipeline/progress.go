package pipeline

import (
	"log/slog"
	"sync"

	"github.com/joseph-ayodele/pdf-text-extractor/internal/entity"
)

// EventKind tags a progress Event.
type EventKind int

const (
	EventDiscovered EventKind = iota
	EventSkipped
	EventCommitted
	EventFinished
)

func (k EventKind) String() string {
	switch k {
	case EventDiscovered:
		return "discovered"
	case EventSkipped:
		return "skipped"
	case EventCommitted:
		return "committed"
	case EventFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event reports run progress. Done counts skipped plus committed documents.
type Event struct {
	Kind   EventKind
	Path   string
	Result *entity.ExtractionResult // EventCommitted only
	Done   int
	Total  int
	Stats  *entity.RunStats // EventFinished only
}

// Sink receives progress events from the orchestrator goroutine.
type Sink interface {
	Emit(Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) { f(e) }

type discardSink struct{}

func (discardSink) Emit(Event) {}

// LogSink logs each committed document at debug and a progress line every Every documents.
type LogSink struct {
	Logger *slog.Logger
	Every  int
}

func NewLogSink(logger *slog.Logger, every int) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	if every <= 0 {
		every = 25
	}
	return &LogSink{Logger: logger, Every: every}
}

func (s *LogSink) Emit(e Event) {
	switch e.Kind {
	case EventDiscovered:
		s.Logger.Info("discovered documents", "total", e.Total)
	case EventCommitted:
		r := e.Result
		if r.Success {
			s.Logger.Debug("document committed", "path", e.Path, "method", r.Method, "pages", r.PageCount)
		} else {
			s.Logger.Warn("document failed", "path", e.Path, "error", r.ErrorOrEmpty())
		}
	case EventSkipped:
		s.Logger.Debug("document skipped", "path", e.Path)
	case EventFinished:
		return
	}
	if e.Kind != EventDiscovered && (e.Done%s.Every == 0 || e.Done == e.Total) {
		s.Logger.Info("progress", "done", e.Done, "total", e.Total)
	}
}

// Recorder keeps every event; handy for tests and for callers that render progress themselves.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

package telemetry

import (
	"io"
	"sync"
	"time"
)

type LogEntry struct {
	Timestamp time.Time
	Message   string
}

// LogCapture keeps the most recent log lines in memory and forwards every
// write to its attached writers. The terminal UI renders its log pane from it.
type LogCapture struct {
	mu      sync.RWMutex
	entries []LogEntry
	maxSize int
	writers []io.Writer
	onLog   func(LogEntry)
	now     func() time.Time
}

func NewLogCapture(maxSize int) *LogCapture {
	if maxSize <= 0 {
		maxSize = 1
	}
	return &LogCapture{
		entries: make([]LogEntry, 0, maxSize),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (lc *LogCapture) Write(p []byte) (int, error) {
	entry := LogEntry{
		Timestamp: lc.now(),
		Message:   string(p),
	}

	lc.mu.Lock()
	if len(lc.entries) >= lc.maxSize {
		copy(lc.entries, lc.entries[1:])
		lc.entries = lc.entries[:len(lc.entries)-1]
	}
	lc.entries = append(lc.entries, entry)
	onLog := lc.onLog
	writers := lc.writers
	lc.mu.Unlock()

	if onLog != nil {
		onLog(entry)
	}

	for _, w := range writers {
		// A broken sink must not stop logging to the others.
		_, _ = w.Write(p)
	}

	return len(p), nil
}

// AddWriter tees every future log line to w.
func (lc *LogCapture) AddWriter(w io.Writer) {
	lc.mu.Lock()
	lc.writers = append(lc.writers, w)
	lc.mu.Unlock()
}

// SetLogCallback registers a function called with every new entry. Passing
// nil removes it.
func (lc *LogCapture) SetLogCallback(callback func(LogEntry)) {
	lc.mu.Lock()
	lc.onLog = callback
	lc.mu.Unlock()
}

func (lc *LogCapture) GetRecentLogs(limit int) []LogEntry {
	lc.mu.RLock()
	defer lc.mu.RUnlock()

	start := 0
	if limit >= 0 && len(lc.entries) > limit {
		start = len(lc.entries) - limit
	}

	result := make([]LogEntry, len(lc.entries)-start)
	copy(result, lc.entries[start:])
	return result
}

func (lc *LogCapture) GetAllLogs() []LogEntry {
	return lc.GetRecentLogs(-1)
}

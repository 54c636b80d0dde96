package memory

import (
	"context"
	"sync"

	"github.com/gabapcia/hookrelay/internal/sinks"
)

// Journal collects delivered-event records in memory. It backs deployments
// without Redis and doubles as a test double for the sink packages.
type Journal struct {
	mu      sync.Mutex
	entries []sinks.JournalEntry
}

var _ sinks.Journal = (*Journal)(nil)

// NewJournal returns an empty in-memory journal.
func NewJournal() *Journal {
	return &Journal{}
}

// AppendEntry implements sinks.Journal.
func (j *Journal) AppendEntry(_ context.Context, entry sinks.JournalEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.entries = append(j.entries, entry)
	return nil
}

// Entries returns a copy of everything appended so far, in order.
func (j *Journal) Entries() []sinks.JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	return append([]sinks.JournalEntry(nil), j.entries...)
}

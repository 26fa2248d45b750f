package framelog

import (
	"errors"
	"sync"
	"time"

	"github.com/opencanbus/canlink/pkg/can"
)

var (
	// ErrNegativeOffset is returned when a negative offset is provided
	ErrNegativeOffset = errors.New("offset cannot be negative")
	// ErrNegativeMaxCount is returned when a negative max count is provided
	ErrNegativeMaxCount = errors.New("max count cannot be negative")
	// ErrClosed is returned when operating on a closed log
	ErrClosed = errors.New("frame log is closed")
)

// DefaultMaxPerID bounds how many entries are retained per identifier
// before the oldest are trimmed.
const DefaultMaxPerID = 1024

// Entry is one recorded frame: the frame itself, its offset within the
// identifier's sequence, and the capture time.
type Entry struct {
	Message   can.Message
	Offset    int64
	Timestamp time.Time
}

// Log is an in-memory, identifier-partitioned frame history. Each
// identifier has its own independent entry sequence and offset counter
// starting from 0; retention per identifier is capped so watch/replay
// cannot grow without bound. It is safe for concurrent use.
type Log struct {
	mu             sync.RWMutex
	entriesByID    map[uint32][]Entry
	nextOffsetByID map[uint32]int64
	maxPerID       int
	total          int
	closed         bool
}

// NewLog creates a frame log retaining up to maxPerID entries per
// identifier; values <= 0 select DefaultMaxPerID.
func NewLog(maxPerID int) *Log {
	if maxPerID <= 0 {
		maxPerID = DefaultMaxPerID
	}
	return &Log{
		entriesByID:    make(map[uint32][]Entry),
		nextOffsetByID: make(map[uint32]int64),
		maxPerID:       maxPerID,
	}
}

// Append records a frame under its identifier and returns the stored
// entry with its assigned offset. Appending to a closed log returns a
// zero entry; callers on the dispatch path cannot usefully handle an
// error there, so the drop is silent by design of that path.
func (l *Log) Append(message can.Message) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return Entry{}
	}

	offset := l.nextOffsetByID[message.ID]
	entry := Entry{
		Message:   message,
		Offset:    offset,
		Timestamp: time.Now().UTC(),
	}

	entries := append(l.entriesByID[message.ID], entry)
	if len(entries) > l.maxPerID {
		entries = entries[len(entries)-l.maxPerID:]
	}
	l.entriesByID[message.ID] = entries
	l.nextOffsetByID[message.ID] = offset + 1
	l.total++

	return entry
}

// Read returns up to maxCount entries for the identifier starting at
// the given offset, in order. maxCount of zero means no limit. Offsets
// older than the retention window are skipped, not an error.
func (l *Log) Read(id uint32, offset int64, maxCount int) ([]Entry, error) {
	if offset < 0 {
		return nil, ErrNegativeOffset
	}
	if maxCount < 0 {
		return nil, ErrNegativeMaxCount
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.closed {
		return nil, ErrClosed
	}

	var result []Entry
	for _, entry := range l.entriesByID[id] {
		if entry.Offset < offset {
			continue
		}
		result = append(result, entry)
		if maxCount > 0 && len(result) == maxCount {
			break
		}
	}
	return result, nil
}

// EndOffset returns the offset the next entry for the identifier will
// receive.
func (l *Log) EndOffset(id uint32) int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.nextOffsetByID[id]
}

// IDs returns every identifier that has recorded entries.
func (l *Log) IDs() []uint32 {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]uint32, 0, len(l.entriesByID))
	for id := range l.entriesByID {
		ids = append(ids, id)
	}
	return ids
}

// Total returns how many frames have been appended over the log's
// lifetime, including entries since trimmed.
func (l *Log) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}

// Close releases the log. Further reads fail with ErrClosed and
// further appends are dropped. Close is idempotent.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	l.entriesByID = nil
	l.nextOffsetByID = nil
	return nil
}

package framelog

import (
	"errors"
	"testing"

	"github.com/opencanbus/canlink/pkg/can"
)

// TestLog_AppendAssignsOffsets tests per-identifier offset sequences
func TestLog_AppendAssignsOffsets(t *testing.T) {
	log := NewLog(0)
	defer log.Close()

	frameA, _ := can.NewMessage(0x100, []byte{0x01})
	frameB, _ := can.NewMessage(0x200, []byte{0x02})

	first := log.Append(frameA)
	second := log.Append(frameA)
	other := log.Append(frameB)

	if first.Offset != 0 {
		t.Errorf("Expected first 0x100 entry at offset 0, got %d", first.Offset)
	}
	if second.Offset != 1 {
		t.Errorf("Expected second 0x100 entry at offset 1, got %d", second.Offset)
	}
	// Identifiers have independent sequences
	if other.Offset != 0 {
		t.Errorf("Expected first 0x200 entry at offset 0, got %d", other.Offset)
	}

	if log.EndOffset(0x100) != 2 {
		t.Errorf("Expected end offset 2 for 0x100, got %d", log.EndOffset(0x100))
	}
	if log.Total() != 3 {
		t.Errorf("Expected total 3, got %d", log.Total())
	}
}

// TestLog_Read tests offset-based reads with and without a limit
func TestLog_Read(t *testing.T) {
	log := NewLog(0)
	defer log.Close()

	frame, _ := can.NewMessage(0x100, []byte{0xAA})
	for i := 0; i < 5; i++ {
		log.Append(frame)
	}

	all, err := log.Read(0x100, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error reading, got: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("Expected 5 entries, got %d", len(all))
	}

	tail, err := log.Read(0x100, 3, 0)
	if err != nil {
		t.Fatalf("Expected no error reading, got: %v", err)
	}
	if len(tail) != 2 || tail[0].Offset != 3 || tail[1].Offset != 4 {
		t.Errorf("Expected offsets [3 4], got %v", tail)
	}

	limited, err := log.Read(0x100, 0, 2)
	if err != nil {
		t.Fatalf("Expected no error reading, got: %v", err)
	}
	if len(limited) != 2 || limited[0].Offset != 0 || limited[1].Offset != 1 {
		t.Errorf("Expected offsets [0 1], got %v", limited)
	}

	empty, err := log.Read(0x999, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error reading unknown id, got: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected no entries for unknown id, got %d", len(empty))
	}
}

// TestLog_ReadValidation tests argument validation errors
func TestLog_ReadValidation(t *testing.T) {
	log := NewLog(0)
	defer log.Close()

	if _, err := log.Read(0x100, -1, 0); !errors.Is(err, ErrNegativeOffset) {
		t.Errorf("Expected ErrNegativeOffset, got: %v", err)
	}
	if _, err := log.Read(0x100, 0, -1); !errors.Is(err, ErrNegativeMaxCount) {
		t.Errorf("Expected ErrNegativeMaxCount, got: %v", err)
	}
}

// TestLog_Retention tests per-identifier trimming
func TestLog_Retention(t *testing.T) {
	log := NewLog(3)
	defer log.Close()

	frame, _ := can.NewMessage(0x100, nil)
	for i := 0; i < 5; i++ {
		log.Append(frame)
	}

	entries, err := log.Read(0x100, 0, 0)
	if err != nil {
		t.Fatalf("Expected no error reading, got: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected retention of 3 entries, got %d", len(entries))
	}
	// Offsets keep counting across trimmed entries
	if entries[0].Offset != 2 || entries[2].Offset != 4 {
		t.Errorf("Expected retained offsets [2..4], got %v", entries)
	}
	if log.EndOffset(0x100) != 5 {
		t.Errorf("Expected end offset 5, got %d", log.EndOffset(0x100))
	}
}

// TestLog_Close tests closed-log behavior
func TestLog_Close(t *testing.T) {
	log := NewLog(0)
	frame, _ := can.NewMessage(0x100, nil)
	log.Append(frame)

	if err := log.Close(); err != nil {
		t.Fatalf("Expected no error from Close, got: %v", err)
	}
	if err := log.Close(); err != nil {
		t.Errorf("Expected idempotent Close, got: %v", err)
	}

	if _, err := log.Read(0x100, 0, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed reading closed log, got: %v", err)
	}

	// Appends after close are dropped, not panics
	entry := log.Append(frame)
	if entry != (Entry{}) {
		t.Errorf("Expected zero entry appending to closed log, got %v", entry)
	}
}

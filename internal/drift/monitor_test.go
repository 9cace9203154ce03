package drift

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/ndelucca/clara/internal/conversation"
)

func TestRecordCapsBufferAtCapacity(t *testing.T) {
	m := NewMonitor()
	for i := 0; i < 250; i++ {
		m.Record(Entry{
			ID:      fmt.Sprintf("e-%d", i),
			Type:    TypeHeartbeat,
			Message: "check",
		})
	}

	snap := m.Snapshot()
	if snap.TotalEntries != 100 {
		t.Fatalf("TotalEntries = %d, want 100", snap.TotalEntries)
	}
	// Oldest evicted first: the survivors are the most recent 100.
	if snap.Entries[0].ID != "e-150" {
		t.Fatalf("oldest surviving entry = %q, want e-150", snap.Entries[0].ID)
	}
	if snap.Entries[99].ID != "e-249" {
		t.Fatalf("newest entry = %q, want e-249", snap.Entries[99].ID)
	}
}

func TestRecordDefaultsIDTimestampSeverity(t *testing.T) {
	m := NewMonitor()
	m.Record(Entry{Type: TypeExecutionMode, Message: "init"})

	snap := m.Snapshot()
	e := snap.Entries[0]
	if e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("entry not defaulted: %+v", e)
	}
	if e.Severity != SeverityLow {
		t.Fatalf("severity = %q, want low", e.Severity)
	}
}

func TestSnapshotDoesNotClear(t *testing.T) {
	m := NewMonitor()
	m.Record(Entry{Type: TypeHeartbeat, Message: "one"})

	first := m.Snapshot()
	second := m.Snapshot()
	if first.TotalEntries != 1 || second.TotalEntries != 1 {
		t.Fatalf("snapshot cleared buffer: %d then %d", first.TotalEntries, second.TotalEntries)
	}
	if second.ExportTimestamp.IsZero() {
		t.Fatalf("export timestamp missing")
	}
}

func TestHeartbeatEmptyStoreRecordsHighDrift(t *testing.T) {
	m := NewMonitor()
	store := conversation.NewInMemoryStore()

	status := m.Heartbeat(context.Background(), store)
	if !status.DBExists {
		t.Fatalf("DBExists = false for reachable store")
	}
	if status.JSONLoader {
		t.Fatalf("JSONLoader = true for empty store")
	}

	snap := m.Snapshot()
	if snap.TotalEntries != 1 {
		t.Fatalf("drift entries = %d, want 1", snap.TotalEntries)
	}
	e := snap.Entries[0]
	if e.Type != TypeComplianceDrift || e.Severity != SeverityHigh {
		t.Fatalf("entry = %+v, want high compliance_drift", e)
	}
}

func TestHeartbeatPopulatedStoreIsQuiet(t *testing.T) {
	m := NewMonitor()
	store := conversation.NewInMemoryStore()
	err := store.Append(context.Background(), conversation.Turn{
		Role:      conversation.RoleUser,
		Content:   "hello",
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	status := m.Heartbeat(context.Background(), store)
	if !status.JSONLoader {
		t.Fatalf("JSONLoader = false for populated store")
	}
	if snap := m.Snapshot(); snap.TotalEntries != 0 {
		t.Fatalf("drift entries = %d, want 0", snap.TotalEntries)
	}
}

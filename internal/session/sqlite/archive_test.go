package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/session"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()
	a, err := New(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func sampleSession() session.Session {
	now := time.Now().Truncate(time.Second)
	intel := domain.NewIntelligenceBundle()
	intel.UPIIDs = append(intel.UPIIDs, "scammer@upi")
	intel.PhoneNumbers = append(intel.PhoneNumbers, "9876543210")
	return session.Session{
		ID:        "sess-1",
		TurnCount: 11,
		History: []domain.Message{
			{Sender: domain.SenderScammer, Text: "pay me", Timestamp: now},
			{Sender: domain.SenderAgent, Text: "which account?", Timestamp: now},
		},
		Verdict: domain.Verdict{
			Detected:   true,
			Type:       domain.ScamTypeUPIFraud,
			Confidence: 0.85,
		},
		Intel:        intel,
		CallbackSent: true,
		Notes:        []string{"reply generated | tactic=ask_payment"},
		CreatedAt:    now.Add(-time.Hour),
		LastActiveAt: now,
	}
}

func TestArchiveRoundTrip(t *testing.T) {
	a := testArchive(t)
	want := sampleSession()

	if err := a.Archive(context.Background(), want); err != nil {
		t.Fatalf("Archive() error = %v", err)
	}

	got, err := a.Get(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.TurnCount != want.TurnCount {
		t.Errorf("TurnCount = %d, want %d", got.TurnCount, want.TurnCount)
	}
	if !got.Verdict.Detected || got.Verdict.Type != domain.ScamTypeUPIFraud {
		t.Errorf("Verdict = %+v", got.Verdict)
	}
	if !got.CallbackSent {
		t.Error("CallbackSent = false")
	}
	if len(got.Intel.UPIIDs) != 1 || got.Intel.UPIIDs[0] != "scammer@upi" {
		t.Errorf("UPIIDs = %v", got.Intel.UPIIDs)
	}
	if len(got.History) != 2 {
		t.Errorf("history length = %d, want 2", len(got.History))
	}
	if len(got.Notes) != 1 {
		t.Errorf("Notes = %v", got.Notes)
	}
}

func TestArchive_UpsertReplacesRow(t *testing.T) {
	a := testArchive(t)
	s := sampleSession()

	if err := a.Archive(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	s.TurnCount = 15
	s.Intel.PhoneNumbers = append(s.Intel.PhoneNumbers, "9123456780")
	if err := a.Archive(context.Background(), s); err != nil {
		t.Fatal(err)
	}

	got, err := a.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.TurnCount != 15 {
		t.Errorf("TurnCount = %d, want 15 after upsert", got.TurnCount)
	}
	if len(got.Intel.PhoneNumbers) != 2 {
		t.Errorf("PhoneNumbers = %v, want 2 entries", got.Intel.PhoneNumbers)
	}
}

func TestArchive_GetUnknown(t *testing.T) {
	a := testArchive(t)

	if _, err := a.Get(context.Background(), "nope"); err == nil {
		t.Fatal("Get() expected error for unknown id")
	}
}

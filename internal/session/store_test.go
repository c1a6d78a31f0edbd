package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/karanvs/scambait/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scammerMsg(text string) domain.Message {
	return domain.Message{Sender: domain.SenderScammer, Text: text, Timestamp: time.Now()}
}

func TestGetOrCreate(t *testing.T) {
	st := NewStore()

	s := st.GetOrCreate("s1")
	if s.ID != "s1" {
		t.Errorf("ID = %q, want s1", s.ID)
	}
	if s.TurnCount != 0 || len(s.History) != 0 {
		t.Errorf("new session not empty: turns=%d history=%d", s.TurnCount, len(s.History))
	}
	if s.Verdict.Detected {
		t.Error("new session has detected verdict")
	}

	if st.Len() != 1 {
		t.Errorf("Len() = %d, want 1", st.Len())
	}
}

func TestGet_NotFound(t *testing.T) {
	st := NewStore()

	_, err := st.Get("missing")
	if err == nil {
		t.Fatal("Get() expected error for unknown id")
	}
	var apiErr *domain.APIError
	if !errors.As(err, &apiErr) || apiErr.Type != domain.ErrorTypeNotFound {
		t.Errorf("error = %v, want not_found APIError", err)
	}
}

func TestAppend_TurnCountsScammerOnly(t *testing.T) {
	st := NewStore()

	st.Append("s1", scammerMsg("hello"))
	st.Append("s1", domain.Message{Sender: domain.SenderAgent, Text: "hi?"})
	snap := st.Append("s1", scammerMsg("pay up"))

	if snap.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2 (agent messages excluded)", snap.TurnCount)
	}
	if len(snap.History) != 3 {
		t.Errorf("history length = %d, want 3", len(snap.History))
	}
}

func TestSnapshotIsolation(t *testing.T) {
	st := NewStore()

	snap := st.Append("s1", scammerMsg("hello"))
	snap.History[0].Text = "mutated"
	snap.Intel.PhoneNumbers = append(snap.Intel.PhoneNumbers, "1112223334")

	fresh, err := st.Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if fresh.History[0].Text != "hello" {
		t.Error("snapshot mutation leaked into the store")
	}
	if len(fresh.Intel.PhoneNumbers) != 0 {
		t.Error("snapshot bundle mutation leaked into the store")
	}
}

func TestUpdateVerdict_StickyAndMaxConfidence(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("s1")

	v := st.UpdateVerdict("s1", domain.ClassificationResult{
		IsScam: true, ScamType: domain.ScamTypeLottery, Confidence: 0.7,
	})
	if !v.Detected || v.Type != domain.ScamTypeLottery || v.Confidence != 0.7 {
		t.Fatalf("verdict after first update = %+v", v)
	}

	// Lower-confidence non-scam classification must not regress anything.
	v = st.UpdateVerdict("s1", domain.ClassificationResult{
		IsScam: false, ScamType: domain.ScamTypePhishing, Confidence: 0.2,
	})
	if !v.Detected {
		t.Error("Detected reverted to false")
	}
	if v.Type != domain.ScamTypeLottery {
		t.Errorf("Type = %v, lower confidence must not replace it", v.Type)
	}
	if v.Confidence != 0.7 {
		t.Errorf("Confidence = %v, want max retained", v.Confidence)
	}

	// Strictly higher confidence replaces the type.
	v = st.UpdateVerdict("s1", domain.ClassificationResult{
		IsScam: true, ScamType: domain.ScamTypeBankFraud, Confidence: 0.9,
	})
	if v.Type != domain.ScamTypeBankFraud || v.Confidence != 0.9 {
		t.Errorf("verdict = %+v, want bank_fraud at 0.9", v)
	}
}

func TestMergeIntelligence_Monotonic(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("s1")

	added := st.MergeIntelligence("s1", domain.IntelligenceBundle{UPIIDs: []string{"scammer@upi"}})
	if !added {
		t.Fatal("first merge reported nothing added")
	}

	added = st.MergeIntelligence("s1", domain.IntelligenceBundle{UPIIDs: []string{"scammer@upi"}})
	if added {
		t.Error("duplicate merge reported additions")
	}

	snap, _ := st.Get("s1")
	if len(snap.Intel.UPIIDs) != 1 {
		t.Errorf("UPIIDs = %v, want single entry", snap.Intel.UPIIDs)
	}
}

func TestMarkCallbackSent_Once(t *testing.T) {
	st := NewStore()
	st.GetOrCreate("s1")

	if !st.MarkCallbackSent("s1") {
		t.Fatal("first MarkCallbackSent returned false")
	}
	if st.MarkCallbackSent("s1") {
		t.Error("second MarkCallbackSent returned true")
	}
}

func TestConcurrentAppends_NoLostUpdates(t *testing.T) {
	st := NewStore()
	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				st.Append("shared", scammerMsg("msg"))
				st.MergeIntelligence("shared", domain.IntelligenceBundle{
					PhoneNumbers: []string{"9876543210"},
				})
			}
		}()
	}
	wg.Wait()

	snap, err := st.Get("shared")
	if err != nil {
		t.Fatal(err)
	}
	if snap.TurnCount != workers*perWorker {
		t.Errorf("TurnCount = %d, want %d", snap.TurnCount, workers*perWorker)
	}
	if len(snap.History) != workers*perWorker {
		t.Errorf("history = %d, want %d", len(snap.History), workers*perWorker)
	}
	if len(snap.Intel.PhoneNumbers) != 1 {
		t.Errorf("PhoneNumbers = %v, want deduplicated single entry", snap.Intel.PhoneNumbers)
	}
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (f *fakeArchiver) Archive(ctx context.Context, s Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.archived = append(f.archived, s.ID)
	return nil
}

func TestSweeper_EvictsIdleSessions(t *testing.T) {
	st := NewStore()
	now := time.Now()
	st.clock = func() time.Time { return now }

	st.Append("old", scammerMsg("hi"))
	now = now.Add(2 * time.Hour)
	st.Append("fresh", scammerMsg("hi"))

	arch := &fakeArchiver{}
	sw := NewSweeper(st, SweeperConfig{TTL: time.Hour, Archiver: arch}, testLogger())
	sw.sweep()

	if _, err := st.Get("old"); err == nil {
		t.Error("idle session not evicted")
	}
	if _, err := st.Get("fresh"); err != nil {
		t.Error("active session evicted")
	}
	if len(arch.archived) != 1 || arch.archived[0] != "old" {
		t.Errorf("archived = %v, want [old]", arch.archived)
	}
}

func TestSweeper_ArchiveFailureKeepsSession(t *testing.T) {
	st := NewStore()
	now := time.Now()
	st.clock = func() time.Time { return now }

	st.Append("old", scammerMsg("hi"))
	now = now.Add(2 * time.Hour)

	arch := &fakeArchiver{err: errors.New("disk full")}
	sw := NewSweeper(st, SweeperConfig{TTL: time.Hour, Archiver: arch}, testLogger())
	sw.sweep()

	if _, err := st.Get("old"); err != nil {
		t.Error("session evicted despite archive failure")
	}
}

func TestNewSweeper_DisabledWithoutTTL(t *testing.T) {
	if sw := NewSweeper(NewStore(), SweeperConfig{}, testLogger()); sw != nil {
		t.Error("NewSweeper returned a sweeper with zero TTL")
	}
}

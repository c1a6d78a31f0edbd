package honeypot

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/karanvs/scambait/internal/classifier"
	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/engage"
	"github.com/karanvs/scambait/internal/escalate"
	"github.com/karanvs/scambait/internal/intel"
	"github.com/karanvs/scambait/internal/session"
)

type captureSender struct {
	mu      sync.Mutex
	reports []escalate.Report
}

func (c *captureSender) Send(ctx context.Context, report escalate.Report) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	return nil
}

func testPipeline(threshold int, sender escalate.Sender) *Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := session.NewStore()
	return New(
		store,
		classifier.New(logger),
		intel.New(),
		engage.New(logger),
		escalate.NewPolicy(threshold, sender, logger),
		logger,
	)
}

func scammerTurn(sessionID, text string) Turn {
	return Turn{
		SessionID: sessionID,
		Message: domain.Message{
			Sender:    domain.SenderScammer,
			Text:      text,
			Timestamp: time.Now(),
		},
	}
}

func TestProcess_LotteryScamFlow(t *testing.T) {
	p := testPipeline(10, &captureSender{})

	reply := p.Process(context.Background(),
		scammerTurn("s1", "Congratulations! You won Rs 50 lakh lottery. Send OTP to claim."))
	if reply == "" {
		t.Fatal("empty reply")
	}

	snap, err := p.Store().Get("s1")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Verdict.Detected {
		t.Error("scam not detected")
	}
	if snap.Verdict.Type != domain.ScamTypeLottery {
		t.Errorf("scam type = %v, want lottery", snap.Verdict.Type)
	}
	if snap.TurnCount != 1 {
		t.Errorf("TurnCount = %d, want 1", snap.TurnCount)
	}
	// One scammer message plus the recorded agent reply.
	if len(snap.History) != 2 {
		t.Errorf("history = %d messages, want 2", len(snap.History))
	}
	if snap.History[1].Sender != domain.SenderAgent || snap.History[1].Text != reply {
		t.Error("agent reply not recorded in history")
	}
}

func TestProcess_IntelligenceAccumulates(t *testing.T) {
	p := testPipeline(10, &captureSender{})
	ctx := context.Background()

	p.Process(ctx, scammerTurn("s1", "Send money to scammer@upi"))
	p.Process(ctx, scammerTurn("s1", "Or call me at 9876543210"))
	p.Process(ctx, scammerTurn("s1", "I repeat: scammer@upi"))

	snap, _ := p.Store().Get("s1")
	if len(snap.Intel.UPIIDs) != 1 || snap.Intel.UPIIDs[0] != "scammer@upi" {
		t.Errorf("UPIIDs = %v, want single deduplicated entry", snap.Intel.UPIIDs)
	}
	if len(snap.Intel.PhoneNumbers) != 1 || snap.Intel.PhoneNumbers[0] != "9876543210" {
		t.Errorf("PhoneNumbers = %v", snap.Intel.PhoneNumbers)
	}
}

func TestProcess_VerdictSticky(t *testing.T) {
	p := testPipeline(10, &captureSender{})
	ctx := context.Background()

	p.Process(ctx, scammerTurn("s1", "Your bank account is blocked! Verify OTP immediately to avoid suspend."))
	p.Process(ctx, scammerTurn("s1", "ok"))

	snap, _ := p.Store().Get("s1")
	if !snap.Verdict.Detected {
		t.Error("verdict regressed after a benign follow-up")
	}
}

func TestProcess_EscalatesOnceAtThreshold(t *testing.T) {
	sender := &captureSender{}
	p := testPipeline(10, sender)
	ctx := context.Background()

	for i := 0; i < 11; i++ {
		p.Process(ctx, scammerTurn("s1", "Transfer to scammer@upi now, account blocked!"))
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	if len(sender.reports) != 1 {
		t.Fatalf("callbacks = %d over 11 turns with threshold 10, want 1", len(sender.reports))
	}
	report := sender.reports[0]
	if report.SessionID != "s1" {
		t.Errorf("report session = %q", report.SessionID)
	}
	if len(report.Intelligence.UPIIDs) != 1 {
		t.Errorf("report intelligence = %+v", report.Intelligence)
	}
}

func TestProcess_FallbackRepliesRotate(t *testing.T) {
	p := testPipeline(100, &captureSender{})
	ctx := context.Background()

	first := p.Process(ctx, scammerTurn("s1", "hello sir"))
	second := p.Process(ctx, scammerTurn("s1", "are you there"))
	if first == second {
		t.Errorf("consecutive fallback replies identical: %q", first)
	}
}

func TestProcess_HistoryBackfillFirstTurnOnly(t *testing.T) {
	p := testPipeline(100, &captureSender{})
	ctx := context.Background()
	now := time.Now()

	turn := scammerTurn("s1", "final warning, account blocked")
	turn.History = []domain.Message{
		{Sender: domain.SenderScammer, Text: "Pay to fraud@ybl", Timestamp: now.Add(-time.Minute)},
		{Sender: domain.SenderAgent, Text: "who is this?", Timestamp: now.Add(-30 * time.Second)},
	}
	p.Process(ctx, turn)

	snap, _ := p.Store().Get("s1")
	// Current message + 2 backfilled + agent reply.
	if len(snap.History) != 4 {
		t.Errorf("history = %d messages, want 4", len(snap.History))
	}
	if snap.TurnCount != 2 {
		t.Errorf("TurnCount = %d, want 2 scammer turns", snap.TurnCount)
	}
	if len(snap.Intel.UPIIDs) != 1 || snap.Intel.UPIIDs[0] != "fraud@ybl" {
		t.Errorf("backfilled history not scanned: %v", snap.Intel.UPIIDs)
	}

	// A later request with history must not backfill again.
	turn2 := scammerTurn("s1", "still waiting")
	turn2.History = turn.History
	p.Process(ctx, turn2)

	snap, _ = p.Store().Get("s1")
	if snap.TurnCount != 3 {
		t.Errorf("TurnCount = %d after repeat history, want 3", snap.TurnCount)
	}
}

func TestProcess_ConcurrentSameSession(t *testing.T) {
	p := testPipeline(1000, &captureSender{})
	const workers = 8
	const perWorker = 5

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				p.Process(context.Background(), scammerTurn("shared", "send to scammer@upi"))
			}
		}()
	}
	wg.Wait()

	snap, _ := p.Store().Get("shared")
	if snap.TurnCount != workers*perWorker {
		t.Errorf("TurnCount = %d, want %d", snap.TurnCount, workers*perWorker)
	}
	// Each turn records the scammer message and one agent reply.
	if len(snap.History) != 2*workers*perWorker {
		t.Errorf("history = %d, want %d", len(snap.History), 2*workers*perWorker)
	}
}

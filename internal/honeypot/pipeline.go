// Package honeypot wires the per-request decision pipeline: classify
// the inbound message, harvest intelligence, produce the engagement
// reply and check the escalation threshold.
package honeypot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/karanvs/scambait/internal/classifier"
	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/engage"
	"github.com/karanvs/scambait/internal/escalate"
	"github.com/karanvs/scambait/internal/intel"
	"github.com/karanvs/scambait/internal/session"
)

// Pipeline runs one conversation turn end to end. Every stage degrades
// rather than fails: a validly-admitted request always gets a reply.
type Pipeline struct {
	store      *session.Store
	classifier *classifier.Classifier
	extractor  *intel.Extractor
	agent      *engage.Agent
	policy     *escalate.Policy
	logger     *slog.Logger
}

// New assembles a pipeline.
func New(store *session.Store, cls *classifier.Classifier, ext *intel.Extractor,
	agent *engage.Agent, policy *escalate.Policy, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		store:      store,
		classifier: cls,
		extractor:  ext,
		agent:      agent,
		policy:     policy,
		logger:     logger,
	}
}

// Turn is one inbound message plus optional client-supplied context.
type Turn struct {
	SessionID string
	Message   domain.Message
	History   []domain.Message
}

// Process runs the pipeline for one turn and returns the agent's reply.
func (p *Pipeline) Process(ctx context.Context, turn Turn) string {
	snap := p.store.Append(turn.SessionID, turn.Message)

	// Client-supplied history is only trusted on a session's first turn;
	// afterwards the store's own history is authoritative.
	if len(turn.History) > 0 && len(snap.History) <= 1 {
		snap = p.backfill(turn, snap)
	}

	res := p.classifier.Classify(ctx, turn.Message.Text, snap.History)
	verdict := p.store.UpdateVerdict(turn.SessionID, res)
	if res.IsScam && res.Confidence >= verdict.Confidence {
		p.store.AddNote(turn.SessionID, fmt.Sprintf(
			"scam detected: %s (confidence %.2f)", res.ScamType, res.Confidence))
	}

	found := p.extractor.FromText(turn.Message.Text)
	if p.store.MergeIntelligence(turn.SessionID, found) {
		p.store.AddNote(turn.SessionID, fmt.Sprintf(
			"extracted: %d accounts, %d UPI ids, %d links, %d phones",
			len(found.BankAccounts), len(found.UPIIDs),
			len(found.PhishingLinks), len(found.PhoneNumbers)))
	}

	snap, err := p.store.Get(turn.SessionID)
	if err != nil {
		// Unreachable in practice: the session was created above.
		p.logger.Error("session vanished mid-turn", slog.String("session_id", turn.SessionID))
		snap = p.store.GetOrCreate(turn.SessionID)
	}

	reply, note := p.agent.Reply(ctx, engage.Request{
		SessionID: turn.SessionID,
		Message:   turn.Message.Text,
		History:   snap.History,
		ScamType:  snap.Verdict.Type,
		TurnCount: snap.TurnCount,
		Intel:     snap.Intel,
	})
	p.store.AddNote(turn.SessionID, note)

	snap = p.store.Append(turn.SessionID, domain.Message{
		Sender:    domain.SenderAgent,
		Text:      reply,
		Timestamp: turn.Message.Timestamp,
	})

	p.policy.AfterTurn(ctx, p.store, snap)

	p.logger.Info("turn processed",
		slog.String("session_id", turn.SessionID),
		slog.Int("turn", snap.TurnCount),
		slog.Bool("scam", snap.Verdict.Detected),
		slog.String("scam_type", string(snap.Verdict.Type)))

	return reply
}

// backfill merges client-supplied history into a fresh session,
// skipping the message already appended this turn, then re-scans the
// scammer side of it for intelligence.
func (p *Pipeline) backfill(turn Turn, snap session.Session) session.Session {
	for _, msg := range turn.History {
		if msg.Sender == turn.Message.Sender && msg.Text == turn.Message.Text {
			continue
		}
		snap = p.store.Append(turn.SessionID, msg)
	}
	if harvested := p.extractor.FromConversation(turn.History); !harvested.IsEmpty() {
		p.store.MergeIntelligence(turn.SessionID, harvested)
	}
	return snap
}

// Store exposes the session store for read-only endpoints.
func (p *Pipeline) Store() *session.Store {
	return p.store
}

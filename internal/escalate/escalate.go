// Package escalate decides when a session's findings are reported to
// the external collector, and delivers that report exactly once per
// session from this service's perspective.
package escalate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/session"
)

// Report is the payload delivered to the collector.
type Report struct {
	SessionID              string                    `json:"sessionId"`
	ScamDetected           bool                      `json:"scamDetected"`
	ScamType               domain.ScamType           `json:"scamType"`
	Confidence             float64                   `json:"confidence"`
	TotalMessagesExchanged int                       `json:"totalMessagesExchanged"`
	Intelligence           domain.IntelligenceBundle `json:"intelligence"`
	TranscriptSummary      string                    `json:"transcriptSummary"`
	AgentNotes             string                    `json:"agentNotes"`
}

// Sender delivers a report to the collector.
type Sender interface {
	Send(ctx context.Context, report Report) error
}

// Policy triggers the collector callback once a session crosses the
// engagement threshold.
type Policy struct {
	threshold int
	sender    Sender
	logger    *slog.Logger
}

// NewPolicy creates an escalation policy. A nil sender disables
// delivery; the callback flag still advances so behavior is uniform.
func NewPolicy(threshold int, sender Sender, logger *slog.Logger) *Policy {
	return &Policy{threshold: threshold, sender: sender, logger: logger}
}

// AfterTurn runs once per completed turn. When the threshold is met and
// the callback is still pending, it claims the one-shot flag, builds
// the report from the session's current state and delivers it. Delivery
// failure is logged and never retried here or surfaced to the caller;
// the flag stays set either way.
func (p *Policy) AfterTurn(ctx context.Context, store *session.Store, snap session.Session) {
	if snap.TurnCount < p.threshold || snap.CallbackSent {
		return
	}
	if !store.MarkCallbackSent(snap.ID) {
		// A concurrent turn claimed the callback.
		return
	}

	report := BuildReport(snap)
	if p.sender == nil {
		p.logger.Info("escalation threshold met, no collector configured",
			slog.String("session_id", snap.ID))
		return
	}

	if err := p.sender.Send(ctx, report); err != nil {
		p.logger.Error("collector callback failed",
			slog.String("session_id", snap.ID),
			slog.String("error", err.Error()))
		return
	}
	p.logger.Info("collector callback delivered",
		slog.String("session_id", snap.ID),
		slog.String("scam_type", string(report.ScamType)),
		slog.Int("turns", snap.TurnCount))
}

// BuildReport assembles the collector payload from a session snapshot.
func BuildReport(snap session.Session) Report {
	return Report{
		SessionID:              snap.ID,
		ScamDetected:           snap.Verdict.Detected,
		ScamType:               snap.Verdict.Type,
		Confidence:             snap.Verdict.Confidence,
		TotalMessagesExchanged: len(snap.History),
		Intelligence:           snap.Intel.Clone(),
		TranscriptSummary:      summarize(snap),
		AgentNotes:             joinNotes(snap.Notes),
	}
}

func summarize(snap session.Session) string {
	return fmt.Sprintf(
		"%d turns, %d messages; verdict %s (confidence %.2f); harvested %d accounts, %d UPI ids, %d links, %d phone numbers",
		snap.TurnCount, len(snap.History), snap.Verdict.Type, snap.Verdict.Confidence,
		len(snap.Intel.BankAccounts), len(snap.Intel.UPIIDs),
		len(snap.Intel.PhishingLinks), len(snap.Intel.PhoneNumbers))
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return "No specific notes recorded."
	}
	return strings.Join(notes, " | ")
}

// Package engage produces the honeypot's replies: persona and tactic
// selection plus reply generation with a deterministic canned fallback.
package engage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/llm"
)

// maxReplyLen truncates runaway backend output at a word boundary.
const maxReplyLen = 200

// historyWindow bounds how much conversation is replayed to the backend.
const historyWindow = 6

// FallbackPrompts cycle when the generation backend is unavailable.
// Each one pushes for a concrete artifact so even degraded operation
// keeps eliciting intelligence.
var FallbackPrompts = []string{
	"Oh really? Can you tell me more? What number should I call you on?",
	"I'm interested! But I'm confused, can you send me the link again?",
	"Wait, which bank account should I transfer to? Can you share the details?",
	"I want to do this! What's your UPI ID so I can pay?",
	"Sorry, I didn't get that. Can you share your phone number? I'll call you.",
	"This sounds great! Where do I send the money? Give me account number and IFSC.",
	"I'm ready to proceed! Just share the payment link one more time?",
	"My son handles my phone. Can you give me a number to call you directly?",
	"I'll do it right now! Just confirm - what's the UPI ID again?",
	"Oh I see! Can you WhatsApp me the details? What's your number?",
	"I'm at the bank now. Which account name and number should I use?",
	"The link isn't working. Can you send it again? Or give me another way to pay?",
	"I trust you! Just tell me where to send money - UPI, account, anything works!",
	"My eyes are weak, can you call me and explain? Share your number please.",
	"I'm convinced! Send me all the payment details - account, UPI, or link.",
}

// Backend is the pluggable text-generation capability.
type Backend interface {
	Complete(ctx context.Context, system string, msgs []llm.Message) (string, error)
}

// Option configures the agent.
type Option func(*Agent)

// WithBackend attaches a generation backend. Without one the agent runs
// on the fallback rotation only.
func WithBackend(b Backend) Option {
	return func(a *Agent) {
		a.backend = b
	}
}

// Agent turns session state into a reply. Stateless; all inputs arrive
// per call so the output is reproducible.
type Agent struct {
	backend Backend
	logger  *slog.Logger
}

// New creates an engagement agent.
func New(logger *slog.Logger, opts ...Option) *Agent {
	a := &Agent{logger: logger}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Request carries everything the agent needs for one reply.
type Request struct {
	SessionID string
	Message   string
	History   []domain.Message
	ScamType  domain.ScamType
	TurnCount int
	Intel     domain.IntelligenceBundle
}

// Reply produces the next agent utterance and a short operator note.
// A reply is always returned: backend failure, timeout, or absence all
// degrade to the deterministic fallback rotation.
func (a *Agent) Reply(ctx context.Context, req Request) (string, string) {
	persona := SelectPersona(req.SessionID)
	tactic := SelectTactic(req.TurnCount, req.Intel)

	if a.backend == nil {
		return a.fallback(req, persona, tactic)
	}

	reply, err := a.generate(ctx, req, persona, tactic)
	if err != nil {
		a.logger.Warn("generation backend unavailable, using fallback prompt",
			slog.String("session_id", req.SessionID),
			slog.String("error", err.Error()))
		return a.fallback(req, persona, tactic)
	}

	note := fmt.Sprintf("reply generated | persona=%s tactic=%s scam_type=%s",
		persona.ID, tactic, req.ScamType)
	return reply, note
}

// fallback returns the canned prompt for this turn. The rotation index
// is the scammer turn count modulo the list length, so consecutive
// fallback-served turns produce different prompts and the sequence is
// reproducible per session.
func (a *Agent) fallback(req Request, persona Persona, tactic Tactic) (string, string) {
	idx := req.TurnCount % len(FallbackPrompts)
	if idx < 0 {
		idx = 0
	}
	note := fmt.Sprintf("fallback prompt %d | persona=%s tactic=%s", idx, persona.ID, tactic)
	return FallbackPrompts[idx], note
}

func (a *Agent) generate(ctx context.Context, req Request, persona Persona, tactic Tactic) (string, error) {
	system := fmt.Sprintf(`You are role-playing as a potential scam victim to keep the
sender engaged and draw out phone numbers, payment handles, account
numbers and links. You are %s, %s.

Rules:
- NEVER reveal you suspect a scam.
- Stay in character; natural, imperfect language.
- Keep it short: one or two sentences, at most 50 words.
- Never share real personal or financial information.
- This turn, %s.`, persona.Name, persona.Style, tactic.goal())

	msgs := make([]llm.Message, 0, historyWindow+1)
	history := req.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		role := "user"
		if m.Sender == domain.SenderAgent {
			role = "assistant"
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Content != req.Message {
		msgs = append(msgs, llm.Message{Role: "user", Content: req.Message})
	}

	reply, err := a.backend.Complete(ctx, system, msgs)
	if err != nil {
		return "", err
	}

	reply = strings.Trim(strings.TrimSpace(reply), `"'`)
	if reply == "" {
		return "", fmt.Errorf("backend returned empty reply")
	}
	if len(reply) > maxReplyLen {
		cut := reply[:maxReplyLen]
		if i := strings.LastIndex(cut, " "); i > 0 {
			cut = cut[:i]
		}
		reply = cut + "..."
	}
	return reply, nil
}

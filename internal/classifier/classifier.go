// Package classifier scores inbound messages for scam intent using a
// weighted keyword/pattern pass blended with an optional LLM verdict.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/llm"
	"github.com/karanvs/scambait/internal/patterns"
)

// Cutoff is the combined score at or above which a message is a scam.
const Cutoff = 0.4

// llmGate is the keyword score above which the LLM backend is consulted.
// Below it the message is bland enough that the pattern verdict stands.
const llmGate = 0.2

// Backend is the optional probabilistic classification capability.
type Backend interface {
	Complete(ctx context.Context, system string, msgs []llm.Message) (string, error)
}

// Option configures the classifier.
type Option func(*Classifier)

// WithBackend attaches an LLM backend. Without one the classifier runs
// keyword-only.
func WithBackend(b Backend) Option {
	return func(c *Classifier) {
		c.backend = b
	}
}

// WithCutoff overrides the scam decision threshold.
func WithCutoff(cutoff float64) Option {
	return func(c *Classifier) {
		c.cutoff = cutoff
	}
}

// Classifier scores messages. Safe for concurrent use.
type Classifier struct {
	backend Backend
	logger  *slog.Logger
	cutoff  float64
}

// New creates a classifier.
func New(logger *slog.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		logger: logger,
		cutoff: Cutoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify scores one message, optionally consulting the history-aware
// LLM backend. It never fails: any backend error degrades to the
// keyword-only path and is logged.
func (c *Classifier) Classify(ctx context.Context, text string, history []domain.Message) domain.ClassificationResult {
	keywordScore := keywordScore(text)
	categoryType, categoryScore := patterns.BestCategory(text)

	var llmRes domain.ClassificationResult
	llmOK := false
	if c.backend != nil && keywordScore > llmGate {
		res, err := c.llmClassify(ctx, text, history)
		if err != nil {
			c.logger.Warn("classifier backend unavailable, using keyword score",
				slog.String("error", err.Error()))
		} else {
			llmRes = res
			llmOK = true
		}
	}

	var confidence float64
	finalType := categoryType
	if llmOK && llmRes.Confidence > 0 {
		confidence = keywordScore*0.3 + categoryScore*0.2 + llmRes.Confidence*0.5
		if llmRes.Confidence > 0.5 && llmRes.ScamType != domain.ScamTypeUnknown {
			finalType = llmRes.ScamType
		}
	} else {
		confidence = keywordScore*0.6 + categoryScore*0.4
	}
	if confidence > 1 {
		confidence = 1
	}

	isScam := confidence >= c.cutoff
	if isScam && finalType == domain.ScamTypeUnknown {
		finalType = domain.ScamTypeGeneric
	}

	return domain.ClassificationResult{
		IsScam:     isScam,
		ScamType:   finalType,
		Confidence: confidence,
	}
}

// keywordScore counts matched scam keywords, saturating at five hits.
func keywordScore(text string) float64 {
	found := patterns.MatchKeywords(text)
	if len(found) == 0 {
		return 0
	}
	score := float64(len(found)) / 5
	if score > 1 {
		score = 1
	}
	return score
}

const classifySystem = `You analyze messages for scam or fraud intent: bank fraud
(account blocking threats), UPI fraud (payment or refund scams), phishing
(fake links, credential requests), lottery or prize bait.

Respond in exactly this format:
IS_SCAM: [yes/no]
CONFIDENCE: [0.0-1.0]
SCAM_TYPE: [bank_fraud/upi_fraud/phishing/lottery/generic/unknown]`

func (c *Classifier) llmClassify(ctx context.Context, text string, history []domain.Message) (domain.ClassificationResult, error) {
	var sb strings.Builder
	if len(history) > 0 {
		recent := history
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		sb.WriteString("Previous conversation:\n")
		for _, m := range recent {
			fmt.Fprintf(&sb, "%s: %s\n", m.Sender, m.Text)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Current message: %q", text)

	raw, err := c.backend.Complete(ctx, classifySystem, []llm.Message{
		{Role: "user", Content: sb.String()},
	})
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	return parseVerdict(raw)
}

// parseVerdict reads the IS_SCAM/CONFIDENCE/SCAM_TYPE lines out of a
// backend response. Unparseable responses are an error so the caller
// falls back rather than trusting garbage.
func parseVerdict(raw string) (domain.ClassificationResult, error) {
	var res domain.ClassificationResult
	res.ScamType = domain.ScamTypeUnknown
	sawScam, sawConfidence := false, false

	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "IS_SCAM":
			res.IsScam = strings.EqualFold(value, "yes")
			sawScam = true
		case "CONFIDENCE":
			conf, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return res, fmt.Errorf("bad confidence %q", value)
			}
			if conf > 1 {
				conf = 1
			}
			if conf < 0 {
				conf = 0
			}
			res.Confidence = conf
			sawConfidence = true
		case "SCAM_TYPE":
			res.ScamType = normalizeScamType(value)
		}
	}

	if !sawScam || !sawConfidence {
		return res, fmt.Errorf("unparseable backend verdict: %q", raw)
	}
	return res, nil
}

func normalizeScamType(value string) domain.ScamType {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), " ", "_")) {
	case "bank_fraud":
		return domain.ScamTypeBankFraud
	case "upi_fraud":
		return domain.ScamTypeUPIFraud
	case "lottery", "fake_offer", "prize":
		return domain.ScamTypeLottery
	case "phishing":
		return domain.ScamTypePhishing
	case "generic":
		return domain.ScamTypeGeneric
	default:
		return domain.ScamTypeUnknown
	}
}

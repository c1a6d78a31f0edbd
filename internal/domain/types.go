package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Sender identifies who produced a message in a conversation.
type Sender string

const (
	// SenderScammer marks messages received from the counterpart.
	SenderScammer Sender = "scammer"

	// SenderAgent marks replies produced by the honeypot agent.
	SenderAgent Sender = "agent"
)

// Message is a single conversation entry. Immutable once recorded.
type Message struct {
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

type wireMessage struct {
	Sender    string          `json:"sender"`
	Text      string          `json:"text"`
	Timestamp json.RawMessage `json:"timestamp"`
}

// UnmarshalJSON decodes a message, accepting the timestamp as either
// epoch milliseconds or an RFC 3339 string.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	m.Sender = normalizeSender(w.Sender)
	m.Text = w.Text

	if len(w.Timestamp) == 0 || string(w.Timestamp) == "null" {
		m.Timestamp = time.Time{}
		return nil
	}

	raw := strings.TrimSpace(string(w.Timestamp))
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(w.Timestamp, &s); err != nil {
			return err
		}
		ts, err := time.Parse(time.RFC3339, s)
		if err != nil {
			// Some clients quote epoch millis.
			millis, convErr := strconv.ParseInt(s, 10, 64)
			if convErr != nil {
				return fmt.Errorf("invalid timestamp %q", s)
			}
			ts = time.UnixMilli(millis)
		}
		m.Timestamp = ts
		return nil
	}

	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", raw)
	}
	m.Timestamp = time.UnixMilli(millis)
	return nil
}

func normalizeSender(s string) Sender {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		// Left empty so callers can apply their own default.
		return ""
	case "agent", "user", "assistant", "bot":
		// The upstream schema historically used "user" for the honeypot's
		// own replies.
		return SenderAgent
	default:
		// Unrecognized labels are inbound traffic; misfiling them as the
		// honeypot's own replies would stall turn counting.
		return SenderScammer
	}
}

// ScamType labels the fraud pattern detected in a conversation.
type ScamType string

const (
	ScamTypeBankFraud ScamType = "bank_fraud"
	ScamTypeUPIFraud  ScamType = "upi_fraud"
	ScamTypeLottery   ScamType = "lottery"
	ScamTypePhishing  ScamType = "phishing"
	ScamTypeGeneric   ScamType = "generic"
	ScamTypeUnknown   ScamType = "unknown"
)

// ScamTypePriority is the fixed tie-break ordering used when two
// categories score equally: earlier wins.
var ScamTypePriority = []ScamType{
	ScamTypeBankFraud,
	ScamTypeUPIFraud,
	ScamTypeLottery,
	ScamTypePhishing,
	ScamTypeGeneric,
}

// ClassificationResult is the outcome of scoring one inbound message.
type ClassificationResult struct {
	IsScam     bool     `json:"isScam"`
	ScamType   ScamType `json:"scamType"`
	Confidence float64  `json:"confidence"`
}

// Verdict is the per-session scam verdict accumulated across turns.
// Detected is sticky: once true it never reverts. Confidence holds the
// maximum observed. Type is replaced only when a later classification is
// strictly more confident.
type Verdict struct {
	Detected   bool     `json:"detected"`
	Type       ScamType `json:"type"`
	Confidence float64  `json:"confidence"`
}

// Merge folds a fresh classification into the verdict and reports
// whether anything changed.
func (v *Verdict) Merge(res ClassificationResult) bool {
	changed := false
	if res.IsScam && !v.Detected {
		v.Detected = true
		changed = true
	}
	if res.Confidence > v.Confidence {
		v.Confidence = res.Confidence
		if res.ScamType != "" && res.ScamType != ScamTypeUnknown {
			v.Type = res.ScamType
		}
		changed = true
	}
	return changed
}

// IntelligenceBundle holds artifacts harvested from a conversation.
// Each field is a deduplicated set kept in first-seen order. Bundles
// only ever grow.
type IntelligenceBundle struct {
	BankAccounts  []string `json:"bankAccounts"`
	UPIIDs        []string `json:"upiIds"`
	PhishingLinks []string `json:"phishingLinks"`
	PhoneNumbers  []string `json:"phoneNumbers"`
	Keywords      []string `json:"suspiciousKeywords"`
}

// NewIntelligenceBundle returns a bundle with all sets allocated, so
// JSON encoding yields [] rather than null for empty fields.
func NewIntelligenceBundle() IntelligenceBundle {
	return IntelligenceBundle{
		BankAccounts:  []string{},
		UPIIDs:        []string{},
		PhishingLinks: []string{},
		PhoneNumbers:  []string{},
		Keywords:      []string{},
	}
}

// Merge appends every entry from other that is not already present,
// preserving first-seen order. Returns true if anything was added.
func (b *IntelligenceBundle) Merge(other IntelligenceBundle) bool {
	added := false
	added = mergeSet(&b.BankAccounts, other.BankAccounts) || added
	added = mergeSet(&b.UPIIDs, other.UPIIDs) || added
	added = mergeSet(&b.PhishingLinks, other.PhishingLinks) || added
	added = mergeSet(&b.PhoneNumbers, other.PhoneNumbers) || added
	added = mergeSet(&b.Keywords, other.Keywords) || added
	return added
}

// IsEmpty reports whether no artifact of any kind has been collected.
func (b *IntelligenceBundle) IsEmpty() bool {
	return len(b.BankAccounts) == 0 && len(b.UPIIDs) == 0 &&
		len(b.PhishingLinks) == 0 && len(b.PhoneNumbers) == 0 &&
		len(b.Keywords) == 0
}

// Clone returns an independent copy of the bundle.
func (b *IntelligenceBundle) Clone() IntelligenceBundle {
	return IntelligenceBundle{
		BankAccounts:  append([]string{}, b.BankAccounts...),
		UPIIDs:        append([]string{}, b.UPIIDs...),
		PhishingLinks: append([]string{}, b.PhishingLinks...),
		PhoneNumbers:  append([]string{}, b.PhoneNumbers...),
		Keywords:      append([]string{}, b.Keywords...),
	}
}

func mergeSet(dst *[]string, src []string) bool {
	added := false
	for _, v := range src {
		if v == "" {
			continue
		}
		found := false
		for _, existing := range *dst {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			*dst = append(*dst, v)
			added = true
		}
	}
	return added
}

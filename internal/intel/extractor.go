// Package intel extracts actionable artifacts from scam conversations.
package intel

import (
	"strings"

	"github.com/karanvs/scambait/internal/domain"
	"github.com/karanvs/scambait/internal/patterns"
)

// Extractor scans free text for financial and contact artifacts using
// the pattern library. Stateless; safe for concurrent use.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// FromText extracts all artifact kinds from a single text. Extraction is
// best effort: a pattern that does not match contributes nothing.
func (e *Extractor) FromText(text string) domain.IntelligenceBundle {
	bundle := domain.NewIntelligenceBundle()
	bundle.Merge(domain.IntelligenceBundle{
		BankAccounts:  e.bankAccounts(text),
		UPIIDs:        e.upiIDs(text),
		PhishingLinks: e.phishingLinks(text),
		PhoneNumbers:  e.phoneNumbers(text),
		Keywords:      patterns.MatchKeywords(text),
	})
	return bundle
}

// FromConversation re-scans scammer-sent messages of an entire history.
// The result is a deduplicated bundle in first-seen order; feeding it to
// a session's bundle is idempotent.
func (e *Extractor) FromConversation(history []domain.Message) domain.IntelligenceBundle {
	combined := domain.NewIntelligenceBundle()
	for _, msg := range history {
		if msg.Sender != domain.SenderScammer {
			continue
		}
		combined.Merge(e.FromText(msg.Text))
	}
	return combined
}

func (e *Extractor) bankAccounts(text string) []string {
	var out []string
	for _, m := range patterns.BankAccount.FindAllString(text, -1) {
		// Runs under 10 digits are usually order ids; leading "20" runs
		// are usually timestamps.
		if len(m) < 10 || strings.HasPrefix(m, "20") {
			continue
		}
		// A 10-digit run that parses as a mobile number belongs to the
		// phone set, not here.
		if len(m) == 10 && patterns.Phone.MatchString(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func (e *Extractor) upiIDs(text string) []string {
	var out []string
	for _, m := range patterns.UPIHandle.FindAllString(text, -1) {
		handle := strings.ToLower(strings.TrimSpace(m))
		if isMailAddress(handle) {
			continue
		}
		out = append(out, handle)
	}
	return out
}

func isMailAddress(handle string) bool {
	at := strings.LastIndex(handle, "@")
	if at < 0 {
		return false
	}
	domainPart := handle[at+1:]
	for _, mail := range patterns.MailDomains {
		if strings.Contains(domainPart, mail) {
			return true
		}
	}
	return false
}

func (e *Extractor) phoneNumbers(text string) []string {
	var out []string
	for _, m := range patterns.Phone.FindAllString(text, -1) {
		clean := strings.NewReplacer(" ", "", "-", "", "+91", "").Replace(m)
		if len(clean) > 10 {
			clean = clean[len(clean)-10:]
		}
		if len(clean) == 10 {
			out = append(out, clean)
		}
	}
	return out
}

func (e *Extractor) phishingLinks(text string) []string {
	var out []string
	for _, m := range patterns.URL.FindAllString(text, -1) {
		url := strings.TrimRight(m, ".,;:!?)")
		lower := strings.ToLower(url)
		if matchesAny(lower, patterns.LinkSuspicionMarkers) {
			out = append(out, lower)
			continue
		}
		if !matchesAny(lower, patterns.LinkAllowlist) {
			out = append(out, lower)
		}
	}
	return out
}

func matchesAny(s string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// Package patterns holds the static scam indicator and artifact
// extraction definitions. Pure data and matching logic, no state.
package patterns

import (
	"regexp"
	"strings"

	"github.com/karanvs/scambait/internal/domain"
)

// Category is a weighted group of indicators for one scam type.
type Category struct {
	Type     domain.ScamType
	Keywords []string
	Patterns []*regexp.Regexp
	Weight   float64
}

// Keywords flagged as generic scam indicators regardless of category.
var ScamKeywords = []string{
	"urgent", "verify", "blocked", "suspend", "otp", "click", "link",
	"account", "bank", "upi", "immediately", "action required", "expired",
	"warning", "alert", "security", "unauthorized", "locked", "pending",
	"confirm", "update", "validate", "kyc", "pan", "aadhaar", "deactivate",
	"refund", "lottery", "prize", "winner", "won", "claim", "offer",
	"limited time", "cashback", "reward", "transfer", "lucky", "free",
}

// Categories are listed in tie-break priority order: when two categories
// match with equal score, the earlier one wins.
var Categories = []Category{
	{
		Type: domain.ScamTypeBankFraud,
		Keywords: []string{
			"bank account", "blocked", "suspend", "deactivate",
			"unauthorized transaction", "kyc", "net banking", "debit card",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)account\s+(will\s+be\s+)?(blocked|suspended|frozen)`),
			regexp.MustCompile(`(?i)share\s+(your\s+)?otp`),
		},
		Weight: 1.0,
	},
	{
		Type: domain.ScamTypeUPIFraud,
		Keywords: []string{
			"upi", "upi id", "upi pin", "payment failed", "refund",
			"collect request", "google pay", "phonepe", "paytm",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)refund\s+of\s+rs`),
		},
		Weight: 1.0,
	},
	{
		Type: domain.ScamTypeLottery,
		Keywords: []string{
			"winner", "prize", "lottery", "claim", "lucky draw",
			"congratulations", "won", "jackpot", "cashback", "reward",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)you\s+(have\s+)?won`),
			regexp.MustCompile(`(?i)rs\.?\s*\d+\s*(lakh|crore|lac)`),
		},
		Weight: 1.0,
	},
	{
		Type: domain.ScamTypePhishing,
		Keywords: []string{
			"click here", "verify now", "update details", "login",
			"password", "click the link", "verify your account",
		},
		Patterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)click\s+(here|below|this\s+link)`),
			regexp.MustCompile(`(?i)https?://\S+`),
		},
		Weight: 0.9,
	},
	{
		Type: domain.ScamTypeGeneric,
		Keywords: []string{
			"urgent", "immediately", "action required", "limited time",
			"offer expires", "final notice",
		},
		Weight: 0.6,
	},
}

// Extraction regexes for intelligence artifacts.
var (
	// BankAccount matches 9-18 digit runs; callers apply the extra
	// length/prefix filters that weed out timestamps and order ids.
	BankAccount = regexp.MustCompile(`\b\d{9,18}\b`)

	// UPIHandle matches name@provider payment handles.
	UPIHandle = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9]+`)

	// Phone matches Indian mobile numbers with an optional +91 prefix.
	Phone = regexp.MustCompile(`(?:\+91[\-\s]?)?[6789]\d{9}\b`)

	// URL matches http(s) links.
	URL = regexp.MustCompile(`(?i)https?://[^\s<>"'{}|\\^` + "`" + `\[\]]+`)
)

// MailDomains excluded from UPI handle extraction: an address on one of
// these providers is an email, not a payment handle.
var MailDomains = []string{"gmail", "yahoo", "hotmail", "outlook", "email", "proton"}

// LinkSuspicionMarkers flag a URL as a likely phishing link.
var LinkSuspicionMarkers = []string{
	"bit.ly", "tinyurl", "goo.gl", "t.co", "rb.gy", // shorteners
	"login", "verify", "update", "secure", "signin", // credential bait
	".xyz", ".tk", ".ml", ".ga", ".cf", ".top", // cheap TLDs
	"bank", "upi", "payment", "kyc", // financial bait
}

// LinkAllowlist is the short list of domains never reported as phishing.
var LinkAllowlist = []string{"google.com", "microsoft.com", "apple.com"}

// wordBoundary wraps single-word keywords so "won" does not match
// "wonder". Multi-word keywords are matched as substrings.
var keywordRegexes = buildKeywordRegexes()

func buildKeywordRegexes() map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(ScamKeywords))
	for _, kw := range ScamKeywords {
		if strings.ContainsRune(kw, ' ') {
			continue
		}
		out[kw] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	}
	return out
}

// MatchKeywords returns the scam keywords present in text, in the fixed
// order of ScamKeywords. Single words are matched on token boundaries.
func MatchKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range ScamKeywords {
		if re, ok := keywordRegexes[kw]; ok {
			if re.MatchString(text) {
				found = append(found, kw)
			}
		} else if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// Score computes, for one category, the fraction of its indicators that
// match text.
func (c *Category) Score(text string) float64 {
	lower := strings.ToLower(text)
	total := len(c.Keywords) + len(c.Patterns)
	if total == 0 {
		return 0
	}

	hits := 0
	for _, kw := range c.Keywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	for _, re := range c.Patterns {
		if re.MatchString(text) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return float64(hits) / float64(total) * c.Weight
}

// BestCategory returns the highest scoring category for text and its
// score. Ties resolve to the earlier entry in Categories. Returns
// ScamTypeUnknown with score 0 when nothing matches.
func BestCategory(text string) (domain.ScamType, float64) {
	best := domain.ScamTypeUnknown
	bestScore := 0.0
	for i := range Categories {
		if s := Categories[i].Score(text); s > bestScore {
			best = Categories[i].Type
			bestScore = s
		}
	}
	return best, bestScore
}

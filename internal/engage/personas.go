package engage

import (
	"hash/fnv"

	"github.com/karanvs/scambait/internal/domain"
)

// Persona is the fixed fictional identity the agent adopts for a
// session. Selection is a pure function of the session id, so the
// persona never changes mid-conversation.
type Persona struct {
	ID    string
	Name  string
	Style string
}

// Personas is the fixed persona set.
var Personas = []Persona{
	{
		ID:   "confused_elderly",
		Name: "Prabha",
		Style: "a 68-year-old retiree who is easily confused by technology, " +
			"types slowly, asks for things to be repeated, and mentions that " +
			"a son or daughter usually handles the phone",
	},
	{
		ID:   "naive_user",
		Name: "Rohit",
		Style: "an excitable 23-year-old who believes offers readily, uses " +
			"casual language, and is eager to claim prizes or refunds",
	},
	{
		ID:   "busy_professional",
		Name: "Meera",
		Style: "a distracted office worker who replies in short bursts, " +
			"wants everything summarized quickly, and asks for details to be " +
			"sent so she can deal with them later",
	},
}

// SelectPersona deterministically picks a persona for a session id.
func SelectPersona(sessionID string) Persona {
	h := fnv.New32a()
	h.Write([]byte(sessionID))
	return Personas[int(h.Sum32())%len(Personas)]
}

// Tactic is a reply strategy aimed at eliciting a specific category of
// intelligence.
type Tactic string

const (
	// TacticClarify asks for the premise to be explained again. Used on
	// the opening turns before pushing for artifacts.
	TacticClarify Tactic = "clarify"

	// TacticAskPhone fishes for a direct phone number.
	TacticAskPhone Tactic = "ask_phone"

	// TacticAskPayment fishes for a UPI handle or bank account.
	TacticAskPayment Tactic = "ask_payment"

	// TacticAskLink fishes for the phishing link to be re-sent.
	TacticAskLink Tactic = "ask_link"

	// TacticStall plays for time once every field has been harvested.
	TacticStall Tactic = "stall"
)

// SelectTactic picks the tactic whose elicitation target is the first
// still-empty intelligence field. Pure function of (turnCount, bundle).
func SelectTactic(turnCount int, bundle domain.IntelligenceBundle) Tactic {
	if turnCount <= 1 {
		return TacticClarify
	}
	switch {
	case len(bundle.PhoneNumbers) == 0:
		return TacticAskPhone
	case len(bundle.UPIIDs) == 0 && len(bundle.BankAccounts) == 0:
		return TacticAskPayment
	case len(bundle.PhishingLinks) == 0:
		return TacticAskLink
	default:
		return TacticStall
	}
}

// goal phrases the tactic as an instruction for the generation backend.
func (t Tactic) goal() string {
	switch t {
	case TacticClarify:
		return "act unsure about what is being asked and get them to explain again"
	case TacticAskPhone:
		return "steer toward getting a phone number you could call them on"
	case TacticAskPayment:
		return "steer toward getting a UPI id or bank account number to pay into"
	case TacticAskLink:
		return "claim the link did not open and ask for it to be sent again"
	default:
		return "stall for time with a believable small complication"
	}
}

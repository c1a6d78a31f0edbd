package intel

import (
	"testing"
	"time"

	"github.com/karanvs/scambait/internal/domain"
)

func TestFromText_PhoneNumber(t *testing.T) {
	e := New()

	bundle := e.FromText("Call me at 9876543210")
	if len(bundle.PhoneNumbers) != 1 || bundle.PhoneNumbers[0] != "9876543210" {
		t.Fatalf("PhoneNumbers = %v, want [9876543210]", bundle.PhoneNumbers)
	}
}

func TestFromText_PhoneNumberWithPrefix(t *testing.T) {
	e := New()

	bundle := e.FromText("WhatsApp +91-9876543210 for details")
	if len(bundle.PhoneNumbers) != 1 || bundle.PhoneNumbers[0] != "9876543210" {
		t.Fatalf("PhoneNumbers = %v, want [9876543210]", bundle.PhoneNumbers)
	}
}

func TestFromText_UPIHandle(t *testing.T) {
	e := New()

	bundle := e.FromText("Send payment to scammer@upi right away")
	if len(bundle.UPIIDs) != 1 || bundle.UPIIDs[0] != "scammer@upi" {
		t.Fatalf("UPIIDs = %v, want [scammer@upi]", bundle.UPIIDs)
	}
}

func TestFromText_UPICaseNormalized(t *testing.T) {
	e := New()

	bundle := e.FromText("Pay SCAMMER@Upi now")
	if len(bundle.UPIIDs) != 1 || bundle.UPIIDs[0] != "scammer@upi" {
		t.Fatalf("UPIIDs = %v, want [scammer@upi]", bundle.UPIIDs)
	}
}

func TestFromText_EmailNotUPI(t *testing.T) {
	e := New()

	bundle := e.FromText("Write to support@gmail.com")
	if len(bundle.UPIIDs) != 0 {
		t.Fatalf("UPIIDs = %v, want empty (email address)", bundle.UPIIDs)
	}
}

func TestFromText_BankAccount(t *testing.T) {
	e := New()

	bundle := e.FromText("Transfer to account 123456789012 with IFSC SBIN0001")
	if len(bundle.BankAccounts) != 1 || bundle.BankAccounts[0] != "123456789012" {
		t.Fatalf("BankAccounts = %v, want [123456789012]", bundle.BankAccounts)
	}
}

func TestFromText_TimestampNotBankAccount(t *testing.T) {
	e := New()

	bundle := e.FromText("Reference 2024010112345 confirms your order")
	if len(bundle.BankAccounts) != 0 {
		t.Fatalf("BankAccounts = %v, want empty (timestamp-like run)", bundle.BankAccounts)
	}
}

func TestFromText_PhishingLink(t *testing.T) {
	e := New()

	bundle := e.FromText("Click https://bit.ly/kyc-update to verify")
	if len(bundle.PhishingLinks) != 1 {
		t.Fatalf("PhishingLinks = %v, want one entry", bundle.PhishingLinks)
	}
}

func TestFromText_AllowlistedLink(t *testing.T) {
	e := New()

	bundle := e.FromText("Search it on https://www.google.com/search")
	if len(bundle.PhishingLinks) != 0 {
		t.Fatalf("PhishingLinks = %v, want empty (allowlisted domain)", bundle.PhishingLinks)
	}
}

func TestFromText_Idempotent(t *testing.T) {
	e := New()
	session := domain.NewIntelligenceBundle()

	first := e.FromText("My UPI is scammer@upi, call 9876543210")
	session.Merge(first)

	again := e.FromText("My UPI is scammer@upi, call 9876543210")
	if session.Merge(again) {
		t.Error("re-merging identical extraction reported additions")
	}
	if len(session.UPIIDs) != 1 || len(session.PhoneNumbers) != 1 {
		t.Errorf("bundle grew on re-extraction: upi=%v phones=%v",
			session.UPIIDs, session.PhoneNumbers)
	}
}

func TestFromConversation_ScammerMessagesOnly(t *testing.T) {
	e := New()
	now := time.Now()

	history := []domain.Message{
		{Sender: domain.SenderScammer, Text: "Pay to fraud@ybl", Timestamp: now},
		{Sender: domain.SenderAgent, Text: "Is decoy@okaxis yours?", Timestamp: now},
		{Sender: domain.SenderScammer, Text: "Call 9123456780", Timestamp: now},
	}

	bundle := e.FromConversation(history)
	if len(bundle.UPIIDs) != 1 || bundle.UPIIDs[0] != "fraud@ybl" {
		t.Errorf("UPIIDs = %v, want [fraud@ybl]", bundle.UPIIDs)
	}
	if len(bundle.PhoneNumbers) != 1 || bundle.PhoneNumbers[0] != "9123456780" {
		t.Errorf("PhoneNumbers = %v, want [9123456780]", bundle.PhoneNumbers)
	}
}

package enums

import "testing"

func TestGroupBuyStatusTransitions(t *testing.T) {
	tests := []struct {
		from    GroupBuyStatus
		to      GroupBuyStatus
		allowed bool
	}{
		{GroupBuyStatusOpen, GroupBuyStatusProcessing, true},
		{GroupBuyStatusOpen, GroupBuyStatusClosed, true},
		{GroupBuyStatusOpen, GroupBuyStatusFulfilled, false},
		{GroupBuyStatusProcessing, GroupBuyStatusFulfilled, true},
		{GroupBuyStatusProcessing, GroupBuyStatusClosed, true},
		{GroupBuyStatusProcessing, GroupBuyStatusOpen, false},
		{GroupBuyStatusClosed, GroupBuyStatusOpen, false},
		{GroupBuyStatusFulfilled, GroupBuyStatusProcessing, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
			t.Fatalf("%s -> %s: expected allowed=%v got %v", tt.from, tt.to, tt.allowed, got)
		}
	}
}

func TestGroupBuyStatusTerminal(t *testing.T) {
	if GroupBuyStatusOpen.IsTerminal() {
		t.Fatalf("open must not be terminal")
	}
	if !GroupBuyStatusClosed.IsTerminal() {
		t.Fatalf("closed must be terminal")
	}
	if !GroupBuyStatusFulfilled.IsTerminal() {
		t.Fatalf("fulfilled must be terminal")
	}
	if GroupBuyStatus("bogus").IsTerminal() {
		t.Fatalf("unknown status must not report terminal")
	}
}

func TestParseGroupBuyStatus(t *testing.T) {
	status, err := ParseGroupBuyStatus("processing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != GroupBuyStatusProcessing {
		t.Fatalf("unexpected status %s", status)
	}
	if _, err := ParseGroupBuyStatus("archived"); err == nil {
		t.Fatalf("expected error for unknown status")
	}
}

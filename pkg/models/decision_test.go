package models

import "testing"

func TestDecisionTierValid(t *testing.T) {
	valid := []DecisionTier{TierTrivial, TierMinor, TierMedium, TierMajor}
	for _, tier := range valid {
		if !tier.Valid() {
			t.Errorf("expected %q to be valid", tier)
		}
	}

	invalid := []DecisionTier{"", "critical", "TRIVIAL"}
	for _, tier := range invalid {
		if tier.Valid() {
			t.Errorf("expected %q to be invalid", tier)
		}
	}
}

func TestDecisionTierLevel(t *testing.T) {
	tests := []struct {
		tier  DecisionTier
		level int
	}{
		{TierTrivial, 0},
		{TierMinor, 1},
		{TierMedium, 2},
		{TierMajor, 3},
		{DecisionTier("unknown"), -1},
	}

	for _, tt := range tests {
		if got := tt.tier.Level(); got != tt.level {
			t.Errorf("%s.Level() = %d, want %d", tt.tier, got, tt.level)
		}
	}
}

func TestDecisionTierBump(t *testing.T) {
	tests := []struct {
		from DecisionTier
		want DecisionTier
	}{
		{TierTrivial, TierMinor},
		{TierMinor, TierMedium},
		{TierMedium, TierMajor},
		{TierMajor, TierMajor}, // capped
	}

	for _, tt := range tests {
		if got := tt.from.Bump(); got != tt.want {
			t.Errorf("%s.Bump() = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestDecisionTierLower(t *testing.T) {
	tests := []struct {
		from DecisionTier
		want DecisionTier
	}{
		{TierMajor, TierMedium},
		{TierMedium, TierMinor},
		{TierMinor, TierTrivial},
		{TierTrivial, TierTrivial}, // floored
	}

	for _, tt := range tests {
		if got := tt.from.Lower(); got != tt.want {
			t.Errorf("%s.Lower() = %s, want %s", tt.from, got, tt.want)
		}
	}
}

func TestReviewStatusValid(t *testing.T) {
	for _, s := range []ReviewStatus{ReviewPending, ReviewApproved, ReviewOverridden} {
		if !s.Valid() {
			t.Errorf("expected %q to be valid", s)
		}
	}
	if ReviewStatus("rejected").Valid() {
		t.Error("expected unknown status to be invalid")
	}
}

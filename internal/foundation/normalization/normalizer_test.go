package normalization

import (
	"strings"
	"testing"
)

type channel string

const (
	channelStable channel = "stable"
	channelMaint  channel = "maintenance"
	channelRC     channel = "candidate"
)

func newChannelNormalizer() *Normalizer[channel] {
	return NewNormalizer("release type", map[string]channel{
		"stable":      channelStable,
		"maintenance": channelMaint,
		"candidate":   channelRC,
	}, channelStable)
}

func TestNormalizer_Normalize(t *testing.T) {
	n := newChannelNormalizer()

	tests := []struct {
		name     string
		input    string
		expected channel
	}{
		{"exact match", "stable", channelStable},
		{"case insensitive", "MAINTENANCE", channelMaint},
		{"with spaces", "  candidate  ", channelRC},
		{"unknown falls back", "nightly", channelStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.input); got != tt.expected {
				t.Errorf("Normalize(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizer_WithError(t *testing.T) {
	n := newChannelNormalizer()

	got, err := n.NormalizeWithError("Candidate")
	if err != nil || got != channelRC {
		t.Fatalf("NormalizeWithError(valid) = %v, %v", got, err)
	}

	_, err = n.NormalizeWithError("nightly")
	if err == nil {
		t.Fatal("expected error for unknown value")
	}
	if !strings.Contains(err.Error(), "release type") || !strings.Contains(err.Error(), "maintenance") {
		t.Errorf("error should name the enum and list options: %v", err)
	}
}

func TestNormalizer_ValidKeys(t *testing.T) {
	n := newChannelNormalizer()
	keys := n.ValidKeys()
	want := []string{"candidate", "maintenance", "stable"}
	if strings.Join(keys, ",") != strings.Join(want, ",") {
		t.Errorf("ValidKeys() = %v, want %v", keys, want)
	}
	keys[0] = "mutated"
	if n.ValidKeys()[0] != "candidate" {
		t.Error("ValidKeys must return a copy")
	}
	if !n.IsValid(" STABLE ") || n.IsValid("beta") {
		t.Error("IsValid mismatch")
	}
}

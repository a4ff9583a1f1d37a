package prompts

import (
	"strings"
	"testing"

	"github.com/timmy/ghostbooth/internal/domain"
)

func TestCostume(t *testing.T) {
	tests := []struct {
		name     string
		variant  domain.Variant
		thematic bool
		extra    string
		contains []string
	}{
		{"thematic vampire", domain.VariantVampire, true, "", []string{"cape", "Replace the background"}},
		{"plain witch", domain.VariantWitch, false, "", []string{"witch", "Keep the existing background"}},
		{"unknown falls back to ghost", domain.Variant("pirate"), false, "", []string{"ghostly"}},
		{"augmentation appended", domain.VariantZombie, true, "  green hair ", []string{"Additional details: green hair"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Costume(tt.variant, tt.thematic, tt.extra)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("prompt %q does not contain %q", got, want)
				}
			}
		})
	}
}

func TestEveryVariantHasBothPrompts(t *testing.T) {
	for _, v := range domain.Variants {
		if _, ok := thematicCostumes[v]; !ok {
			t.Errorf("missing thematic prompt for %s", v)
		}
		if _, ok := plainCostumes[v]; !ok {
			t.Errorf("missing plain prompt for %s", v)
		}
	}
}

func TestFallbackNarrative(t *testing.T) {
	lines := FallbackNarrative("", "")
	if len(lines) != NarrativeLineCount {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "a shadow walks") {
		t.Errorf("line 0 = %q", lines[0])
	}
	if !strings.Contains(lines[1], "sign of ghost") {
		t.Errorf("line 1 = %q", lines[1])
	}

	lines = FallbackNarrative("Morgana", "witch")
	if !strings.HasPrefix(lines[0], "Morgana") || !strings.Contains(lines[1], "witch") {
		t.Errorf("unexpected %v", lines)
	}
}

package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestParseVariant(t *testing.T) {
	tests := []struct {
		in   string
		want Variant
	}{
		{"", VariantGhost},
		{"  Vampire ", VariantVampire},
		{"WITCH", VariantWitch},
		{"pirate", Variant("pirate")},
	}
	for _, tt := range tests {
		if got := ParseVariant(tt.in); got != tt.want {
			t.Errorf("ParseVariant(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if Variant("pirate").Known() {
		t.Error("pirate should not be a known variant")
	}
}

func TestValidationErrorUnwraps(t *testing.T) {
	err := fmt.Errorf("transform: %w", NewValidationError("display_name", "too short"))
	if !errors.Is(err, ErrValidation) {
		t.Fatal("expected errors.Is(err, ErrValidation)")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Field != "display_name" {
		t.Fatalf("errors.As failed: %v", err)
	}
}

func TestStringArrayScan(t *testing.T) {
	var a StringArray
	if err := a.Scan(`["a","b"]`); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(a) != 2 || a[1] != "b" {
		t.Fatalf("unexpected %v", a)
	}
	if err := a.Scan(nil); err != nil || len(a) != 0 {
		t.Fatalf("Scan(nil) = %v, %v", a, err)
	}
	if err := a.Scan(42); err == nil {
		t.Fatal("expected error for int")
	}
	v, _ := StringArray(nil).Value()
	if v != "[]" {
		t.Fatalf("nil Value = %v", v)
	}
}

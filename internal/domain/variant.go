package domain

import "strings"

// Variant is the costume theme applied by a transform.
type Variant string

const (
	VariantGhost    Variant = "ghost"
	VariantVampire  Variant = "vampire"
	VariantWitch    Variant = "witch"
	VariantZombie   Variant = "zombie"
	VariantWerewolf Variant = "werewolf"
)

// DefaultVariant is used when a request names no variant or an unknown one.
const DefaultVariant = VariantGhost

// Variants lists every supported costume in display order.
var Variants = []Variant{VariantGhost, VariantVampire, VariantWitch, VariantZombie, VariantWerewolf}

// Known reports whether v is one of the supported costumes.
func (v Variant) Known() bool {
	for _, known := range Variants {
		if v == known {
			return true
		}
	}
	return false
}

// ParseVariant normalizes user input. Unknown values are kept as-is so they
// still contribute to the fingerprint; prompt selection maps them to ghost.
func ParseVariant(s string) Variant {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultVariant
	}
	return Variant(s)
}

// BackgroundMode returns the fingerprint marker for the background flag.
func BackgroundMode(thematic bool) string {
	if thematic {
		return "bg"
	}
	return "nobg"
}

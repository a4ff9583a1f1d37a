package prompts

import (
	"fmt"
	"strings"

	"github.com/timmy/ghostbooth/internal/domain"
)

// ============================================================================
// Costume edit prompts
// ============================================================================

const identityGuard = "Edit the provided photo. Keep the same person, pose and facial identity. "

// thematicCostumes replace the background with a scene matching the costume.
var thematicCostumes = map[domain.Variant]string{
	domain.VariantVampire: identityGuard +
		"Add an elegant black vampire cape with a visible collar and subtle fangs, parting the lips slightly if needed. " +
		"Grade the light in cinematic red and black. Replace the background with a softly blurred gothic night scene with castle hints and old lamps. Do not replace the person.",
	domain.VariantWitch: identityGuard +
		"Give a modern witch look: soft purple glow, faint spell particles and a natural black cloak, optionally a hat brim. " +
		"Replace the background with a moonlit mystical scene, light fog and shallow depth of field. Do not generate a different person.",
	domain.VariantZombie: identityGuard +
		"Apply glamorous zombie makeup: pale skin, shadows under the eyes, faint cracks and veins, with a haunting green cinematic grade. " +
		"Replace the background with an eerie street and blurred zombies far behind. Do not replace the person.",
	domain.VariantWerewolf: identityGuard +
		"Blend werewolf features into the face: pointed ears through the hair, fine fur on cheeks and temples, natural fangs with the mouth slightly open. " +
		"Replace the background with a foggy moonlit forest and shallow depth of field. Do not replace the person.",
	domain.VariantGhost: identityGuard +
		"Add an ethereal ghostly glow and slight translucency to the subject in a cool cinematic atmosphere. " +
		"Replace the background with a dim haunted interior or a misty night street, softly blurred. Do not create a new person.",
}

// plainCostumes keep the original background and only adjust its grading.
var plainCostumes = map[domain.Variant]string{
	domain.VariantVampire: identityGuard +
		"Add elegant vampire makeup with a pale tint, a subtle red and black grade and small natural fangs. " +
		"Keep the existing background, only matching its colour grade. Do not replace the person.",
	domain.VariantWitch: identityGuard +
		"Give a modern witch look with a soft purple glow, faint spell particles and a black cloak if it fits naturally. " +
		"Keep the existing background with minimal changes. Do not generate a different person.",
	domain.VariantZombie: identityGuard +
		"Apply glamorous zombie makeup: pale tint, under-eye shadows, light cracks and faint veins, with an eerie green grade. " +
		"Keep the existing background with minimal adjustments. Do not replace the person.",
	domain.VariantWerewolf: identityGuard +
		"Blend werewolf features into the face (ears, fine fur texture, subtle fangs) while preserving identity. " +
		"Keep the existing background. Do not replace the person.",
	domain.VariantGhost: identityGuard +
		"Add an ethereal ghostly glow and slight translucency in a cool cinematic mood. " +
		"Keep the existing background. Do not create a new person.",
}

// Costume builds the edit prompt for variant. Unknown variants get the ghost
// prompt; a non-empty augmentation is appended as additional details.
func Costume(variant domain.Variant, thematic bool, augmentation string) string {
	table := plainCostumes
	if thematic {
		table = thematicCostumes
	}
	prompt, ok := table[variant]
	if !ok {
		prompt = table[domain.DefaultVariant]
	}
	if extra := strings.TrimSpace(augmentation); extra != "" {
		prompt += " Additional details: " + extra
	}
	return prompt
}

// ============================================================================
// Narrative prompts
// ============================================================================

// NarrativeLineCount is the number of lines shown under every result.
const NarrativeLineCount = 3

// Narrative asks the text model for three short free-verse lines.
func Narrative(name, theme string) string {
	return fmt.Sprintf("Act as a poet. Write exactly %d free-verse lines, one per line, "+
		"without numbering or quotes, at most 300 characters each. Theme: Halloween and the figure %q. "+
		"Weave the name %q in subtly (not on every line). Cinematic tone with sensory metaphors. "+
		"Avoid obvious clichés, forced rhymes, emojis and needless punctuation. "+
		"Reply with the %d lines only, separated by line breaks.",
		NarrativeLineCount, theme, name, NarrativeLineCount)
}

// FallbackNarrative is used whenever the text model is unavailable or returns
// something unusable. Empty name and theme get neutral defaults.
func FallbackNarrative(name, theme string) []string {
	if strings.TrimSpace(name) == "" {
		name = "a shadow"
	}
	if strings.TrimSpace(theme) == "" {
		theme = string(domain.DefaultVariant)
	}
	return []string{
		fmt.Sprintf("%s walks among whispers and moonlight: the night learns your name.", name),
		fmt.Sprintf("Under the sign of %s, the air hums with burning metaphors.", theme),
		"The darkness greets you with elegance: everything shines a little differently.",
	}
}

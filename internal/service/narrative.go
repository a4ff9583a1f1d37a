package service

import (
	"context"
	"strings"

	"github.com/timmy/ghostbooth/internal/logger"
	"github.com/timmy/ghostbooth/internal/prompts"
)

// TextGenerator writes short texts from a prompt.
type TextGenerator interface {
	Enabled() bool
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// NarrativeService produces the three lines shown under a result. It never
// fails: any problem with the text model yields the fixed fallback lines.
type NarrativeService struct {
	text   TextGenerator
	logger *logger.Logger
}

// NewNarrativeService creates a NarrativeService. text may be nil.
func NewNarrativeService(text TextGenerator, log *logger.Logger) *NarrativeService {
	return &NarrativeService{text: text, logger: log}
}

func (s *NarrativeService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

// Lines returns exactly prompts.NarrativeLineCount lines for name and theme.
func (s *NarrativeService) Lines(ctx context.Context, name, theme string) []string {
	fallback := prompts.FallbackNarrative(name, theme)
	if s == nil || s.text == nil || !s.text.Enabled() {
		return fallback
	}

	text, err := s.text.GenerateText(ctx, prompts.Narrative(name, theme))
	if err != nil {
		s.log(ctx).WithError(err).Warn("Narrative generation failed, using fallback lines")
		return fallback
	}
	return normalizeLines(strings.Split(text, "\n"), fallback)
}

// normalizeLines trims lines, drops blanks and fits the result to the
// length of fallback, padding from fallback at the same positions.
func normalizeLines(lines []string, fallback []string) []string {
	out := make([]string, 0, len(fallback))
	for _, ln := range lines {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
		if len(out) == len(fallback) {
			return out
		}
	}
	for len(out) < len(fallback) {
		out = append(out, fallback[len(out)])
	}
	return out
}

package service

import (
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// sanitizeName lowercases s and replaces every rune that is not a letter,
// digit, '-' or '_' with '-'. An empty result becomes fallback.
func sanitizeName(s, fallback string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) || r == '-' || r == '_' {
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-_")
	if out == "" {
		return fallback
	}
	return out
}

// resultFileName builds "<name>-<12 hex>.<ext>" for a stored result.
func resultFileName(displayName, ext string) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return sanitizeName(displayName, "costume") + "-" + id[:12] + "." + ext
}

// suggestedName is the download name offered by the gallery.
func suggestedName(displayName, ext string) string {
	return sanitizeName(displayName, "image") + "." + ext
}

func dataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

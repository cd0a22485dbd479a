package ocr

import (
	"regexp"
	"strings"
)

var spaceRE = regexp.MustCompile(`\s+`)

// Variants Tesseract (or the game font) produces for the multiplication sign
// and dashes. All are mapped to plain ASCII before any comparison.
var charReplacer = strings.NewReplacer(
	"×", "x",
	"✕", "x",
	"х", "x", // cyrillic ha, common misread of the durability multiplier
	"–", "-",
	"—", "-",
	"−", "-",
)

// NormalizeText lowercases, canonicalizes multiplication-sign and dash
// variants, and collapses whitespace runs to single spaces. It must be applied
// identically to OCR output and catalog names, otherwise match quality
// degrades asymmetrically. Idempotent.
func NormalizeText(s string) string {
	s = strings.ToLower(s)
	s = charReplacer.Replace(s)
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// snippet returns a shortened version of text for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

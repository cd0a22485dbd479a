package ocr

import (
	"strings"

	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

const (
	headerPhrase = "scavs have brought you"
	headerCutoff = 75
)

// LooksLikeScavCase reports whether recognized text came from the scav case
// reward screen. A partial substring ratio against the fixed header phrase
// absorbs OCR noise while still rejecting unrelated screenshots.
func LooksLikeScavCase(text string) bool {
	return fuzzy.PartialRatio(headerPhrase, strings.ToLower(text)) >= headerCutoff
}

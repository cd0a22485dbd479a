package ocr

import (
	"regexp"
	"strconv"
	"strings"
)

// Confidence tiers for candidate lines. A cleanly parsed "(n)" quantity marker
// makes a line definite; anything else that survives the filters is a fallback
// guess with quantity 1.
const (
	TierDefinite = "definite"
	TierFallback = "fallback"
)

const (
	definiteCutoff = 70
	fallbackCutoff = 85
	minLineLen     = 4
)

var (
	// "<name> (<quantity>)" — the shape the reward screen guarantees for real
	// item lines.
	quantityRE = regexp.MustCompile(`^(.+?)\s+\((\d+)\)$`)

	// Durability annotations follow item lines: a multiplier token then two
	// numbers around a slash, e.g. "x 100/100". Tesseract garbles the
	// multiplier into %, *, + or drops it entirely.
	durabilityRE = regexp.MustCompile(`^[x%*+]?\s*\d{1,4}\s*/\s*\d{1,4}$`)
)

// Fixed interface strings that are never item names.
var uiPhrases = []string{
	"scavs have brought you",
	"received items",
	"intelligence center",
}

// Trailing noise Tesseract leaves behind when the quantity marker is garbled.
const trailingNoise = " .,:;()[]{}|\\/_-'\"`!"

// CandidateLine is an ephemeral, in-memory value produced by line
// classification, before catalog matching.
type CandidateLine struct {
	Text     string
	Quantity int
	Tier     string
}

// ItemEntry is one extracted item with its catalog identity and requested
// quantity. The JSON shape matches the manual-entry submission payload so both
// paths converge on the same service input.
type ItemEntry struct {
	TarkovID string `json:"id"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ClassifyLines segments raw OCR text into candidate item lines, in source
// order. Deterministic for fixed input.
func ClassifyLines(text string) []CandidateLine {
	var out []CandidateLine
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if len(line) < minLineLen {
			continue
		}
		// category sub-labels like "Provisions > Drink" are never item lines
		if strings.Contains(line, ">") {
			continue
		}
		// section headers
		if strings.HasSuffix(line, ":") {
			continue
		}
		norm := NormalizeText(line)
		if isUIPhrase(norm) {
			continue
		}
		if durabilityRE.MatchString(norm) {
			continue
		}
		if m := quantityRE.FindStringSubmatch(norm); m != nil {
			if qty, err := strconv.Atoi(m[2]); err == nil && qty > 0 {
				out = append(out, CandidateLine{Text: m[1], Quantity: qty, Tier: TierDefinite})
				continue
			}
		}
		// quantity marker garbled; keep the line as a low-confidence guess
		name := strings.TrimRight(norm, trailingNoise)
		if len(name) < minLineLen {
			continue
		}
		out = append(out, CandidateLine{Text: name, Quantity: 1, Tier: TierFallback})
	}
	return out
}

func isUIPhrase(norm string) bool {
	for _, p := range uiPhrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}

// ExtractItems classifies the text and fuzzy-matches every candidate against
// the catalog. Definite candidates use the lower cutoff; fallback candidates
// are far more likely to be noise and must match near-exactly. A definite
// candidate that matches nothing is a data problem and aborts extraction with
// a NotRecognizedError; an unmatched fallback candidate is silently dropped.
func ExtractItems(text string, catalog []CatalogEntry) ([]ItemEntry, error) {
	var items []ItemEntry
	for _, cand := range ClassifyLines(text) {
		cutoff := definiteCutoff
		if cand.Tier == TierFallback {
			cutoff = fallbackCutoff
		}
		entry, ok := BestMatch(cand.Text, catalog, cutoff)
		if !ok {
			if cand.Tier == TierDefinite {
				return nil, &NotRecognizedError{Line: cand.Text}
			}
			continue
		}
		items = append(items, ItemEntry{
			TarkovID: entry.TarkovID,
			Name:     entry.Name,
			Quantity: cand.Quantity,
		})
	}
	return items, nil
}

package ocr

import (
	fuzzy "github.com/paul-mannino/go-fuzzywuzzy"
)

// CatalogEntry is one recognizable item from the catalog snapshot.
type CatalogEntry struct {
	TarkovID string
	Name     string
	Category string
}

type scoreFunc func(candidate, name string) int

func weightedRatio(a, b string) int {
	return fuzzy.WRatio(a, b)
}

// BestMatch finds the catalog entry whose name scores highest against the
// candidate under a weighted fuzzy ratio, both sides normalized the same way.
// The entry is accepted only when its score meets the cutoff; ties resolve to
// the first-encountered maximum so results are deterministic for a fixed
// catalog ordering.
func BestMatch(candidate string, catalog []CatalogEntry, cutoff int) (CatalogEntry, bool) {
	return bestMatchWith(weightedRatio, candidate, catalog, cutoff)
}

func bestMatchWith(score scoreFunc, candidate string, catalog []CatalogEntry, cutoff int) (CatalogEntry, bool) {
	norm := NormalizeText(candidate)
	bestIdx := -1
	bestScore := -1
	for i := range catalog {
		s := score(norm, NormalizeText(catalog[i].Name))
		if s > bestScore {
			bestScore = s
			bestIdx = i
		}
	}
	if bestIdx < 0 || bestScore < cutoff {
		return CatalogEntry{}, false
	}
	return catalog[bestIdx], true
}

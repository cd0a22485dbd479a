package ocr

import "testing"

func TestLooksLikeScavCase(t *testing.T) {
	ok := []string{
		"The Scavs have brought you:\nGraphics Card (2)",
		"the scavs have brought you",
		// partial garbling still clears the ratio
		"The Scavs hawe brought y0u:\nBolts (3)",
	}
	for _, text := range ok {
		if !LooksLikeScavCase(text) {
			t.Errorf("expected reward screen text to validate: %q", text)
		}
	}

	bad := []string{
		"",
		"Flea Market\nGraphics Card 120,000",
		"Stash  4/28\nSICC organizational pouch",
	}
	for _, text := range bad {
		if LooksLikeScavCase(text) {
			t.Errorf("expected unrelated text to be rejected: %q", text)
		}
	}
}

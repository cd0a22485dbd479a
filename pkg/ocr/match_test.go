package ocr

import "testing"

var testCatalog = []CatalogEntry{
	{TarkovID: "57347ca924597744596b4e71", Name: "Graphics Card", Category: "Barter Items"},
	{TarkovID: "544fb45d4bdc2dee738b4568", Name: "Salewa first aid kit", Category: "Medical"},
	{TarkovID: "590c678286f77426c9660122", Name: "IFAK individual first aid kit", Category: "Medical"},
	{TarkovID: "5d40407c86f774318526545a", Name: "Bottle of Tarkovskaya vodka", Category: "Barter Items"},
}

func TestBestMatchTolerantOfOCRNoise(t *testing.T) {
	// a one-letter misread must still clear the lower extraction cutoff
	entry, ok := BestMatch("Grafics Card", testCatalog, 70)
	if !ok {
		t.Fatal("expected a match for a near-miss candidate")
	}
	if entry.Name != "Graphics Card" {
		t.Errorf("matched %q, want Graphics Card", entry.Name)
	}
}

func TestBestMatchCutoffBoundary(t *testing.T) {
	fixed := func(candidate, name string) int { return 70 }
	if _, ok := bestMatchWith(fixed, "whatever", testCatalog, 70); !ok {
		t.Error("score equal to cutoff must be accepted")
	}
	if _, ok := bestMatchWith(fixed, "whatever", testCatalog, 71); ok {
		t.Error("score below cutoff must be rejected")
	}
}

func TestBestMatchFirstMaxWins(t *testing.T) {
	// every entry scores identically; the first must win so results are
	// stable for a fixed catalog ordering
	fixed := func(candidate, name string) int { return 90 }
	entry, ok := bestMatchWith(fixed, "anything", testCatalog, 70)
	if !ok {
		t.Fatal("expected a match")
	}
	if entry.TarkovID != testCatalog[0].TarkovID {
		t.Errorf("tie resolved to %s, want first entry %s", entry.TarkovID, testCatalog[0].TarkovID)
	}
}

func TestBestMatchEmptyCatalog(t *testing.T) {
	if _, ok := BestMatch("Graphics Card", nil, 70); ok {
		t.Error("empty catalog must never match")
	}
}

package ocr

import (
	"errors"
	"reflect"
	"testing"
)

const rewardScreenText = `The Scavs have brought you:
Received items:
Graphics Card (2)
Bolts (3)
x 100/100
Provisions > Drink
Bottle of Tarkovskaya vodka (1)
ok
Items:
`

func TestClassifyLines(t *testing.T) {
	lines := ClassifyLines(rewardScreenText)
	want := []CandidateLine{
		{Text: "graphics card", Quantity: 2, Tier: TierDefinite},
		{Text: "bolts", Quantity: 3, Tier: TierDefinite},
		{Text: "bottle of tarkovskaya vodka", Quantity: 1, Tier: TierDefinite},
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("ClassifyLines = %+v, want %+v", lines, want)
	}
}

func TestClassifyLinesFilters(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"durability", "x 100/100"},
		{"garbled durability", "% 55/70"},
		{"category sub-label", "Provisions > Drink"},
		{"section header", "Received items:"},
		{"ui phrase", "The Scavs have brought you"},
		{"too short", "ok"},
	}
	for _, c := range cases {
		if got := ClassifyLines(c.text); len(got) != 0 {
			t.Errorf("%s: expected %q to be filtered, got %+v", c.name, c.text, got)
		}
	}
}

func TestClassifyLinesFallback(t *testing.T) {
	// garbled quantity marker: keep the line as a quantity-1 guess with the
	// trailing junk stripped
	lines := ClassifyLines("Graphics Card (")
	if len(lines) != 1 {
		t.Fatalf("expected one candidate, got %+v", lines)
	}
	if lines[0].Tier != TierFallback || lines[0].Quantity != 1 || lines[0].Text != "graphics card" {
		t.Errorf("unexpected fallback candidate: %+v", lines[0])
	}
}

func TestExtractItems(t *testing.T) {
	catalog := []CatalogEntry{
		{TarkovID: "gpu-id", Name: "Graphics Card"},
		{TarkovID: "bolts-id", Name: "Bolts"},
		{TarkovID: "vodka-id", Name: "Bottle of Tarkovskaya vodka"},
	}
	items, err := ExtractItems(rewardScreenText, catalog)
	if err != nil {
		t.Fatalf("ExtractItems: %v", err)
	}
	want := []ItemEntry{
		{TarkovID: "gpu-id", Name: "Graphics Card", Quantity: 2},
		{TarkovID: "bolts-id", Name: "Bolts", Quantity: 3},
		{TarkovID: "vodka-id", Name: "Bottle of Tarkovskaya vodka", Quantity: 1},
	}
	if !reflect.DeepEqual(items, want) {
		t.Errorf("ExtractItems = %+v, want %+v", items, want)
	}
}

func TestExtractItemsDeterministic(t *testing.T) {
	catalog := []CatalogEntry{
		{TarkovID: "gpu-id", Name: "Graphics Card"},
		{TarkovID: "bolts-id", Name: "Bolts"},
		{TarkovID: "vodka-id", Name: "Bottle of Tarkovskaya vodka"},
	}
	first, err := ExtractItems(rewardScreenText, catalog)
	if err != nil {
		t.Fatalf("ExtractItems: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := ExtractItems(rewardScreenText, catalog)
		if err != nil {
			t.Fatalf("ExtractItems run %d: %v", i, err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differed: %+v vs %+v", i, first, again)
		}
	}
}

func TestExtractItemsDefiniteUnmatched(t *testing.T) {
	catalog := []CatalogEntry{{TarkovID: "bolts-id", Name: "Bolts"}}
	_, err := ExtractItems("Graphics Card (2)", catalog)
	var nre *NotRecognizedError
	if !errors.As(err, &nre) {
		t.Fatalf("expected NotRecognizedError, got %v", err)
	}
	if nre.Line != "graphics card" {
		t.Errorf("offending line = %q, want %q", nre.Line, "graphics card")
	}
}

func TestExtractItemsFallbackUnmatchedDropped(t *testing.T) {
	catalog := []CatalogEntry{{TarkovID: "bolts-id", Name: "Bolts"}}
	// no quantity marker, so this is a fallback guess; an unmatched guess is
	// dropped rather than failing the whole screenshot
	items, err := ExtractItems("zxqv wmtr junk", catalog)
	if err != nil {
		t.Fatalf("ExtractItems: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected no items, got %+v", items)
	}
}

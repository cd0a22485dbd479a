package ocr

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// fakeRecognizer returns canned text instead of running Tesseract.
type fakeRecognizer struct {
	text string
	err  error
}

func (f fakeRecognizer) Text(path string) (string, error) { return f.text, f.err }

func writeTestImage(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "screen.png")
	img := imaging.New(64, 32, color.NRGBA{R: 20, G: 20, B: 20, A: 255})
	if err := imaging.Save(img, path); err != nil {
		t.Fatalf("save test image: %v", err)
	}
	return path
}

func TestProcessScreenshot(t *testing.T) {
	path := writeTestImage(t)
	rec := fakeRecognizer{text: "The Scavs have brought you\nGraphics Card (2)"}
	catalog := []CatalogEntry{{TarkovID: "gpu-id", Name: "Graphics Card"}}
	items, err := ProcessScreenshot(rec, catalog, path)
	if err != nil {
		t.Fatalf("ProcessScreenshot: %v", err)
	}
	if len(items) != 1 || items[0].TarkovID != "gpu-id" || items[0].Quantity != 2 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestProcessScreenshotRejectsUnrelatedImage(t *testing.T) {
	path := writeTestImage(t)
	rec := fakeRecognizer{text: "Flea Market\nGraphics Card 120,000"}
	_, err := ProcessScreenshot(rec, nil, path)
	if !errors.Is(err, ErrNotScavCase) {
		t.Fatalf("expected ErrNotScavCase, got %v", err)
	}
}

func TestProcessScreenshotRecognizerError(t *testing.T) {
	path := writeTestImage(t)
	rec := fakeRecognizer{err: errors.New("tesseract exploded")}
	_, err := ProcessScreenshot(rec, nil, path)
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestProcessScreenshotMissingFile(t *testing.T) {
	_, err := ProcessScreenshot(fakeRecognizer{}, nil, filepath.Join(t.TempDir(), "nope.png"))
	if err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

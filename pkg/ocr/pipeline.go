package ocr

import (
	"fmt"
	"log"
	"os"

	"github.com/disintegration/imaging"
)

// ProcessScreenshot runs the full extraction pipeline for one screenshot on
// disk: preprocess, recognize, validate, extract. The recognizer runs once and
// its text is reused for both validation and extraction.
func ProcessScreenshot(rec Recognizer, catalog []CatalogEntry, path string) ([]ItemEntry, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	prepped := Preprocess(img)

	tmpFile, err := os.CreateTemp("", "scav-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("temp file: %w", err)
	}
	tmp := tmpFile.Name()
	_ = tmpFile.Close()
	defer os.Remove(tmp)
	if err := imaging.Save(prepped, tmp); err != nil {
		return nil, fmt.Errorf("save preprocessed image: %w", err)
	}

	text, err := rec.Text(tmp)
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", path, err)
	}
	if !LooksLikeScavCase(text) {
		return nil, ErrNotScavCase
	}
	log.Printf("OCR RAW %s snippet=%q", path, snippet(NormalizeText(text), 180))
	return ExtractItems(text, catalog)
}

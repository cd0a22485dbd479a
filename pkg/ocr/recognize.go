package ocr

import (
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// Recognizer turns an image file into raw multi-line text. The output carries
// no structure guarantees and must go through the full normalization and
// classification pipeline before it is trusted.
type Recognizer interface {
	Text(path string) (string, error)
}

// Tesseract is the gosseract-backed Recognizer used in production.
type Tesseract struct{}

func (Tesseract) Text(path string) (string, error) {
	client := gosseract.NewClient()
	defer client.Close()
	_ = client.SetLanguage("eng")
	client.SetImage(path)
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("ocr error: %w", err)
	}
	return text, nil
}

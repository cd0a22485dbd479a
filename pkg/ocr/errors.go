package ocr

import (
	"errors"
	"fmt"
)

// ErrNotScavCase is returned when an uploaded image does not pass the reward
// screen validation. This is a user-correctable condition, not a system fault.
var ErrNotScavCase = errors.New(
	"the uploaded image doesn't look like a scav case; make sure the text that reads " +
		"'Scavs have brought you' at the top is visible within the image")

// NotRecognizedError marks a structurally confident item line that matched
// nothing in the catalog. Retrying OCR on the same image yields the same
// result, so the user is told to enter the case manually instead.
type NotRecognizedError struct {
	Line string
}

func (e *NotRecognizedError) Error() string {
	return fmt.Sprintf("item %q wasn't recognised; please add the case manually", e.Line)
}

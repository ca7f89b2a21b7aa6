package content

import (
	"context"
	"fmt"
)

// ScenarioWriter produces a short natural-language scenario in which the
// given script would be said. Implementations may call an LLM or return
// canned text (for tests and offline use).
type ScenarioWriter interface {
	WriteScenario(ctx context.Context, text string) (string, error)
}

// Illustrator produces an image depicting the situation for a script.
type Illustrator interface {
	Illustrate(ctx context.Context, req IllustrationRequest) (*Image, error)
}

// IllustrationRequest describes the image to generate.
type IllustrationRequest struct {
	Text      string
	Reference *Image // optional, e.g. a picture of the learner's mentor
}

// Image is an encoded picture.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerationError is returned when generation fails so callers can
// distinguish "provider returned garbage" from "provider was unreachable".
type GenerationError struct {
	Reason  string
	Wrapped error
}

func (e *GenerationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("generation failed: %s: %v", e.Reason, e.Wrapped)
	}
	return fmt.Sprintf("generation failed: %s", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Wrapped
}

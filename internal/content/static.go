package content

import (
	"context"
	"encoding/base64"
)

// placeholderPNG is a 1x1 transparent PNG.
var placeholderPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==",
)

// StaticScenarioWriter returns a canned scenario. Used when no AI backend
// is configured.
type StaticScenarioWriter struct{}

func (StaticScenarioWriter) WriteScenario(_ context.Context, _ string) (string, error) {
	return "Look at the picture. What would you say here?", nil
}

// StaticIllustrator returns a placeholder image.
type StaticIllustrator struct{}

func (StaticIllustrator) Illustrate(_ context.Context, _ IllustrationRequest) (*Image, error) {
	data := make([]byte, len(placeholderPNG))
	copy(data, placeholderPNG)
	return &Image{Data: data, MIMEType: "image/png"}, nil
}

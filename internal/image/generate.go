package image

import "context"

// Generator turns a prompt into encoded image bytes.
type Generator interface {
	Generate(context.Context, string) ([]byte, error)
}

package prompt

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"github.com/dmorgan81/fusionbot/internal/log"
)

const maxSeed = 1_000_000

// Prompt is the text sent for a single image, with the random parts that
// made it unique.
type Prompt struct {
	Text      string `json:"text"`
	Seed      int    `json:"seed"`
	Variation string `json:"variation"`
}

// Builder renders requests into prompts. It is safe for concurrent use.
type Builder struct {
	variations []string

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBuilder(variations []string, src rand.Source) *Builder {
	return &Builder{variations: variations, rnd: rand.New(src)}
}

func (b *Builder) Build(req Request) Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.build(req, b.seed())
}

// Batch returns req.Count prompts, no two of which are identical.
func (b *Builder) Batch(ctx context.Context, req Request) []Prompt {
	b.mu.Lock()
	defer b.mu.Unlock()

	prompts := make([]Prompt, 0, req.Count)
	seen := make(map[int]struct{}, req.Count)
	for len(prompts) < req.Count {
		seed := b.seed()
		if _, ok := seen[seed]; ok {
			continue
		}
		seen[seed] = struct{}{}
		prompts = append(prompts, b.build(req, seed))
	}

	log.FromContextOrDiscard(ctx).WithGroup("prompt").Debug("built prompts", "label", req.Label(), "count", len(prompts))
	return prompts
}

func (b *Builder) seed() int {
	return b.rnd.Intn(maxSeed) + 1
}

func (b *Builder) build(req Request, seed int) Prompt {
	parts := []string{fmt.Sprintf("A unique fusion of %s and %s", req.Pokemon, strings.TrimSpace(req.Character))}
	var variation string
	if len(b.variations) > 0 {
		variation = b.variations[b.rnd.Intn(len(b.variations))]
		parts = append(parts, variation)
	}
	parts = append(parts,
		"detailed "+req.Style,
		"masterpiece",
		"8k",
		fmt.Sprintf("seed %d", seed),
	)
	return Prompt{
		Text:      strings.Join(parts, ", "),
		Seed:      seed,
		Variation: variation,
	}
}

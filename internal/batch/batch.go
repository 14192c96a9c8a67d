package batch

import (
	"context"

	"github.com/dmorgan81/fusionbot/internal/image"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/samber/do"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const DefaultLimit = 2

// Slot is the outcome of one prompt in a batch. Exactly one of Image and
// Err is set.
type Slot struct {
	Index  int
	Prompt prompt.Prompt
	Image  []byte
	Err    error
}

func (s Slot) OK() bool {
	return s.Err == nil
}

// Runner issues one image request per prompt, at most Limit at a time.
type Runner struct {
	Generator image.Generator
	Limit     int
}

func NewRunner(i *do.Injector) (*Runner, error) {
	return &Runner{
		Generator: do.MustInvoke[image.Generator](i),
		Limit:     do.MustInvokeNamed[int](i, "batch_limit"),
	}, nil
}

// Run returns one slot per prompt in prompt order. A failed slot never
// stops its siblings.
func (r *Runner) Run(ctx context.Context, prompts []prompt.Prompt) []Slot {
	log := log.FromContextOrDiscard(ctx).WithGroup("batch")
	log.Info("running batch", "size", len(prompts), "limit", r.limit())

	slots := lo.Map(prompts, func(p prompt.Prompt, i int) Slot {
		return Slot{Index: i, Prompt: p}
	})

	var group errgroup.Group
	group.SetLimit(r.limit())
	for i := range slots {
		slot := &slots[i]
		group.Go(func() error {
			slot.Image, slot.Err = r.Generator.Generate(ctx, slot.Prompt.Text)
			if slot.Err == nil && len(slot.Image) == 0 {
				slot.Err = &image.Failure{Kind: image.KindEmptyPayload}
			}
			if slot.Err != nil {
				slot.Image = nil
				log.Warn("slot failed", "index", slot.Index, "error", slot.Err)
			}
			return nil
		})
	}
	_ = group.Wait()

	failed := lo.CountBy(slots, func(s Slot) bool { return !s.OK() })
	log.Info("batch finished", "size", len(slots), "failed", failed)
	return slots
}

func (r *Runner) limit() int {
	return lo.Ternary(r.Limit > 0, r.Limit, DefaultLimit)
}

package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/dmorgan81/fusionbot/internal/batch"
	"github.com/dmorgan81/fusionbot/internal/history"
	"github.com/dmorgan81/fusionbot/internal/image"
	"github.com/dmorgan81/fusionbot/internal/log"
	"github.com/dmorgan81/fusionbot/internal/prompt"
	"github.com/dmorgan81/fusionbot/internal/store"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/samber/lo"
)

type Input struct {
	Pokemon   string `json:"pokemon"`
	Character string `json:"character"`
	Style     string `json:"style"`
	Count     int    `json:"count"`
}

func (i Input) toRequest() prompt.Request {
	return prompt.Request{
		Pokemon:   i.Pokemon,
		Character: i.Character,
		Style:     i.Style,
		Count:     i.Count,
	}
}

func toMetadata(req prompt.Request, p prompt.Prompt) map[string]string {
	return map[string]string{
		"pokemon":   req.Pokemon,
		"character": req.Character,
		"style":     req.Style,
		"prompt":    p.Text,
		"seed":      strconv.Itoa(p.Seed),
	}
}

// SlotOutput reports one image of a batch. Either Entry or Error is set.
type SlotOutput struct {
	Index  int        `json:"index"`
	Prompt string     `json:"prompt"`
	Seed   int        `json:"seed"`
	Entry  string     `json:"entry,omitempty"`
	Image  string     `json:"image,omitempty"`
	Error  string     `json:"error,omitempty"`
	Kind   image.Kind `json:"kind,omitempty"`
}

func (s SlotOutput) OK() bool {
	return s.Error == ""
}

type Output struct {
	Label string       `json:"label"`
	Slots []SlotOutput `json:"slots"`
}

type Handler struct {
	catalog     prompt.Catalog
	builder     *prompt.Builder
	runner      *batch.Runner
	uploader    store.Uploader
	invalidator store.Invalidator
	history     *history.Store
	now         func() time.Time
}

func NewHandler(i *do.Injector) (*Handler, error) {
	return &Handler{
		catalog:     do.MustInvoke[prompt.Catalog](i),
		builder:     do.MustInvoke[*prompt.Builder](i),
		runner:      do.MustInvoke[*batch.Runner](i),
		uploader:    do.MustInvoke[store.Uploader](i),
		invalidator: do.MustInvoke[store.Invalidator](i),
		history:     do.MustInvoke[*history.Store](i),
		now:         time.Now,
	}, nil
}

// Handle generates input.Count images. Every successful image is archived
// first and only then added to history; a slot whose archive fails is
// reported as failed. The returned error is non-nil only for invalid input.
func (h *Handler) Handle(ctx context.Context, input Input) (Output, error) {
	log := log.FromContextOrDiscard(ctx).WithGroup("Handler").With("input", input)
	log.Info("handling generation request")

	req := input.toRequest()
	if err := req.Validate(h.catalog); err != nil {
		return Output{}, err
	}

	prompts := h.builder.Batch(ctx, req)
	slots := h.runner.Run(ctx, prompts)

	date := h.now().UTC().Format("20060102")
	outputs := make([]SlotOutput, len(slots))
	var paths []string
	for i, slot := range slots {
		out := SlotOutput{Index: slot.Index, Prompt: slot.Prompt.Text, Seed: slot.Prompt.Seed}
		if !slot.OK() {
			outputs[i] = withError(out, slot.Err)
			continue
		}

		id := uuid.NewString()
		name := fmt.Sprintf("%s/%s.png", date, id)
		err := h.uploader.Upload(ctx, store.UploadParams{
			Name:        name,
			Data:        slot.Image,
			ContentType: "image/png",
			Metadata:    toMetadata(req, slot.Prompt),
		})
		if err != nil {
			log.Error("archiving image failed", "index", slot.Index, "error", err)
			outputs[i] = withError(out, err)
			continue
		}

		h.history.Add(history.Entry{
			ID:     id,
			Image:  slot.Image,
			Label:  req.Label(),
			Prompt: slot.Prompt.Text,
			Style:  req.Style,
		})
		out.Entry = id
		out.Image = name
		outputs[i] = out
		paths = append(paths, "/"+name)
	}

	if len(paths) > 0 {
		if err := h.invalidator.Invalidate(ctx, paths); err != nil {
			log.Warn("invalidation failed", "paths", paths, "error", err)
		}
	}

	log.Info("generation finished", "archived", len(paths), "failed", lo.CountBy(outputs, func(o SlotOutput) bool { return !o.OK() }))
	return Output{Label: req.Label(), Slots: outputs}, nil
}

// Clear empties the history. It does not wait for batches in flight.
func (h *Handler) Clear(ctx context.Context) {
	log.FromContextOrDiscard(ctx).WithGroup("Handler").Info("clearing history", "entries", h.history.Len())
	h.history.Clear()
}

func withError(out SlotOutput, err error) SlotOutput {
	out.Error = err.Error()
	out.Kind = image.KindOf(err)
	return out
}

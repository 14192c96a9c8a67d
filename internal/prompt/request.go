package prompt

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// MaxCount is the largest batch a single request may ask for.
const MaxCount = 4

// Catalog lists the selections offered to the user.
type Catalog struct {
	Pokemon    []string `json:"pokemon"`
	Styles     []string `json:"styles"`
	Variations []string `json:"variations"`
}

func DefaultCatalog() Catalog {
	return Catalog{
		Pokemon:    []string{"Pikachu", "Charizard", "Gengar", "Lucario", "Snorlax", "Mewtwo"},
		Styles:     []string{"Anime style", "3D Render", "Ukiyo-e", "Cyberpunk"},
		Variations: []string{"action pose", "close-up portrait", "dramatic lighting", "scenic background"},
	}
}

// Request is one generation action: a character pair, a style and how
// many images to make.
type Request struct {
	Pokemon   string `json:"pokemon"`
	Character string `json:"character"`
	Style     string `json:"style"`
	Count     int    `json:"count"`
}

func (r Request) Label() string {
	return fmt.Sprintf("%s x %s", r.Pokemon, strings.TrimSpace(r.Character))
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks r against the selections in c. Empty catalog lists
// accept any non-empty value.
func (r Request) Validate(c Catalog) error {
	if err := oneOf("pokemon", r.Pokemon, c.Pokemon); err != nil {
		return err
	}
	if strings.TrimSpace(r.Character) == "" {
		return &ValidationError{Field: "character", Reason: "must not be empty"}
	}
	if err := oneOf("style", r.Style, c.Styles); err != nil {
		return err
	}
	if r.Count < 1 || r.Count > MaxCount {
		return &ValidationError{Field: "count", Reason: fmt.Sprintf("must be between 1 and %d, got %d", MaxCount, r.Count)}
	}
	return nil
}

func oneOf(field, value string, allowed []string) error {
	if value == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	if len(allowed) > 0 && !lo.Contains(allowed, value) {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("%q is not one of %s", value, strings.Join(allowed, ", "))}
	}
	return nil
}

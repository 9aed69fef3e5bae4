package store

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"expensepie/internal/core"
)

// SeedFile is the name of the category seed file inside the data directory.
const SeedFile = "categories.yaml"

// SeedCategory is the on-disk form of a category:
//
//	- name: Shopping
//	  color: pink
//	  opacity: 0.3
//	  emoji: 🛍️
type SeedCategory struct {
	ID      string   `yaml:"id,omitempty"`
	Name    string   `yaml:"name"`
	Color   string   `yaml:"color"`
	Opacity *float64 `yaml:"opacity,omitempty"`
	Emoji   string   `yaml:"emoji,omitempty"`
}

// DefaultSeeds are used when no seed file exists.
func DefaultSeeds() []core.Category {
	named := func(name string) core.Color {
		c, _ := core.NamedColor(name)
		return c
	}
	return []core.Category{
		{ID: "food", Name: "Food", Color: named("yellow"), Emoji: "🍔"},
		{ID: "transport", Name: "Transport", Color: named("blue"), Emoji: "🚌"},
		{ID: "entertainment", Name: "Entertainment", Color: named("red"), Emoji: "🎬"},
		{ID: "utilities", Name: "Utilities", Color: named("green"), Emoji: "💡"},
		{ID: "shopping", Name: "Shopping", Color: named("pink").WithOpacity(0.3), Emoji: "🛍️"},
		{ID: "health", Name: "Health", Color: named("brown"), Emoji: "💊"},
	}
}

// LoadSeeds reads categories from path. A missing file returns os.ErrNotExist.
func LoadSeeds(path string) ([]core.Category, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseSeeds(data)
}

// ParseSeeds decodes a YAML list of SeedCategory, validating every entry.
// SeedsFromDir loads dir/categories.yaml, falling back to the defaults when
// the file is missing or invalid.
func SeedsFromDir(dir string) []core.Category {
	if dir == "" {
		return DefaultSeeds()
	}
	path := filepath.Join(dir, SeedFile)
	cats, err := LoadSeeds(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return DefaultSeeds()
	case err != nil:
		slog.Warn("Invalid seed file, using defaults", "path", path, "error", err)
		return DefaultSeeds()
	}
	return cats
}

func ParseSeeds(data []byte) ([]core.Category, error) {
	var raw []SeedCategory
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode seeds: %w", err)
	}

	seen := map[string]struct{}{}
	out := make([]core.Category, 0, len(raw))
	var errs []error
	for i, s := range raw {
		c, err := s.toCategory()
		if err != nil {
			errs = append(errs, fmt.Errorf("seed %d (%q): %w", i, s.Name, err))
			continue
		}
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func (s SeedCategory) toCategory() (core.Category, error) {
	if strings.TrimSpace(s.Name) == "" {
		return core.Category{}, core.ErrEmptyName
	}
	color, err := core.ParseColor(s.Color)
	if err != nil {
		return core.Category{}, err
	}
	if s.Opacity != nil {
		color = color.WithOpacity(*s.Opacity)
	}
	id := strings.TrimSpace(s.ID)
	if id == "" {
		id = Slug(s.Name)
	}
	c := core.Category{ID: id, Name: strings.TrimSpace(s.Name), Color: color, Emoji: strings.TrimSpace(s.Emoji)}
	return c, c.Validate()
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug derives a stable ID from a category name.
func Slug(name string) string {
	return strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "-"), "-")
}

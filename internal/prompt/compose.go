// Package prompt turns categorical room preferences into a text-to-image prompt.
package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"room-designer/internal/domain"
)

const addendumLabel = "Additional details: "

//go:embed vocabulary.yaml
var defaultVocabulary []byte

// Vocabulary maps each preference category value to a descriptive clause.
type Vocabulary struct {
	Style         map[string]string `yaml:"style"`
	Mood          map[string]string `yaml:"mood"`
	Functionality map[string]string `yaml:"functionality"`
	Palette       map[string]string `yaml:"palette"`
	Clutter       map[string]string `yaml:"clutter"`
}

// Composer builds prompts from a fixed vocabulary. It holds no mutable state
// and is safe for concurrent use.
type Composer struct {
	vocab Vocabulary
}

// NewComposer returns a Composer backed by the embedded vocabulary.
func NewComposer() (*Composer, error) {
	return ParseVocabulary(defaultVocabulary)
}

// LoadComposer reads a YAML vocabulary from path. An empty path falls back to
// the embedded vocabulary.
func LoadComposer(path string) (*Composer, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return NewComposer()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prompt: read vocabulary %q: %w", path, err)
	}
	return ParseVocabulary(raw)
}

// ParseVocabulary decodes a YAML vocabulary document.
func ParseVocabulary(raw []byte) (*Composer, error) {
	var v Vocabulary
	if err := yaml.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("prompt: decode vocabulary: %w", err)
	}
	if len(v.Style)+len(v.Mood)+len(v.Functionality)+len(v.Palette)+len(v.Clutter) == 0 {
		return nil, errors.New("prompt: vocabulary is empty")
	}
	return &Composer{vocab: v}, nil
}

// Compose maps preferences to a prompt. Unrecognised values are skipped so new
// frontend options never break generation.
func (c *Composer) Compose(p domain.Preferences) string {
	lookups := []struct {
		table map[string]string
		value string
	}{
		{c.vocab.Style, p.Style},
		{c.vocab.Mood, p.Mood},
		{c.vocab.Functionality, p.Functionality},
		{c.vocab.Palette, p.Palette},
		{c.vocab.Clutter, p.Clutter},
	}

	parts := make([]string, 0, len(lookups)+1)
	for _, l := range lookups {
		if clause, ok := l.table[l.value]; ok {
			parts = append(parts, clause)
		}
	}
	if p.Addendum != "" {
		parts = append(parts, addendumLabel+p.Addendum)
	}
	return strings.Join(parts, " ")
}

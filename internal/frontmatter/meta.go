package frontmatter

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// Meta is the typed view of a document's frontmatter. Title and Description
// are required for head-tag generation; everything else rides along in Extra.
type Meta struct {
	Title       string         `yaml:"title"`
	Description string         `yaml:"description"`
	Extra       map[string]any `yaml:",inline"`
}

// DecodeMeta decodes raw YAML frontmatter (without delimiters) into Meta.
func DecodeMeta(raw []byte) (Meta, error) {
	var m Meta
	if len(raw) == 0 {
		return m, nil
	}
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return Meta{}, err
	}
	return m, nil
}

// MissingFields returns the required frontmatter fields that are empty or
// whitespace-only, in declaration order.
func (m Meta) MissingFields() []string {
	var missing []string
	if strings.TrimSpace(m.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(m.Description) == "" {
		missing = append(missing, "description")
	}
	return missing
}

package blocklist

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Registry maps threat categories to the feeds that publish them
type Registry struct {
	Categories map[string][]string `yaml:"categories" json:"categories"`
	Feeds      []FeedSource        `yaml:"feeds" json:"feeds"`
}

// DefaultRegistry returns the built-in registry
func DefaultRegistry() *Registry {
	return &Registry{
		Categories: DefaultCategories(),
		Feeds:      DefaultFeeds(),
	}
}

// LoadRegistry reads and validates a YAML registry file
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry decodes and validates a YAML registry document
func ParseRegistry(data []byte) (*Registry, error) {
	var reg Registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Validate checks feed definitions and category membership
func (r *Registry) Validate() error {
	if len(r.Feeds) == 0 {
		return errors.New("registry declares no feeds")
	}

	seen := make(map[string]bool, len(r.Feeds))
	for _, f := range r.Feeds {
		if f.Name == "" {
			return errors.New("feed without name")
		}
		if seen[f.Name] {
			return fmt.Errorf("duplicate feed %q", f.Name)
		}
		seen[f.Name] = true

		if f.URL == "" {
			return fmt.Errorf("feed %q has no url", f.Name)
		}
		if !f.Format.Valid() {
			return fmt.Errorf("feed %q has unknown format %q", f.Name, f.Format)
		}
		if f.Confidence < 0 || f.Confidence > 100 {
			return fmt.Errorf("feed %q confidence %d out of range", f.Name, f.Confidence)
		}
	}

	for category, members := range r.Categories {
		for _, name := range members {
			if !seen[name] {
				return fmt.Errorf("category %q references unknown feed %q", category, name)
			}
		}
	}

	return nil
}

// Feed returns a feed definition by name
func (r *Registry) Feed(name string) (FeedSource, bool) {
	for _, f := range r.Feeds {
		if f.Name == name {
			return f, true
		}
	}
	return FeedSource{}, false
}

// EnabledFeeds returns only enabled feeds
func (r *Registry) EnabledFeeds() []FeedSource {
	var enabled []FeedSource
	for _, f := range r.Feeds {
		if f.Enabled {
			enabled = append(enabled, f)
		}
	}
	return enabled
}

// CategoriesOf returns the sorted categories a feed belongs to
func (r *Registry) CategoriesOf(feed string) []string {
	categories := []string{}
	for category, members := range r.Categories {
		if slices.Contains(members, feed) {
			categories = append(categories, category)
		}
	}
	slices.Sort(categories)
	return categories
}

// CategoryNames returns the sorted category names
func (r *Registry) CategoryNames() []string {
	names := make([]string, 0, len(r.Categories))
	for name := range r.Categories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

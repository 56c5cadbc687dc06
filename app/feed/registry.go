package feed

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Registry is the ordered, read-only set of configured feeds. Order follows
// the configuration file: sources in mapping order, feeds in list order.
type Registry struct {
	sources []Source
}

type sourceDoc struct {
	Name           string      `yaml:"name"`
	Active         *bool       `yaml:"active"`
	ExtractContent bool        `yaml:"extract_content"`
	Filters        []Filter    `yaml:"filters"`
	Feeds          []yaml.Node `yaml:"feeds"`
}

type feedDoc struct {
	URL            string `yaml:"url"`
	Category       string `yaml:"category"`
	ExtractContent *bool  `yaml:"extract_content"`
}

func NewRegistry(sources []Source) *Registry {
	return &Registry{sources: slices.Clone(sources)}
}

// LoadRegistry reads a registry file. A missing file yields an empty registry.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Feed configuration not found, no sources loaded", "path", path)
		return NewRegistry(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read feed configuration: %w", err)
	}

	return ParseRegistry(data)
}

func ParseRegistry(data []byte) (*Registry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	registry := NewRegistry(nil)

	sourcesNode := lookupKey(&doc, "sources")
	if sourcesNode == nil {
		return registry, nil
	}
	if sourcesNode.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("sources must be a mapping, got line %d", sourcesNode.Line)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(sourcesNode.Content); i += 2 {
		key := sourcesNode.Content[i].Value
		valueNode := sourcesNode.Content[i+1]

		var sd sourceDoc
		if err := valueNode.Decode(&sd); err != nil {
			slog.Warn("Skipping malformed source", "source", key, "line", valueNode.Line, "error", err)
			continue
		}

		name := cmp.Or(sd.Name, key)
		active := sd.Active == nil || *sd.Active

		for j := range sd.Feeds {
			feedNode := &sd.Feeds[j]

			var fd feedDoc
			if err := feedNode.Decode(&fd); err != nil {
				slog.Warn("Skipping malformed feed entry", "source", name, "line", feedNode.Line, "error", err)
				continue
			}
			if fd.URL == "" {
				slog.Warn("Skipping feed entry without url", "source", name, "line", feedNode.Line)
				continue
			}
			if seen[fd.URL] {
				slog.Warn("Skipping duplicate feed url", "source", name, "url", fd.URL)
				continue
			}
			seen[fd.URL] = true

			extract := sd.ExtractContent
			if fd.ExtractContent != nil {
				extract = *fd.ExtractContent
			}

			registry.sources = append(registry.sources, Source{
				Key:            key,
				Name:           name,
				URL:            fd.URL,
				Category:       cmp.Or(fd.Category, DefaultCategory),
				Active:         active,
				ExtractContent: extract,
				Filters:        sd.Filters,
			})
		}
	}

	return registry, nil
}

func (r *Registry) All() []Source {
	return slices.Clone(r.sources)
}

func (r *Registry) Active() []Source {
	active := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		if s.Active {
			active = append(active, s)
		}
	}
	return active
}

// BySource returns the active feeds of one source, matched by display name or key.
func (r *Registry) BySource(name string) []Source {
	var matched []Source
	for _, s := range r.Active() {
		if s.Name == name || s.Key == name {
			matched = append(matched, s)
		}
	}
	return matched
}

func (r *Registry) SourceNames() []string {
	var names []string
	for _, s := range r.sources {
		if !slices.Contains(names, s.Name) {
			names = append(names, s.Name)
		}
	}
	return names
}

// Without returns a copy with the given feed URLs marked inactive.
func (r *Registry) Without(urls map[string]bool) *Registry {
	sources := r.All()
	for i := range sources {
		if urls[sources[i].URL] {
			sources[i].Active = false
		}
	}
	return &Registry{sources: sources}
}

func (r *Registry) Len() int {
	return len(r.sources)
}

func lookupKey(node *yaml.Node, key string) *yaml.Node {
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

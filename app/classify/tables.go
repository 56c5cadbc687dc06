package classify

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed tables.yml
var defaultTablesYAML []byte

// KeywordGroup is one topic or geography. Parent only applies to topics;
// CountryCode, Region and Continent only to geographies.
type KeywordGroup struct {
	Name        string   `yaml:"name"`
	Parent      string   `yaml:"parent"`
	CountryCode string   `yaml:"country_code"`
	Region      string   `yaml:"region"`
	Continent   string   `yaml:"continent"`
	Keywords    []string `yaml:"keywords"`
}

// Tables is the keyword data the classifier runs on. It is read once and not
// modified afterwards.
type Tables struct {
	Topics           []KeywordGroup `yaml:"topics"`
	Geographies      []KeywordGroup `yaml:"geographies"`
	Indicators       []string       `yaml:"indicators"`
	Sectors          []string       `yaml:"sectors"`
	MarketConditions []string       `yaml:"market_conditions"`
	Urgency          []string       `yaml:"urgency"`
}

func DefaultTables() (*Tables, error) {
	return ParseTables(defaultTablesYAML)
}

func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read classifier tables: %w", err)
	}
	return ParseTables(data)
}

func ParseTables(data []byte) (*Tables, error) {
	var tables Tables
	if err := yaml.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse classifier tables: %w", err)
	}

	if err := tables.normalize(); err != nil {
		return nil, err
	}

	return &tables, nil
}

// normalize case-folds every keyword the same way Classify folds the text and
// rejects groups that would divide by zero or point at an unknown parent.
func (t *Tables) normalize() error {
	for _, groups := range [][]KeywordGroup{t.Topics, t.Geographies} {
		for i := range groups {
			if groups[i].Name == "" {
				return fmt.Errorf("keyword group %d has no name", i)
			}
			if len(groups[i].Keywords) == 0 {
				return fmt.Errorf("keyword group %q has no keywords", groups[i].Name)
			}
			foldAll(groups[i].Keywords)
		}
	}

	topics := make(map[string]bool, len(t.Topics))
	for _, topic := range t.Topics {
		topics[topic.Name] = true
	}
	for _, topic := range t.Topics {
		if topic.Parent == "" {
			continue
		}
		if topic.Parent == topic.Name || !topics[topic.Parent] {
			return fmt.Errorf("topic %q has unknown parent %q", topic.Name, topic.Parent)
		}
	}

	foldAll(t.Indicators)
	foldAll(t.Sectors)
	foldAll(t.MarketConditions)
	foldAll(t.Urgency)

	return nil
}

func foldAll(keywords []string) {
	fold := cases.Fold()
	for i, k := range keywords {
		keywords[i] = fold.String(strings.TrimSpace(k))
	}
}

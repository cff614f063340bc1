package greeting

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PoolsFile is the on-disk format for extra categories and pool entries.
//
//	categories:
//	  - name: databases
//	    keywords: [sql, database, "query plan"]
//	greetings:
//	  databases: ["Let's talk data!"]
//	transitions:
//	  databases: ["Building on that query,"]
type PoolsFile struct {
	Categories  []CategorySpec      `yaml:"categories"`
	Greetings   map[string][]string `yaml:"greetings"`
	Transitions map[string][]string `yaml:"transitions"`
}

// CategorySpec declares one keyword category.
type CategorySpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// LoadPools reads a YAML pools file.
func LoadPools(path string) (*PoolsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading greeting pools: %w", err)
	}
	var pf PoolsFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parsing greeting pools %s: %w", path, err)
	}
	for i, c := range pf.Categories {
		if c.Name == "" {
			return nil, fmt.Errorf("greeting pools %s: category %d has no name", path, i)
		}
		if len(c.Keywords) == 0 {
			return nil, fmt.Errorf("greeting pools %s: category %q has no keywords", path, c.Name)
		}
	}
	return &pf, nil
}

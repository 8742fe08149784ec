// Package watchlist loads the declarative configuration describing what
// to search for and how to label the results.
package watchlist

import (
	"fmt"
	"os"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"cvewatch/advisory"
)

type Watchlist struct {
	Queries  []string
	TagRules []advisory.TagRule
}

// rawWatchlist keeps tag_rules as a MapSlice so the rule order matches
// the file order.
type rawWatchlist struct {
	Queries  []string      `yaml:"queries"`
	TagRules yaml.MapSlice `yaml:"tag_rules"`
}

// Load reads the watchlist file. Missing keys default to empty; a file
// that does not parse as YAML is an error.
func Load(path string) (Watchlist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Watchlist{}, xerrors.Errorf("failed to read watchlist %s: %w", path, err)
	}

	var raw rawWatchlist
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Watchlist{}, xerrors.Errorf("failed to parse watchlist %s: %w", path, err)
	}

	wl := Watchlist{
		Queries:  raw.Queries,
		TagRules: make([]advisory.TagRule, 0, len(raw.TagRules)),
	}
	for _, item := range raw.TagRules {
		rule := advisory.TagRule{Name: fmt.Sprint(item.Key)}
		if keywords, ok := item.Value.([]interface{}); ok {
			for _, keyword := range keywords {
				rule.Keywords = append(rule.Keywords, fmt.Sprint(keyword))
			}
		}
		wl.TagRules = append(wl.TagRules, rule)
	}
	return wl, nil
}

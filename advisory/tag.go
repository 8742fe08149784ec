package advisory

import "strings"

// Tag returns the names of all rules with at least one keyword appearing
// in the summary or references. Matching is a case-insensitive substring
// check; the result keeps the rule order.
func Tag(summary string, references []string, rules []TagRule) []string {
	corpus := strings.ToLower(strings.Join(append([]string{summary}, references...), " "))

	var tags []string
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if strings.Contains(corpus, strings.ToLower(keyword)) {
				tags = append(tags, rule.Name)
				break
			}
		}
	}
	return tags
}

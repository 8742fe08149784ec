package advisory

// Cvss holds the score extracted from the highest-priority CVSS metric
// group present on an advisory. Score is nil when the upstream record
// carries no usable metric.
type Cvss struct {
	Version  string
	Score    *float64
	Severity string
}

// Item is the normalized form of one advisory. Items are keyed by ID
// when results from multiple queries are merged within a run.
type Item struct {
	ID         string
	Published  string
	Cvss       Cvss
	Summary    string
	Tags       []string
	References []string
	DetailURL  string
}

// TagRule maps one tag name to the keywords that trigger it. Rules keep
// the watchlist file order so tag output is stable across runs.
type TagRule struct {
	Name     string
	Keywords []string
}

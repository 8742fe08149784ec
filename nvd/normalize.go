package nvd

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"cvewatch/advisory"
)

const (
	detailURLFormat = "https://nvd.nist.gov/vuln/detail/%s"
	maxReferences   = 3
)

// Normalize converts one raw CVE record into an advisory item. Missing
// or malformed fields degrade to defaults, never to errors.
func Normalize(cve Cve, rules []advisory.TagRule) advisory.Item {
	id := cve.ID
	if id == "" {
		id = "UNKNOWN"
	}

	published := cve.Published
	if published == "" {
		published = cve.LastModified
	}

	summary := extractSummary(cve.Descriptions)
	references := extractReferences(cve.References)

	return advisory.Item{
		ID:         id,
		Published:  published,
		Cvss:       extractCvss(cve.Metrics),
		Summary:    summary,
		Tags:       advisory.Tag(summary, references, rules),
		References: references,
		DetailURL:  fmt.Sprintf(detailURLFormat, id),
	}
}

// extractSummary prefers the first non-empty English description and
// falls back to the first description of any language.
func extractSummary(descriptions []Description) string {
	for _, d := range descriptions {
		if d.Lang == "en" && d.Value != "" {
			return strings.TrimSpace(d.Value)
		}
	}
	if len(descriptions) > 0 {
		return strings.TrimSpace(descriptions[0].Value)
	}
	return ""
}

func extractReferences(refs []Reference) []string {
	urls := lo.FilterMap(refs, func(ref Reference, _ int) (string, bool) {
		return ref.URL, ref.URL != ""
	})
	if len(urls) > maxReferences {
		urls = urls[:maxReferences]
	}
	return urls
}

// extractCvss takes the first entry of the highest-priority metric group:
// v3.1, then v3.0, then v2.
func extractCvss(metrics Metrics) advisory.Cvss {
	for _, entries := range [][]CvssMetric{metrics.CvssMetricV31, metrics.CvssMetricV30, metrics.CvssMetricV2} {
		if len(entries) == 0 {
			continue
		}
		data := entries[0].CvssData
		return advisory.Cvss{
			Version:  data.Version,
			Score:    data.BaseScore,
			Severity: data.BaseSeverity,
		}
	}
	return advisory.Cvss{Version: "N/A"}
}

// Package nvd fetches recently published CVEs from the NVD CVE API 2.0
// and normalizes them into advisory items.
package nvd

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/parnurzeal/gorequest"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"cvewatch/advisory"
	"cvewatch/utils"
)

const (
	apiURL        = "https://services.nvd.nist.gov/rest/json/cves/2.0"
	apiTimeout    = 20 * time.Second
	retry         = 3 // total attempts per request
	userAgent     = "cvewatch/0.1"
	nvdTimeFormat = "2006-01-02T15:04:05.000Z"
)

// severityBands are queried one request each; the NVD API accepts only a
// single cvssV3Severity value per request.
var severityBands = []string{"HIGH", "CRITICAL"}

var transientStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type options struct {
	baseURL string
	apiKey  string
	retry   int
	timeout time.Duration
	now     func() time.Time
	sleep   func(time.Duration)
}

type option func(*options)

// WithBaseURL overrides the API endpoint. An empty URL keeps the default.
func WithBaseURL(baseURL string) option {
	return func(opts *options) {
		if baseURL != "" {
			opts.baseURL = baseURL
		}
	}
}

func WithAPIKey(apiKey string) option {
	return func(opts *options) { opts.apiKey = apiKey }
}

func WithRetry(retry int) option {
	return func(opts *options) { opts.retry = retry }
}

func WithTimeout(timeout time.Duration) option {
	return func(opts *options) { opts.timeout = timeout }
}

func WithNow(now func() time.Time) option {
	return func(opts *options) { opts.now = now }
}

func WithSleep(sleep func(time.Duration)) option {
	return func(opts *options) { opts.sleep = sleep }
}

type Config struct {
	*options
}

func NewConfig(opts ...option) Config {
	o := &options{
		baseURL: apiURL,
		retry:   retry,
		timeout: apiTimeout,
		now:     time.Now,
		sleep:   time.Sleep,
	}

	for _, opt := range opts {
		opt(o)
	}
	return Config{
		options: o,
	}
}

// Fetch issues one request per (query, severity band) pair over the
// lookback window and returns the merged results sorted by published
// date, newest first. A later duplicate of the same CVE ID overwrites an
// earlier one.
func (c Config) Fetch(queries []string, hoursBack int, rules []advisory.TagRule) ([]advisory.Item, error) {
	end := c.now().UTC()
	start := end.Add(-time.Duration(hoursBack) * time.Hour)

	merged := map[string]advisory.Item{}
	for _, query := range queries {
		for _, severity := range severityBands {
			entry, err := c.get(query, severity, start, end)
			if err != nil {
				return nil, xerrors.Errorf("failed to fetch CVEs for %q (%s): %w", query, severity, err)
			}
			for _, vuln := range entry.Vulnerabilities {
				item := Normalize(vuln.Cve, rules)
				merged[item.ID] = item
			}
		}
	}

	items := lo.Values(merged)
	slices.SortStableFunc(items, func(a, b advisory.Item) int {
		if cmp := strings.Compare(b.Published, a.Published); cmp != 0 {
			return cmp
		}
		return strings.Compare(a.ID, b.ID)
	})
	return items, nil
}

// get requests one (query, severity) page with retry. Connection errors
// and 429/5xx responses are transient and back off exponentially; any
// other non-200 status fails immediately.
func (c Config) get(query, severity string, start, end time.Time) (Entry, error) {
	var entry Entry
	err := utils.Retry(c.retry, c.sleep, func() error {
		req := gorequest.New().Get(c.baseURL).
			Timeout(c.timeout).
			Set("User-Agent", userAgent).
			Param("pubStartDate", start.Format(nvdTimeFormat)).
			Param("pubEndDate", end.Format(nvdTimeFormat)).
			Param("keywordSearch", query).
			Param("cvssV3Severity", severity)
		if c.apiKey != "" {
			req.Set("apiKey", c.apiKey)
		}

		resp, body, errs := req.EndBytes()
		if len(errs) > 0 {
			return utils.Transient(xerrors.Errorf("request error: %w", errs[0]))
		}
		if _, ok := transientStatuses[resp.StatusCode]; ok {
			return utils.Transient(xerrors.Errorf("HTTP status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return xerrors.Errorf("HTTP status %d", resp.StatusCode)
		}

		if err := json.Unmarshal(body, &entry); err != nil {
			return xerrors.Errorf("failed to unmarshal response: %w", err)
		}
		return nil
	})
	if err != nil {
		return Entry{}, err
	}
	return entry, nil
}

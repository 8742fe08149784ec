// Package slack formats advisories as human-readable messages and
// delivers them to a Slack incoming webhook.
package slack

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/parnurzeal/gorequest"
	"golang.org/x/xerrors"

	"cvewatch/advisory"
)

const (
	webhookTimeout  = 15 * time.Second
	maxSummaryRunes = 300
	publishedFormat = "2006-01-02 15:04 UTC"
)

type payload struct {
	Text string `json:"text"`
}

type options struct {
	timeout time.Duration
}

type option func(*options)

func WithTimeout(timeout time.Duration) option {
	return func(opts *options) { opts.timeout = timeout }
}

type Notifier struct {
	webhookURL string
	opts       *options
}

func NewNotifier(webhookURL string, opts ...option) Notifier {
	o := &options{
		timeout: webhookTimeout,
	}

	for _, opt := range opts {
		opt(o)
	}
	return Notifier{
		webhookURL: webhookURL,
		opts:       o,
	}
}

// Post delivers one formatted message to the webhook. A non-2xx response
// is an error.
func (n Notifier) Post(text string) error {
	resp, body, errs := gorequest.New().Post(n.webhookURL).
		Timeout(n.opts.timeout).
		Send(payload{Text: text}).
		End()
	if len(errs) > 0 {
		return xerrors.Errorf("failed to post to Slack: %w", errs[0])
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return xerrors.Errorf("Slack webhook returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

// Format renders one advisory as a multi-line message. The summary is
// capped at 300 characters; the references line is omitted when empty.
func Format(item advisory.Item) string {
	lines := []string{
		fmt.Sprintf("*%s*", item.ID),
		fmt.Sprintf("Published: %s", formatPublished(item.Published)),
		fmt.Sprintf("CVSS: %s", formatCvss(item.Cvss)),
		fmt.Sprintf("Tags: %s", formatTags(item.Tags)),
		fmt.Sprintf("Summary: %s", truncate(item.Summary, maxSummaryRunes)),
		fmt.Sprintf("NVD: %s", item.DetailURL),
	}
	if len(item.References) > 0 {
		lines = append(lines, "References: "+strings.Join(item.References, ", "))
	}
	return strings.Join(lines, "\n")
}

// formatPublished renders the timestamp in a fixed layout when it parses
// and falls back to the raw upstream string otherwise.
func formatPublished(published string) string {
	if published == "" {
		return ""
	}
	t, err := dateparse.ParseAny(published)
	if err != nil {
		return published
	}
	return t.UTC().Format(publishedFormat)
}

func formatCvss(cvss advisory.Cvss) string {
	if cvss.Score == nil {
		return "N/A"
	}
	return fmt.Sprintf("%g (%s)", *cvss.Score, cvss.Severity)
}

func formatTags(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	return strings.Join(tags, ", ")
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

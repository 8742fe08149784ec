package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/cheggaaa/pb"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/xerrors"

	"cvewatch/advisory"
	"cvewatch/nvd"
	"cvewatch/posted"
	"cvewatch/slack"
	"cvewatch/utils"
	"cvewatch/watchlist"
)

const (
	defaultWatchlistPath = "watchlist.yml"
	defaultPostedPath    = "posted/posted.json"
	defaultHoursBack     = "24"
)

var dryRun = flag.Bool("dry-run", false, "print new advisories instead of posting them")

type config struct {
	webhookURL    string
	watchlistPath string
	postedPath    string
	apiKey        string
	nvdURL        string
	hoursBack     int
	dryRun        bool
}

func configFromEnv() (config, error) {
	c := config{
		webhookURL:    os.Getenv("SLACK_WEBHOOK_URL"),
		watchlistPath: utils.LookupEnv("WATCHLIST_PATH", defaultWatchlistPath),
		postedPath:    utils.LookupEnv("POSTED_PATH", defaultPostedPath),
		apiKey:        os.Getenv("NVD_API_KEY"),
		nvdURL:        os.Getenv("NVD_API_URL"),
	}

	hoursBack, err := strconv.Atoi(utils.LookupEnv("HOURS_BACK", defaultHoursBack))
	if err != nil {
		return config{}, xerrors.Errorf("invalid HOURS_BACK: %w", err)
	}
	c.hoursBack = hoursBack
	return c, nil
}

func main() {
	flag.Parse()

	c, err := configFromEnv()
	if err != nil {
		log.Fatal(err)
	}
	c.dryRun = *dryRun

	if err := run(c); err != nil {
		log.Fatal(err)
	}
}

func run(c config) error {
	if c.webhookURL == "" && !c.dryRun {
		return xerrors.New("SLACK_WEBHOOK_URL is required")
	}

	wl, err := watchlist.Load(c.watchlistPath)
	if err != nil {
		return xerrors.Errorf("failed to load watchlist: %w", err)
	}
	if len(wl.Queries) == 0 {
		return xerrors.Errorf("%s has no queries", c.watchlistPath)
	}

	fetcher := nvd.NewConfig(nvd.WithBaseURL(c.nvdURL), nvd.WithAPIKey(c.apiKey))
	items, err := fetcher.Fetch(wl.Queries, c.hoursBack, wl.TagRules)
	if err != nil {
		return xerrors.Errorf("failed to fetch CVEs: %w", err)
	}

	store := posted.NewStore(afero.NewOsFs())
	postedIDs := store.Load(c.postedPath)

	toPost := lo.Filter(items, func(item advisory.Item, _ int) bool {
		_, ok := postedIDs[item.ID]
		return !ok
	})
	if len(toPost) == 0 {
		log.Print("No new CVEs to post.")
		return nil
	}

	if c.dryRun {
		for _, item := range toPost {
			fmt.Println(slack.Format(item))
			fmt.Println()
		}
		log.Printf("Dry run: %d new CVEs, nothing posted.\n", len(toPost))
		return nil
	}

	notifier := slack.NewNotifier(c.webhookURL)
	postedNow := 0
	bar := pb.StartNew(len(toPost))
	for _, item := range toPost {
		if err := notifier.Post(slack.Format(item)); err != nil {
			// Unposted items stay out of the store and are retried on the
			// next scheduled run.
			log.Printf("Slack post failed for %s: %v\n", item.ID, err)
			break
		}
		postedIDs[item.ID] = struct{}{}
		postedNow++
		bar.Increment()
	}
	bar.Finish()

	// Save even after a partial failure so delivered items are never
	// re-sent.
	if err := store.Save(c.postedPath, postedIDs); err != nil {
		return err
	}

	log.Printf("Posted %d CVEs.\n", postedNow)
	return nil
}

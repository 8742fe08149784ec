// Package posted persists the set of already-announced CVE IDs between
// runs. The set only grows: each run saves the union of what was loaded
// and what it delivered.
package posted

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"golang.org/x/exp/slices"
	"golang.org/x/xerrors"

	"cvewatch/utils"
)

const timeFormat = "2006-01-02T15:04:05.000Z"

// Record is the on-disk shape of the store.
type Record struct {
	PostedAt string   `json:"posted_at"`
	CveIDs   []string `json:"cve_ids"`
}

type Store struct {
	fs  utils.Fs
	now func() time.Time
}

type option func(*Store)

func WithNow(now func() time.Time) option {
	return func(s *Store) { s.now = now }
}

func NewStore(appFs afero.Fs, opts ...option) Store {
	s := Store{
		fs:  utils.NewFs(appFs),
		now: time.Now,
	}

	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Load returns the IDs recorded by earlier runs. A missing or unparsable
// file means no prior state, not an error.
func (s Store) Load(path string) map[string]struct{} {
	ids := map[string]struct{}{}

	data, err := afero.ReadFile(s.fs.AppFs, path)
	if err != nil {
		return ids
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		return ids
	}

	for _, id := range record.CveIDs {
		ids[id] = struct{}{}
	}
	return ids
}

// Save overwrites the store with the given IDs, sorted ascending, and a
// fresh timestamp. Parent directories are created as needed.
func (s Store) Save(path string, ids map[string]struct{}) error {
	cveIDs := lo.Keys(ids)
	slices.Sort(cveIDs)

	record := Record{
		PostedAt: s.now().UTC().Format(timeFormat),
		CveIDs:   cveIDs,
	}
	if err := s.fs.WriteJSON(path, record); err != nil {
		return xerrors.Errorf("failed to write posted store: %w", err)
	}
	return nil
}

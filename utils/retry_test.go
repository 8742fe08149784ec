package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"cvewatch/utils"
)

func TestRetry(t *testing.T) {
	transient := utils.Transient(xerrors.New("upstream unavailable"))
	permanent := xerrors.New("bad request")

	tests := []struct {
		name       string
		attempts   int
		errs       []error // error returned by each call, nil means success
		wantErr    string
		wantCalls  int
		wantSleeps []time.Duration
	}{
		{
			name:      "success on first attempt",
			attempts:  3,
			errs:      []error{nil},
			wantCalls: 1,
		},
		{
			name:       "transient errors then success",
			attempts:   3,
			errs:       []error{transient, transient, nil},
			wantCalls:  3,
			wantSleeps: []time.Duration{2 * time.Second, 4 * time.Second},
		},
		{
			name:      "non-transient error fails immediately",
			attempts:  3,
			errs:      []error{permanent},
			wantErr:   "bad request",
			wantCalls: 1,
		},
		{
			name:       "attempts exhausted",
			attempts:   3,
			errs:       []error{transient, transient, transient},
			wantErr:    "upstream unavailable",
			wantCalls:  3,
			wantSleeps: []time.Duration{2 * time.Second, 4 * time.Second},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			var sleeps []time.Duration

			err := utils.Retry(tt.attempts, func(d time.Duration) { sleeps = append(sleeps, d) }, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, calls)
			assert.Equal(t, tt.wantSleeps, sleeps)
		})
	}
}

func TestIsTransient(t *testing.T) {
	err := utils.Transient(xerrors.New("timeout"))
	assert.True(t, utils.IsTransient(err))

	wrapped := xerrors.Errorf("fetch failed: %w", err)
	assert.True(t, utils.IsTransient(wrapped))

	assert.False(t, utils.IsTransient(xerrors.New("timeout")))
}

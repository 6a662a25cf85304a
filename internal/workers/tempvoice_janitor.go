package workers

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yoockh/whalechat/internal/metrics"
)

// Purger drops expired in-process state, e.g. the memory cache.
type Purger interface {
	Purge() int
}

// TempVoiceJanitor deletes speech temp files once they are older than
// Retention. Only files named temp_* directly inside Dir are touched. Purgers
// run on the same tick.
type TempVoiceJanitor struct {
	Dir       string
	Retention time.Duration
	Interval  time.Duration
	Purgers   []Purger

	Metrics *metrics.Metrics
	Logger  *logrus.Logger

	now func() time.Time
}

func (j *TempVoiceJanitor) Start(ctx context.Context) error {
	if j.Dir == "" {
		return errors.New("TempVoiceJanitor missing dependency: Dir must be set")
	}
	if j.Retention <= 0 {
		j.Retention = 24 * time.Hour
	}
	if j.Interval <= 0 {
		j.Interval = time.Hour
	}
	if j.Logger == nil {
		j.Logger = logrus.New()
	}

	go j.run(ctx)
	return nil
}

func (j *TempVoiceJanitor) run(ctx context.Context) {
	t := time.NewTicker(j.Interval)
	defer t.Stop()

	for {
		if n, err := j.Sweep(); err != nil {
			j.Logger.WithError(err).WithField("dir", j.Dir).Warn("tempvoice sweep failed")
		} else if n > 0 {
			j.Logger.WithFields(logrus.Fields{"dir": j.Dir, "removed": n}).Info("tempvoice sweep")
		}
		for _, p := range j.Purgers {
			if n := p.Purge(); n > 0 {
				j.Logger.WithField("purged", n).Debug("expired cache entries purged")
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// Sweep removes expired files once and reports how many were deleted.
func (j *TempVoiceJanitor) Sweep() (int, error) {
	now := time.Now
	if j.now != nil {
		now = j.now
	}
	cutoff := now().Add(-j.Retention)

	entries, err := os.ReadDir(j.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	removed := 0
	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "temp_") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(j.Dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	j.Metrics.RecordTempFilesRemoved(removed)
	return removed, errors.Join(errs...)
}

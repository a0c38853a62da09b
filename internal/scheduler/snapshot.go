package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Snapshotter records equity snapshots for every account.
type Snapshotter interface {
	SnapshotAll(ctx context.Context) (int, error)
}

// SnapshotJob records the equity of every account.
type SnapshotJob struct {
	snapshots Snapshotter
	timeout   time.Duration
	log       zerolog.Logger
}

// NewSnapshotJob bounds each run by timeout; zero means one minute.
func NewSnapshotJob(s Snapshotter, timeout time.Duration, log zerolog.Logger) *SnapshotJob {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &SnapshotJob{
		snapshots: s,
		timeout:   timeout,
		log:       log.With().Str("job", "equity_snapshot").Logger(),
	}
}

func (j *SnapshotJob) Name() string { return "equity_snapshot" }

func (j *SnapshotJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	n, err := j.snapshots.SnapshotAll(ctx)
	if err != nil {
		return err
	}
	j.log.Info().Int("recorded", n).Dur("took", time.Since(start)).Msg("equity snapshots recorded")
	return nil
}

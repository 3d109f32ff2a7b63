package job

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/index"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/repo"
)

// ReindexJob rebuilds the chunk table when any request row changed since the
// last rebuild. The whole table is regenerated rather than diffed; embeddings
// for unchanged content come out of the cache, so a full pass stays cheap at
// nightly cadence.
type ReindexJob struct {
	requests *repo.RequestRepo
	chunks   *repo.ChunkRepo
	indexer  *index.Indexer
}

func NewReindexJob(requests *repo.RequestRepo, chunks *repo.ChunkRepo, indexer *index.Indexer) *ReindexJob {
	return &ReindexJob{requests: requests, chunks: chunks, indexer: indexer}
}

func (j *ReindexJob) Name() string {
	return "reindex"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	if j.indexer == nil {
		return nil
	}
	stale, err := j.stale(ctx)
	if err != nil {
		return err
	}
	if !stale {
		logutil.GetLogger(ctx).Debug("chunks up to date, reindex skipped")
		return nil
	}
	stats, err := j.indexer.Reindex(ctx)
	if errors.Is(err, errs.ErrIndexRunning) {
		logutil.GetLogger(ctx).Info("reindex already in flight, skipped")
		return nil
	}
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("scheduled reindex finished",
		zap.Int64("requests", stats.Requests),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("skipped", stats.Skipped),
		zap.Duration("took", stats.Took),
	)
	return nil
}

// stale compares the newest request mtime against the newest mtime captured
// in the chunk table at the last rebuild.
func (j *ReindexJob) stale(ctx context.Context) (bool, error) {
	reqMtime, err := j.requests.MaxMtime(ctx)
	if err != nil {
		return false, err
	}
	if reqMtime == 0 {
		return false, nil
	}
	chunkCount, err := j.chunks.Count(ctx)
	if err != nil {
		return false, err
	}
	if chunkCount == 0 {
		return true, nil
	}
	chunkMtime, err := j.chunks.MaxMtime(ctx)
	if err != nil {
		return false, err
	}
	return reqMtime > chunkMtime, nil
}

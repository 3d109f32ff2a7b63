package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shaibs/reqsearch/internal/ai"
	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
)

// RequestSource pages through the request table in stable order.
type RequestSource interface {
	ListPage(ctx context.Context, offset, limit uint) ([]*model.Request, error)
}

// ChunkSink owns the chunk table writes.
type ChunkSink interface {
	Truncate(ctx context.Context) error
	InsertBatch(ctx context.Context, chunks []*model.RequestChunk) error
}

type Options struct {
	ChunkTokens int
	// Concurrency bounds in-flight embedding calls; everything else runs
	// sequentially.
	Concurrency int
	PageSize    uint
}

func (o Options) withDefaults() Options {
	if o.ChunkTokens <= 0 {
		o.ChunkTokens = 400
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.PageSize == 0 {
		o.PageSize = 200
	}
	return o
}

// Stats summarizes one regeneration run. Skipped counts records whose
// weighted fields were all empty.
type Stats struct {
	Requests int64
	Chunks   int64
	Skipped  int64
	Took     time.Duration
}

// Indexer rebuilds the chunk table from the request table. A run is
// exclusive and whole-table: truncate first, then rewrite, so chunks built
// under two different weight profiles can never coexist.
type Indexer struct {
	source   RequestSource
	sink     ChunkSink
	embedder ai.IEmbedder
	profile  *WeightProfile
	opts     Options
	running  atomic.Bool
}

func NewIndexer(source RequestSource, sink ChunkSink, embedder ai.IEmbedder, profile *WeightProfile, opts Options) *Indexer {
	if profile == nil {
		profile = DefaultProfile()
	}
	return &Indexer{
		source:   source,
		sink:     sink,
		embedder: embedder,
		profile:  profile,
		opts:     opts.withDefaults(),
	}
}

// Running reports whether a regeneration is in flight.
func (ix *Indexer) Running() bool {
	return ix.running.Load()
}

// Reindex regenerates the whole chunk set. A second concurrent call fails
// fast with ErrIndexRunning. Searches racing the rewrite may observe an
// empty or partial chunk set and rank it as zero results; the run that
// finishes restores the full set.
func (ix *Indexer) Reindex(ctx context.Context) (*Stats, error) {
	if !ix.running.CompareAndSwap(false, true) {
		return nil, errs.ErrIndexRunning
	}
	defer ix.running.Store(false)

	logger := logutil.GetLogger(ctx)
	start := time.Now()
	if err := ix.sink.Truncate(ctx); err != nil {
		return nil, fmt.Errorf("truncate chunks: %w", err)
	}
	stats := &Stats{}
	var offset uint
	for {
		page, err := ix.source.ListPage(ctx, offset, ix.opts.PageSize)
		if err != nil {
			return nil, fmt.Errorf("list requests: %w", err)
		}
		if len(page) == 0 {
			break
		}
		chunks, skipped, err := ix.buildPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if err := ix.sink.InsertBatch(ctx, chunks); err != nil {
			return nil, fmt.Errorf("insert chunks: %w", err)
		}
		stats.Requests += int64(len(page))
		stats.Chunks += int64(len(chunks))
		stats.Skipped += skipped
		logger.Debug("indexed page",
			zap.Uint("offset", offset),
			zap.Int("requests", len(page)),
			zap.Int("chunks", len(chunks)),
		)
		offset += uint(len(page))
		if len(page) < int(ix.opts.PageSize) {
			break
		}
	}
	stats.Took = time.Since(start)
	logger.Info("chunk regeneration done",
		zap.Int64("requests", stats.Requests),
		zap.Int64("chunks", stats.Chunks),
		zap.Int64("skipped", stats.Skipped),
		zap.Duration("took", stats.Took),
	)
	return stats, nil
}

// buildPage combines, splits and embeds one page of requests. Chunk indices
// restart at 0 per request and stay contiguous.
func (ix *Indexer) buildPage(ctx context.Context, page []*model.Request) ([]*model.RequestChunk, int64, error) {
	var skipped int64
	chunks := make([]*model.RequestChunk, 0, len(page))
	for _, req := range page {
		parts := SplitChunks(Combine(req, ix.profile), ix.opts.ChunkTokens)
		if len(parts) == 0 {
			skipped++
			continue
		}
		for i, part := range parts {
			chunks = append(chunks, &model.RequestChunk{
				RequestID:   req.ID,
				ChunkIndex:  i,
				Content:     part,
				ContentHash: contentHash(part),
				Mtime:       req.Mtime,
			})
		}
	}
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(ix.opts.Concurrency)
	for _, chunk := range chunks {
		grp.Go(func() error {
			vec, err := ix.embedder.Embed(gctx, chunk.Content, ai.TaskTypeDocument)
			if err != nil {
				return fmt.Errorf("embed chunk %s/%d: %w", chunk.RequestID, chunk.ChunkIndex, err)
			}
			chunk.Embedding = vec
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, 0, err
	}
	return chunks, skipped, nil
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

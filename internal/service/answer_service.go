package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/answer"
	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
)

// IAnswerGenerator is the bounded generation surface.
type IAnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// IReadiness gates generation behind the one-time warm-up.
type IReadiness interface {
	EnsureReady(ctx context.Context) error
}

type AnswerOptions struct {
	CacheSize int
	CacheTTL  time.Duration
	// SummarySample is how many records summarize queries aggregate over,
	// independent of the caller's top_k.
	SummarySample int
}

func (o AnswerOptions) withDefaults() AnswerOptions {
	if o.CacheSize <= 0 {
		o.CacheSize = 2000
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 15 * time.Minute
	}
	if o.SummarySample <= 0 {
		o.SummarySample = 50
	}
	return o
}

// AnswerService turns a query into a complete answer. Numeric query types
// are answered deterministically; the rest go through generation with a
// two-step degradation, so the caller always receives either answer text or
// a localized notice, never a blank response and never a user-facing error.
type AnswerService struct {
	search    *SearchService
	composer  *answer.Composer
	generator IAnswerGenerator
	gate      IReadiness
	cache     *expirable.LRU[string, *answer.Answer]
	opts      AnswerOptions
}

func NewAnswerService(search *SearchService, composer *answer.Composer, generator IAnswerGenerator, gate IReadiness, opts AnswerOptions) *AnswerService {
	opts = opts.withDefaults()
	return &AnswerService{
		search:    search,
		composer:  composer,
		generator: generator,
		gate:      gate,
		cache:     expirable.NewLRU[string, *answer.Answer](opts.CacheSize, nil, opts.CacheTTL),
		opts:      opts,
	}
}

// Answer composes the reply for one query. Generated answers are cached;
// deterministic count and urgent answers are cheap and exact, so they are
// recomputed every time.
func (s *AnswerService) Answer(ctx context.Context, rawQuery string, topK int, useGeneration bool) (*answer.Answer, error) {
	parsed := s.search.parser.Parse(rawQuery)
	cacheable := useGeneration && isCacheable(parsed.QueryType)
	key := answerCacheKey(rawQuery, topK)
	if cacheable {
		if cached, ok := s.cache.Get(key); ok {
			return cached, nil
		}
	}

	ans := s.compose(ctx, parsed, topK, useGeneration)
	logutil.GetLogger(ctx).Info("answer composed",
		zap.String("query_type", string(parsed.QueryType)),
		zap.Int64("count", ans.Count),
		zap.Bool("has_text", ans.Text != nil),
		zap.String("degraded", ans.Degraded),
	)
	if cacheable && ans.Text != nil && ans.Degraded == "" {
		s.cache.Add(key, ans)
	}
	return ans, nil
}

func (s *AnswerService) compose(ctx context.Context, parsed *query.Parsed, topK int, useGeneration bool) *answer.Answer {
	switch parsed.QueryType {
	case query.TypeCount:
		return s.composeCount(ctx, parsed, topK)
	case query.TypeUrgent:
		return s.composeUrgent(ctx, parsed, topK)
	}
	return s.composeGenerated(ctx, parsed, topK, useGeneration)
}

// composeCount answers with a verified number. For structured-only queries
// the number is cross-checked against the exact-filter count; a generator
// is never asked to produce it.
func (s *AnswerService) composeCount(ctx context.Context, parsed *query.Parsed, topK int) *answer.Answer {
	if parsed.EntityType == query.EntityProjects {
		// per-project breakdown needs a wider sample than top_k
		records, total, err := s.search.run(ctx, parsed, maxInt(topK, s.opts.SummarySample))
		if err != nil {
			return s.retrievalFailed(ctx, parsed, err)
		}
		text := s.composer.CountProjects(parsed, records)
		return &answer.Answer{Text: &text, Records: clipRecords(records, topK), Parsed: parsed, Count: total}
	}

	records, total, err := s.search.run(ctx, parsed, topK)
	if err != nil {
		return s.retrievalFailed(ctx, parsed, err)
	}
	verified := total
	if e := parsed.Entities; e.HasStructured() && !e.HasText() {
		exact, err := s.search.ranker.ExactCount(ctx, e)
		if err != nil {
			logutil.GetLogger(ctx).Warn("count cross-check failed, using ranked total", zap.Error(err))
		} else {
			if exact != total {
				logutil.GetLogger(ctx).Warn("count mismatch between ranked total and exact filter",
					zap.Int64("ranked", total), zap.Int64("exact", exact))
			}
			verified = exact
		}
	}
	text := s.composer.CountRequests(parsed, verified)
	return &answer.Answer{Text: &text, Records: records, Parsed: parsed, Count: verified}
}

// composeUrgent buckets the due dates deterministically.
func (s *AnswerService) composeUrgent(ctx context.Context, parsed *query.Parsed, topK int) *answer.Answer {
	records, total, err := s.search.run(ctx, parsed, topK)
	if err != nil {
		return s.retrievalFailed(ctx, parsed, err)
	}
	if len(records) == 0 {
		return s.noResults(parsed)
	}
	text := s.composer.Urgent(parsed, records)
	return &answer.Answer{Text: &text, Records: records, Parsed: parsed, Count: total}
}

// composeGenerated serves find, summarize, similar and answer-retrieval
// queries: retrieve, then try generation, degrading to retrieval-only with
// the failure reason preserved as metadata.
func (s *AnswerService) composeGenerated(ctx context.Context, parsed *query.Parsed, topK int, useGeneration bool) *answer.Answer {
	sample := topK
	if parsed.QueryType == query.TypeSummarize {
		sample = maxInt(topK, s.opts.SummarySample)
	}
	records, total, err := s.search.run(ctx, parsed, sample)
	if err != nil {
		return s.retrievalFailed(ctx, parsed, err)
	}
	if len(records) == 0 {
		return s.noResults(parsed)
	}

	var stats *answer.Stats
	if parsed.QueryType == query.TypeSummarize {
		stats = answer.Collect(records)
		records = clipRecords(records, topK)
	}
	source := s.fetchSource(ctx, parsed)

	base := &answer.Answer{Records: records, Parsed: parsed, Count: total}
	if !useGeneration {
		return base
	}
	if s.generator == nil {
		return s.generationFailed(ctx, base, errs.ErrGenerator)
	}
	if err := s.gate.EnsureReady(ctx); err != nil {
		return s.generationFailed(ctx, base, err)
	}
	prompt := s.composer.Prompt(answer.PromptInput{
		Parsed:  parsed,
		Records: records,
		Source:  source,
		Count:   total,
		Stats:   stats,
	})
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return s.generationFailed(ctx, base, err)
	}
	base.Text = &text
	return base
}

// fetchSource loads the source record for similar and answer-retrieval
// queries. A missing source only weakens the prompt, it never fails the
// answer.
func (s *AnswerService) fetchSource(ctx context.Context, parsed *query.Parsed) *model.Request {
	if parsed.QueryType != query.TypeSimilar && parsed.QueryType != query.TypeAnswerRetrieval {
		return nil
	}
	id := parsed.Entities.RequestID
	if id == "" {
		return nil
	}
	src, err := s.search.GetRequest(ctx, id)
	if err != nil {
		if !errors.Is(err, errs.ErrNotFound) {
			logutil.GetLogger(ctx).Warn("source record fetch failed", zap.String("request_id", id), zap.Error(err))
		}
		return nil
	}
	return src
}

// retrievalFailed is the bottom rung of the ladder: even a storage failure
// yields a graceful localized message, with the cause kept as metadata.
func (s *AnswerService) retrievalFailed(ctx context.Context, parsed *query.Parsed, err error) *answer.Answer {
	logutil.GetLogger(ctx).Error("retrieval failed for answer", zap.Error(err))
	return &answer.Answer{
		Message:  s.composer.NoResults(parsed.Lang),
		Records:  []*model.ScoredRequest{},
		Parsed:   parsed,
		Degraded: err.Error(),
	}
}

func (s *AnswerService) noResults(parsed *query.Parsed) *answer.Answer {
	return &answer.Answer{
		Message: s.composer.NoResults(parsed.Lang),
		Records: []*model.ScoredRequest{},
		Parsed:  parsed,
	}
}

// generationFailed degrades to retrieval-only: ranked records plus a
// localized notice, never a user-facing error.
func (s *AnswerService) generationFailed(ctx context.Context, base *answer.Answer, err error) *answer.Answer {
	logutil.GetLogger(ctx).Warn("generation unavailable, serving retrieval only", zap.Error(err))
	base.Message = s.composer.GenerationUnavailable(base.Parsed.Lang)
	base.Degraded = err.Error()
	return base
}

// isCacheable excludes the deterministic numeric types: their answers must
// track the data exactly, and they cost one SQL query anyway.
func isCacheable(qt query.QueryType) bool {
	switch qt {
	case query.TypeFind, query.TypeSummarize, query.TypeSimilar, query.TypeAnswerRetrieval:
		return true
	}
	return false
}

func answerCacheKey(rawQuery string, topK int) string {
	return fmt.Sprintf("%s|%d", strings.TrimSpace(rawQuery), topK)
}

func clipRecords(records []*model.ScoredRequest, topK int) []*model.ScoredRequest {
	if topK > 0 && len(records) > topK {
		return records[:topK]
	}
	return records
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

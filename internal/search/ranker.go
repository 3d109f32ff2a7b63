// Package search ranks request records against a parsed query. It combines
// exact structured predicates, literal text containment and vector
// similarity over the chunk table into one ordered, per-record deduplicated
// result set with an authoritative total count.
package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/ai"
	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
	"github.com/shaibs/reqsearch/internal/repo"
)

// ChunkStore is the nearest-neighbor surface of the chunk table.
type ChunkStore interface {
	Nearest(ctx context.Context, vec []float32, f *repo.SearchFilter, minSimilarity float64, limit int) ([]*repo.ChunkHit, error)
	GetFirst(ctx context.Context, requestID string) (*model.RequestChunk, error)
}

// IDStore is the exact-filter surface of the requests table.
type IDStore interface {
	ListFilteredIDs(ctx context.Context, f *repo.SearchFilter) ([]string, error)
	CountFiltered(ctx context.Context, f *repo.SearchFilter) (int64, error)
}

// Policy carries the ranking knobs. The thresholds and boost multipliers
// are tuned values, not invariants; deployments validate them against their
// own labeled query sets.
type Policy struct {
	DefaultTopK       int
	MaxTopK           int
	PersonThreshold   float64
	GeneralThreshold  float64
	CombinedThreshold float64
	SimilarThreshold  float64
	LabelBoost        float64
	MentionBoost      float64
	// ScanLimit caps the superset fetched by one similarity query. The
	// count is computed over this superset, so it must stay well above any
	// realistic matching-set size.
	ScanLimit int
	// UrgentWindowDays bounds the due-date window selected by the urgency
	// flag; overdue records are always included.
	UrgentWindowDays int
	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func (p Policy) withDefaults() Policy {
	if p.DefaultTopK <= 0 {
		p.DefaultTopK = 10
	}
	if p.MaxTopK <= 0 {
		p.MaxTopK = 100
	}
	if p.PersonThreshold == 0 {
		p.PersonThreshold = 0.5
	}
	if p.GeneralThreshold == 0 {
		p.GeneralThreshold = 0.4
	}
	if p.CombinedThreshold == 0 {
		p.CombinedThreshold = 0.2
	}
	if p.SimilarThreshold == 0 {
		p.SimilarThreshold = 0.6
	}
	if p.LabelBoost == 0 {
		p.LabelBoost = 2.0
	}
	if p.MentionBoost == 0 {
		p.MentionBoost = 1.5
	}
	if p.ScanLimit <= 0 {
		p.ScanLimit = 2000
	}
	if p.UrgentWindowDays <= 0 {
		p.UrgentWindowDays = 7
	}
	if p.Now == nil {
		p.Now = time.Now
	}
	return p
}

// RankedRequest is one scored result. Similarity is the maximum over the
// record's chunks, never an average: verbose records must not be penalized,
// and one weak chunk must not hide a strong match elsewhere in the record.
type RankedRequest struct {
	RequestID  string
	Similarity float64
	Boost      float64
	ChunkIndex int
}

// Score is the final ranking key. Boost only ever multiplies a similarity
// score; it never orders results on its own.
func (r *RankedRequest) Score() float64 {
	return r.Similarity * r.Boost
}

// Result is the ordered, truncated result list plus the count over the full
// matching set before truncation. Total >= len(Items) always, and Total ==
// 0 exactly when Items is empty.
type Result struct {
	Items []*RankedRequest
	Total int64
}

type Ranker struct {
	embedder ai.IEmbedder
	chunks   ChunkStore
	ids      IDStore
	// labels maps a record field name to the label text injected before
	// that field in chunk content; adjacency to these labels earns the top
	// boost tier.
	labels map[string][]string
	policy Policy
}

func NewRanker(embedder ai.IEmbedder, chunks ChunkStore, ids IDStore, labels map[string][]string, policy Policy) *Ranker {
	return &Ranker{
		embedder: embedder,
		chunks:   chunks,
		ids:      ids,
		labels:   labels,
		policy:   policy.withDefaults(),
	}
}

// Rank evaluates one parsed query. Zero results are a valid success
// outcome; only storage and embedding failures return an error, always
// wrapping ErrRetrieval.
func (r *Ranker) Rank(ctx context.Context, parsed *query.Parsed, topK int) (*Result, error) {
	topK = r.clampTopK(topK)
	if parsed.QueryType == query.TypeSimilar || parsed.QueryType == query.TypeAnswerRetrieval {
		if parsed.Entities.RequestID != "" {
			return r.rankSimilar(ctx, parsed, topK)
		}
		// no usable source id; fall through to a plain semantic search
	}

	e := parsed.Entities
	textValues := e.TextValues()
	hasStructured := e.HasStructured()
	hasText := len(textValues) > 0

	if hasStructured && !hasText {
		return r.rankStructured(ctx, e, topK)
	}

	filter := StructuredFilter(e, r.policy.Now(), r.policy.UrgentWindowDays)
	if (hasStructured && hasText) || len(textValues) > 1 {
		// multi-entity AND semantics: every declared text value must appear
		// literally in the matched chunk, on top of the similarity cutoff
		filter.ContainsAll = textValues
	} else if hasText {
		// a literal mention is always a match even when the embedding
		// disagrees; keeps single-name counts exact
		filter.OrContains = textValues[0]
	}
	threshold := r.thresholdFor(parsed.Intent, hasStructured, hasText)

	vec, err := r.embedder.Embed(ctx, parsed.Raw, ai.TaskTypeQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", errs.ErrRetrieval, err)
	}
	hits, err := r.chunks.Nearest(ctx, vec, filter, threshold, r.policy.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	ranked := r.aggregate(hits, parsed)
	logutil.GetLogger(ctx).Debug("semantic rank",
		zap.String("intent", string(parsed.Intent)),
		zap.Float64("threshold", threshold),
		zap.Int("chunks", len(hits)),
		zap.Int("records", len(ranked)),
	)
	return truncate(ranked, topK), nil
}

// rankStructured serves queries whose entities are all exact predicates. An
// exact categorical filter is definitionally complete; a semantic cutoff on
// top of it would silently drop correct matches, so none is applied and
// ordering falls back to recency. Count and items come from the same id
// list and cannot diverge.
func (r *Ranker) rankStructured(ctx context.Context, e query.Entities, topK int) (*Result, error) {
	ids, err := r.ids.ListFilteredIDs(ctx, StructuredFilter(e, r.policy.Now(), r.policy.UrgentWindowDays))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	items := make([]*RankedRequest, 0, topK)
	for _, id := range ids {
		if len(items) == topK {
			break
		}
		items = append(items, &RankedRequest{RequestID: id, Boost: 1})
	}
	return &Result{Items: items, Total: int64(len(ids))}, nil
}

// ExactCount runs the authoritative exact-filter count over the query's
// structured predicates, with no similarity involved. Count answers
// cross-check the ranked total against this before citing a number.
func (r *Ranker) ExactCount(ctx context.Context, e query.Entities) (int64, error) {
	count, err := r.ids.CountFiltered(ctx, StructuredFilter(e, r.policy.Now(), r.policy.UrgentWindowDays))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	return count, nil
}

// rankSimilar ranks every other record by vector distance to the source
// record's first chunk. A source that is not indexed yet (or whose chunks
// are gone mid-regeneration) yields an empty result, not an error.
func (r *Ranker) rankSimilar(ctx context.Context, parsed *query.Parsed, topK int) (*Result, error) {
	sourceID := parsed.Entities.RequestID
	anchor, err := r.chunks.GetFirst(ctx, sourceID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			logutil.GetLogger(ctx).Info("similar-by-record source has no chunks", zap.String("request_id", sourceID))
			return &Result{Items: []*RankedRequest{}}, nil
		}
		return nil, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	filter := &repo.SearchFilter{ExcludeID: sourceID}
	hits, err := r.chunks.Nearest(ctx, anchor.Embedding, filter, r.policy.SimilarThreshold, r.policy.ScanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	return truncate(r.aggregate(hits, parsed), topK), nil
}

// thresholdFor picks the similarity cutoff by query shape. Structured
// predicates already disambiguate, so their presence relaxes the cutoff to
// a noise floor; bare name/project lookups need the tightest one because
// their lexical variety is high.
func (r *Ranker) thresholdFor(intent query.Intent, hasStructured, hasText bool) float64 {
	switch {
	case hasStructured && hasText:
		return r.policy.CombinedThreshold
	case intent == query.IntentPerson || intent == query.IntentProject:
		return r.policy.PersonThreshold
	}
	return r.policy.GeneralThreshold
}

// aggregate groups chunk hits by request id, keeping the best-similarity
// chunk (and its boost) per record, then orders by similarity*boost.
func (r *Ranker) aggregate(hits []*repo.ChunkHit, parsed *query.Parsed) []*RankedRequest {
	best := make(map[string]*RankedRequest, len(hits))
	for _, hit := range hits {
		cur := best[hit.RequestID]
		if cur != nil && hit.Similarity <= cur.Similarity {
			continue
		}
		best[hit.RequestID] = &RankedRequest{
			RequestID:  hit.RequestID,
			Similarity: hit.Similarity,
			Boost:      r.chunkBoost(hit.Content, parsed),
			ChunkIndex: hit.ChunkIndex,
		}
	}
	out := make([]*RankedRequest, 0, len(best))
	for _, item := range best {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Score(), out[j].Score()
		if si != sj {
			return si > sj
		}
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].RequestID < out[j].RequestID
	})
	return out
}

func (r *Ranker) clampTopK(topK int) int {
	if topK <= 0 {
		return r.policy.DefaultTopK
	}
	if topK > r.policy.MaxTopK {
		return r.policy.MaxTopK
	}
	return topK
}

func truncate(ranked []*RankedRequest, topK int) *Result {
	total := int64(len(ranked))
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return &Result{Items: ranked, Total: total}
}

// StructuredFilter renders the exact-predicate entities as a repo filter.
// The urgency flag selects records due inside the urgent window, overdue
// included.
func StructuredFilter(e query.Entities, now time.Time, urgentWindowDays int) *repo.SearchFilter {
	f := &repo.SearchFilter{TypeID: e.TypeID, StatusID: e.StatusID}
	if e.Dates != nil {
		if !e.Dates.Start.IsZero() {
			f.CtimeFrom = e.Dates.Start.Unix()
		}
		if !e.Dates.End.IsZero() {
			f.CtimeTo = e.Dates.End.Unix()
		}
	}
	if e.Urgent {
		if urgentWindowDays <= 0 {
			urgentWindowDays = 7
		}
		due := now.AddDate(0, 0, urgentWindowDays)
		f.DueBefore = time.Date(due.Year(), due.Month(), due.Day(), 23, 59, 59, 0, due.Location()).Unix()
	}
	return f
}

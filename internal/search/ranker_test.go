package search

import (
	"context"
	"errors"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
	"github.com/shaibs/reqsearch/internal/repo"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 15, 12, 30, 0, 0, time.Local)
}

// vecFor builds a unit vector whose dot product with the query axis (1,0,0)
// is exactly s, so chunk similarities are fully scripted.
func vecFor(s float64) []float32 {
	return []float32{float32(s), float32(math.Sqrt(1 - s*s)), 0}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0, 0}, nil
}

func (f *fakeEmbedder) ModelName() string {
	return "fake-embed"
}

type fakeChunk struct {
	index   int
	content string
	sim     float64
}

type fakeRecord struct {
	id         string
	typeID     int64
	statusID   int64
	ctime      int64
	statusDate int64
	chunks     []fakeChunk
}

// fakeStore implements ChunkStore and IDStore over an in-memory corpus,
// applying the same predicate semantics as the SQL repos.
type fakeStore struct {
	records    []fakeRecord
	nearestErr error
}

func (f *fakeStore) structuredMatch(rec fakeRecord, flt *repo.SearchFilter) bool {
	if flt == nil {
		return true
	}
	if flt.TypeID != nil && rec.typeID != *flt.TypeID {
		return false
	}
	if flt.StatusID != nil && rec.statusID != *flt.StatusID {
		return false
	}
	if flt.CtimeFrom > 0 && rec.ctime < flt.CtimeFrom {
		return false
	}
	if flt.CtimeTo > 0 && rec.ctime > flt.CtimeTo {
		return false
	}
	if flt.DueBefore > 0 && (rec.statusDate <= 0 || rec.statusDate > flt.DueBefore) {
		return false
	}
	if flt.ExcludeID != "" && rec.id == flt.ExcludeID {
		return false
	}
	return true
}

func (f *fakeStore) Nearest(ctx context.Context, vec []float32, flt *repo.SearchFilter, minSimilarity float64, limit int) ([]*repo.ChunkHit, error) {
	if f.nearestErr != nil {
		return nil, f.nearestErr
	}
	hits := make([]*repo.ChunkHit, 0)
	for _, rec := range f.records {
		if !f.structuredMatch(rec, flt) {
			continue
		}
	chunks:
		for _, ch := range rec.chunks {
			content := strings.ToLower(ch.content)
			if flt != nil {
				for _, v := range flt.ContainsAll {
					if !strings.Contains(content, strings.ToLower(v)) {
						continue chunks
					}
				}
			}
			sim := dot(vec, vecFor(ch.sim))
			if minSimilarity > 0 && sim < minSimilarity {
				if flt == nil || flt.OrContains == "" || !strings.Contains(content, strings.ToLower(flt.OrContains)) {
					continue
				}
			}
			hits = append(hits, &repo.ChunkHit{
				RequestID:  rec.id,
				ChunkIndex: ch.index,
				Content:    ch.content,
				Similarity: sim,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].Similarity > hits[j].Similarity })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeStore) GetFirst(ctx context.Context, requestID string) (*model.RequestChunk, error) {
	for _, rec := range f.records {
		for _, ch := range rec.chunks {
			if rec.id == requestID && ch.index == 0 {
				return &model.RequestChunk{
					RequestID:  rec.id,
					ChunkIndex: 0,
					Content:    ch.content,
					Embedding:  vecFor(ch.sim),
				}, nil
			}
		}
	}
	return nil, errs.ErrNotFound
}

func (f *fakeStore) CountFiltered(ctx context.Context, flt *repo.SearchFilter) (int64, error) {
	ids, err := f.ListFilteredIDs(ctx, flt)
	if err != nil {
		return 0, err
	}
	return int64(len(ids)), nil
}

func (f *fakeStore) ListFilteredIDs(ctx context.Context, flt *repo.SearchFilter) ([]string, error) {
	matched := make([]fakeRecord, 0)
	for _, rec := range f.records {
		if f.structuredMatch(rec, flt) {
			matched = append(matched, rec)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].ctime != matched[j].ctime {
			return matched[i].ctime > matched[j].ctime
		}
		return matched[i].id < matched[j].id
	})
	ids := make([]string, 0, len(matched))
	for _, rec := range matched {
		ids = append(ids, rec.id)
	}
	return ids, nil
}

var testLabels = map[string][]string{
	model.FieldUpdatedBy:       {"עודכן על ידי"},
	model.FieldCreatedBy:       {"נפתח על ידי"},
	model.FieldResponsibleName: {"באחריות"},
	model.FieldContactName:     {"איש קשר"},
	model.FieldProjectName:     {"פרויקט"},
}

func newTestRanker(store *fakeStore, policy Policy) *Ranker {
	if policy.Now == nil {
		policy.Now = fixedNow
	}
	return NewRanker(&fakeEmbedder{}, store, store, testLabels, policy)
}

func parseQuery(t *testing.T, q string) *query.Parsed {
	t.Helper()
	return query.NewParser(query.Params{Now: fixedNow}).Parse(q)
}

func TestRankPersonBoostTiers(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "r-label", chunks: []fakeChunk{{index: 0, sim: 0.80, content: "עודכן על ידי: Alice\nפרויקט: Alpha"}}},
		{id: "r-mention", chunks: []fakeChunk{{index: 0, sim: 0.90, content: "פרויקט: Beta\nהערות: waiting for alice"}}},
		{id: "r-plain", chunks: []fakeChunk{{index: 0, sim: 0.95, content: "פרויקט: Gamma"}}},
		{id: "r-low", chunks: []fakeChunk{{index: 0, sim: 0.30, content: "הערות: nothing here"}}},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)
	require.Len(t, res.Items, 3)

	// label adjacency beats a bare mention beats an unboosted semantic hit
	require.Equal(t, "r-label", res.Items[0].RequestID)
	require.Equal(t, 2.0, res.Items[0].Boost)
	require.Equal(t, "r-mention", res.Items[1].RequestID)
	require.Equal(t, 1.5, res.Items[1].Boost)
	require.Equal(t, "r-plain", res.Items[2].RequestID)
	require.Equal(t, 1.0, res.Items[2].Boost)
	require.Greater(t, res.Items[0].Score(), res.Items[1].Score())
	require.Greater(t, res.Items[1].Score(), res.Items[2].Score())
}

func TestRankLiteralMentionAlwaysMatches(t *testing.T) {
	// similarity below the person threshold, but the name appears verbatim
	store := &fakeStore{records: []fakeRecord{
		{id: "r-lowmention", chunks: []fakeChunk{{index: 0, sim: 0.30, content: "הערות: ping alice again"}}},
		{id: "r-lowplain", chunks: []fakeChunk{{index: 0, sim: 0.30, content: "הערות: nothing"}}},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "r-lowmention", res.Items[0].RequestID)
	require.Equal(t, 1.5, res.Items[0].Boost)
}

func TestRankAggregationKeepsBestChunkNotMean(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "r-multi", chunks: []fakeChunk{
			{index: 0, sim: 0.50, content: "עודכן על ידי: Alice"},
			{index: 1, sim: 0.90, content: "תיאור עבודה: תיקון תאורה"},
		}},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	require.Equal(t, int64(1), res.Total)

	// the record rides its best-similarity chunk and that chunk's boost,
	// even when a weaker chunk would score higher after boosting
	item := res.Items[0]
	require.Equal(t, "r-multi", item.RequestID)
	require.InDelta(t, 0.90, item.Similarity, 1e-6)
	require.Equal(t, 1, item.ChunkIndex)
	require.Equal(t, 1.0, item.Boost)
}

func TestRankStructuredOnlyBypassesSimilarity(t *testing.T) {
	store := &fakeStore{
		records: []fakeRecord{
			{id: "t4-old", typeID: 4, ctime: 100},
			{id: "t4-new", typeID: 4, ctime: 300},
			{id: "t4-mid", typeID: 4, ctime: 200},
			{id: "t9-a", typeID: 9, ctime: 400},
			{id: "t9-b", typeID: 9, ctime: 500},
		},
		// the similarity path must never run for a pure structured filter
		nearestErr: errors.New("nearest must not be called"),
	}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "בקשות מסוג 4"), 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)
	require.Len(t, res.Items, 2)
	require.Equal(t, "t4-new", res.Items[0].RequestID)
	require.Equal(t, "t4-mid", res.Items[1].RequestID)
	require.GreaterOrEqual(t, res.Total, int64(len(res.Items)))
}

func TestRankCombinedANDLogic(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "a1", typeID: 4, chunks: []fakeChunk{{index: 0, sim: 0.30, content: "עודכן על ידי: משה"}}},
		{id: "a2", typeID: 4, chunks: []fakeChunk{{index: 0, sim: 0.25, content: "הערות: משה מטפל"}}},
		{id: "a3", typeID: 4, chunks: []fakeChunk{{index: 0, sim: 0.95, content: "הערות: אין שם"}}},
		{id: "a4", typeID: 9, chunks: []fakeChunk{{index: 0, sim: 0.95, content: "עודכן על ידי: משה"}}},
		{id: "a5", typeID: 4, chunks: []fakeChunk{{index: 0, sim: 0.15, content: "הערות: משה"}}},
	}}
	r := newTestRanker(store, Policy{})

	combined, err := r.Rank(context.Background(), parseQuery(t, "בקשות ממשה מסוג 4"), 10)
	require.NoError(t, err)
	// a3 fails containment, a4 fails the type filter, a5 falls under the
	// combined noise floor
	require.Equal(t, int64(2), combined.Total)
	require.Equal(t, "a1", combined.Items[0].RequestID)
	require.Equal(t, "a2", combined.Items[1].RequestID)

	personOnly, err := r.Rank(context.Background(), parseQuery(t, "בקשות ממשה"), 10)
	require.NoError(t, err)
	typeOnly, err := r.Rank(context.Background(), parseQuery(t, "בקשות מסוג 4"), 10)
	require.NoError(t, err)

	// adding a constraint must never increase matches
	require.LessOrEqual(t, combined.Total, personOnly.Total)
	require.LessOrEqual(t, combined.Total, typeOnly.Total)
}

func TestRankSimilarByRecord(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "221000226", chunks: []fakeChunk{{index: 0, sim: 1.0, content: "פרויקט: שיקום"}}},
		{id: "s-close", chunks: []fakeChunk{{index: 0, sim: 0.90, content: "פרויקט: שיקום ב"}}},
		{id: "s-near", chunks: []fakeChunk{{index: 0, sim: 0.65, content: "פרויקט: אחר"}}},
		{id: "s-far", chunks: []fakeChunk{{index: 0, sim: 0.55, content: "פרויקט: רחוק"}}},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests similar to 221000226"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), res.Total)
	require.Equal(t, "s-close", res.Items[0].RequestID)
	require.Equal(t, "s-near", res.Items[1].RequestID)
	for _, item := range res.Items {
		// the source never appears in its own similarity results
		require.NotEqual(t, "221000226", item.RequestID)
		require.Equal(t, 1.0, item.Boost)
	}
}

func TestRankSimilarSourceWithoutChunksIsBenign(t *testing.T) {
	r := newTestRanker(&fakeStore{}, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests similar to 999000111"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Total)
	require.Empty(t, res.Items)
}

func TestRankZeroResultsIsSuccess(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "r1", chunks: []fakeChunk{{index: 0, sim: 0.10, content: "הערות: כלום"}}},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.Total)
	require.Empty(t, res.Items)
}

func TestRankRetrievalErrorsPropagate(t *testing.T) {
	store := &fakeStore{
		records:    []fakeRecord{{id: "r1", chunks: []fakeChunk{{index: 0, sim: 0.9, content: "x"}}}},
		nearestErr: errors.New("db gone"),
	}
	r := newTestRanker(store, Policy{})
	_, err := r.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.ErrorIs(t, err, errs.ErrRetrieval)

	broken := NewRanker(&fakeEmbedder{err: errors.New("provider down")}, store, store, testLabels, Policy{Now: fixedNow})
	_, err = broken.Rank(context.Background(), parseQuery(t, "requests from Alice"), 10)
	require.ErrorIs(t, err, errs.ErrRetrieval)
}

func TestRankTopKClamping(t *testing.T) {
	records := make([]fakeRecord, 0, 5)
	for _, rec := range []struct {
		id  string
		sim float64
	}{{"c1", 0.95}, {"c2", 0.90}, {"c3", 0.85}, {"c4", 0.80}, {"c5", 0.75}} {
		records = append(records, fakeRecord{
			id:     rec.id,
			chunks: []fakeChunk{{index: 0, sim: rec.sim, content: "תיאור עבודה: חשמל"}},
		})
	}
	store := &fakeStore{records: records}
	r := newTestRanker(store, Policy{DefaultTopK: 2, MaxTopK: 3})

	parsed := parseQuery(t, "בקשות חשמל ותאורה")
	res, err := r.Rank(context.Background(), parsed, 0)
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, int64(5), res.Total)

	res, err = r.Rank(context.Background(), parsed, 99)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)
	require.Equal(t, int64(5), res.Total)
}

func TestRankDateAndUrgencyFilters(t *testing.T) {
	inRange := time.Date(2024, 5, 10, 10, 0, 0, 0, time.Local).Unix()
	outOfRange := time.Date(2024, 4, 1, 10, 0, 0, 0, time.Local).Unix()
	dueSoon := time.Date(2024, 5, 20, 0, 0, 0, 0, time.Local).Unix()
	overdue := time.Date(2024, 4, 1, 0, 0, 0, 0, time.Local).Unix()
	farFuture := time.Date(2024, 6, 30, 0, 0, 0, 0, time.Local).Unix()

	store := &fakeStore{records: []fakeRecord{
		{id: "recent", ctime: inRange, statusDate: farFuture},
		{id: "old", ctime: outOfRange, statusDate: dueSoon},
		{id: "due", ctime: outOfRange, statusDate: dueSoon},
		{id: "late", ctime: outOfRange, statusDate: overdue},
		{id: "unset", ctime: outOfRange, statusDate: 0},
	}}
	r := newTestRanker(store, Policy{})

	res, err := r.Rank(context.Background(), parseQuery(t, "בקשות מהשבוע האחרון"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.Total)
	require.Equal(t, "recent", res.Items[0].RequestID)

	// urgency selects records due inside the window, overdue included,
	// records without a status date excluded
	res, err = r.Rank(context.Background(), parseQuery(t, "בקשות דחופות"), 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), res.Total)
}

func TestExactCountMatchesStructuredTotal(t *testing.T) {
	store := &fakeStore{records: []fakeRecord{
		{id: "t4-a", typeID: 4},
		{id: "t4-b", typeID: 4},
		{id: "t9-a", typeID: 9},
	}}
	r := newTestRanker(store, Policy{})

	parsed := parseQuery(t, "כמה בקשות מסוג 4")
	res, err := r.Rank(context.Background(), parsed, 10)
	require.NoError(t, err)

	count, err := r.ExactCount(context.Background(), parsed.Entities)
	require.NoError(t, err)
	require.Equal(t, res.Total, count)
	require.Equal(t, int64(2), count)
}

func TestStructuredFilterUrgentWindow(t *testing.T) {
	f := StructuredFilter(query.Entities{Urgent: true}, fixedNow(), 7)
	require.Equal(t, time.Date(2024, 5, 22, 23, 59, 59, 0, time.Local).Unix(), f.DueBefore)
	require.Nil(t, f.TypeID)

	typeID := int64(4)
	f = StructuredFilter(query.Entities{TypeID: &typeID}, fixedNow(), 7)
	require.Equal(t, int64(0), f.DueBefore)
	require.Equal(t, int64(4), *f.TypeID)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
	"github.com/shaibs/reqsearch/internal/search"
)

func fixedNow() time.Time {
	return time.Date(2024, 5, 15, 12, 30, 0, 0, time.Local)
}

type fakeRanker struct {
	result    *search.Result
	rankErr   error
	exact     int64
	exactErr  error
	rankCalls int
	lastTopK  int
	exactUsed bool
}

func (f *fakeRanker) Rank(ctx context.Context, parsed *query.Parsed, topK int) (*search.Result, error) {
	f.rankCalls++
	f.lastTopK = topK
	if f.rankErr != nil {
		return nil, f.rankErr
	}
	if f.result == nil {
		return &search.Result{Items: []*search.RankedRequest{}}, nil
	}
	return f.result, nil
}

func (f *fakeRanker) ExactCount(ctx context.Context, e query.Entities) (int64, error) {
	f.exactUsed = true
	return f.exact, f.exactErr
}

type fakeRecords struct {
	rows      map[string]*model.Request
	listErr   error
	lastGetID string
}

func (f *fakeRecords) GetByID(ctx context.Context, id string) (*model.Request, error) {
	f.lastGetID = id
	if row, ok := f.rows[id]; ok {
		return row, nil
	}
	return nil, errs.ErrNotFound
}

func (f *fakeRecords) ListByIDs(ctx context.Context, ids []string) ([]*model.Request, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	// deliberately out of rank order; the service must reorder
	out := make([]*model.Request, 0, len(ids))
	for id, row := range f.rows {
		for _, want := range ids {
			if id == want {
				out = append(out, row)
				break
			}
		}
	}
	return out, nil
}

func newTestSearchService(ranker *fakeRanker, records *fakeRecords) *SearchService {
	parser := query.NewParser(query.Params{Now: fixedNow})
	return NewSearchService(parser, ranker, records)
}

func rankedItem(id string, sim, boost float64) *search.RankedRequest {
	return &search.RankedRequest{RequestID: id, Similarity: sim, Boost: boost}
}

func TestSearchMaterializesInRankOrder(t *testing.T) {
	ranker := &fakeRanker{result: &search.Result{
		Items: []*search.RankedRequest{
			rankedItem("b", 0.9, 2.0),
			rankedItem("a", 0.8, 1.0),
		},
		Total: 2,
	}}
	records := &fakeRecords{rows: map[string]*model.Request{
		"a": {ID: "a", ProjectName: "אלף"},
		"b": {ID: "b", ProjectName: "בית"},
	}}
	svc := newTestSearchService(ranker, records)

	got, total, parsed, err := svc.Search(context.Background(), "בקשות ממשה", 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), total)
	require.Equal(t, query.TypeFind, parsed.QueryType)
	require.Len(t, got, 2)
	require.Equal(t, "b", got[0].Request.ID)
	require.Equal(t, 0.9, got[0].Similarity)
	require.Equal(t, 2.0, got[0].Boost)
	require.Equal(t, "a", got[1].Request.ID)
}

func TestSearchDropsRowsDeletedMidQuery(t *testing.T) {
	ranker := &fakeRanker{result: &search.Result{
		Items: []*search.RankedRequest{rankedItem("a", 0.9, 1), rankedItem("gone", 0.8, 1)},
		Total: 2,
	}}
	records := &fakeRecords{rows: map[string]*model.Request{"a": {ID: "a"}}}
	svc := newTestSearchService(ranker, records)

	got, total, _, err := svc.Search(context.Background(), "בקשות", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(2), total)
}

func TestSearchPropagatesRetrievalErrors(t *testing.T) {
	svc := newTestSearchService(&fakeRanker{rankErr: errs.ErrRetrieval}, &fakeRecords{})
	_, _, _, err := svc.Search(context.Background(), "בקשות", 10)
	require.ErrorIs(t, err, errs.ErrRetrieval)

	ranker := &fakeRanker{result: &search.Result{Items: []*search.RankedRequest{rankedItem("a", 1, 1)}, Total: 1}}
	svc = newTestSearchService(ranker, &fakeRecords{listErr: errors.New("db gone")})
	_, _, _, err = svc.Search(context.Background(), "בקשות", 10)
	require.ErrorIs(t, err, errs.ErrRetrieval)
}

func TestGetRequest(t *testing.T) {
	records := &fakeRecords{rows: map[string]*model.Request{"221000226": {ID: "221000226"}}}
	svc := newTestSearchService(&fakeRanker{}, records)

	got, err := svc.GetRequest(context.Background(), "221000226")
	require.NoError(t, err)
	require.Equal(t, "221000226", got.ID)

	_, err = svc.GetRequest(context.Background(), "missing")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

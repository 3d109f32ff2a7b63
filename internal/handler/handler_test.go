package handler

import (
	"bytes"
	"context"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/shaibs/reqsearch/internal/answer"
	"github.com/shaibs/reqsearch/internal/index"
	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
)

type fakeSearcher struct {
	items     []*model.ScoredRequest
	total     int64
	err       error
	record    *model.Request
	calls     int
	lastQuery string
	lastTopK  int
	lastGetID string
}

func (f *fakeSearcher) Search(ctx context.Context, rawQuery string, topK int) ([]*model.ScoredRequest, int64, *query.Parsed, error) {
	f.calls++
	f.lastQuery = rawQuery
	f.lastTopK = topK
	if f.err != nil {
		return nil, 0, nil, f.err
	}
	return f.items, f.total, &query.Parsed{Raw: rawQuery, QueryType: query.TypeFind}, nil
}

func (f *fakeSearcher) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	f.lastGetID = id
	if f.record == nil {
		return nil, errs.ErrNotFound
	}
	return f.record, nil
}

type fakeAnswerer struct {
	ans        *answer.Answer
	err        error
	lastQuery  string
	lastTopK   int
	lastUseGen bool
	calls      int
}

func (f *fakeAnswerer) Answer(ctx context.Context, rawQuery string, topK int, useGeneration bool) (*answer.Answer, error) {
	f.calls++
	f.lastQuery = rawQuery
	f.lastTopK = topK
	f.lastUseGen = useGeneration
	if f.err != nil {
		return nil, f.err
	}
	return f.ans, nil
}

type fakeIndexer struct {
	running bool
	started chan struct{}
}

func (f *fakeIndexer) Running() bool { return f.running }

func (f *fakeIndexer) Reindex(ctx context.Context) (*index.Stats, error) {
	close(f.started)
	return &index.Stats{}, nil
}

func getContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", target, nil)
	return c, w
}

func postContext(t *testing.T, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", target, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

func TestSearchHandlerRequiresQuery(t *testing.T) {
	searcher := &fakeSearcher{}
	h := NewSearchHandler(searcher)

	c, w := getContext(t, "/api/v1/search")
	h.Search(c)
	require.Contains(t, w.Body.String(), "query required")
	require.Zero(t, searcher.calls)
}

func TestSearchHandlerPassesQueryAndTopK(t *testing.T) {
	searcher := &fakeSearcher{
		items: []*model.ScoredRequest{{Request: &model.Request{ID: "a"}, Similarity: 0.8, Boost: 1.5}},
		total: 1,
	}
	h := NewSearchHandler(searcher)

	params := url.Values{}
	params.Set("q", "בקשות ממשה")
	params.Set("top_k", "5")
	c, w := getContext(t, "/api/v1/search?"+params.Encode())
	h.Search(c)

	require.Equal(t, "בקשות ממשה", searcher.lastQuery)
	require.Equal(t, 5, searcher.lastTopK)
	require.Contains(t, w.Body.String(), "items")
	require.Contains(t, w.Body.String(), "total")
}

func TestSearchHandlerIgnoresBadTopK(t *testing.T) {
	searcher := &fakeSearcher{}
	h := NewSearchHandler(searcher)

	params := url.Values{}
	params.Set("q", "בקשות")
	params.Set("top_k", "abc")
	c, _ := getContext(t, "/api/v1/search?"+params.Encode())
	h.Search(c)

	require.Equal(t, 1, searcher.calls)
	require.Zero(t, searcher.lastTopK, "bad top_k falls back to the ranker default")
}

func TestSearchHandlerMapsRetrievalError(t *testing.T) {
	searcher := &fakeSearcher{err: errs.ErrRetrieval}
	h := NewSearchHandler(searcher)

	params := url.Values{}
	params.Set("q", "בקשות")
	c, w := getContext(t, "/api/v1/search?"+params.Encode())
	h.Search(c)
	require.Contains(t, w.Body.String(), "retrieval failed")
}

func TestAnswerHandlerDefaultsGenerationOn(t *testing.T) {
	text := "תשובה"
	answerer := &fakeAnswerer{ans: &answer.Answer{Text: &text}}
	h := NewAnswerHandler(answerer)

	c, w := postContext(t, "/api/v1/answer", `{"query":"בקשות ממשה"}`)
	h.Answer(c)

	require.Equal(t, 1, answerer.calls)
	require.Equal(t, "בקשות ממשה", answerer.lastQuery)
	require.Zero(t, answerer.lastTopK)
	require.True(t, answerer.lastUseGen)
	require.Contains(t, w.Body.String(), "תשובה")
}

func TestAnswerHandlerExplicitNoGeneration(t *testing.T) {
	answerer := &fakeAnswerer{ans: &answer.Answer{}}
	h := NewAnswerHandler(answerer)

	c, _ := postContext(t, "/api/v1/answer", `{"query":"בקשות","top_k":3,"use_generation":false}`)
	h.Answer(c)

	require.Equal(t, 3, answerer.lastTopK)
	require.False(t, answerer.lastUseGen)
}

func TestAnswerHandlerRejectsBlankQuery(t *testing.T) {
	answerer := &fakeAnswerer{}
	h := NewAnswerHandler(answerer)

	c, w := postContext(t, "/api/v1/answer", `{"query":"   "}`)
	h.Answer(c)
	require.Contains(t, w.Body.String(), "query required")
	require.Zero(t, answerer.calls)
}

func TestAnswerHandlerRejectsMalformedBody(t *testing.T) {
	answerer := &fakeAnswerer{}
	h := NewAnswerHandler(answerer)

	c, w := postContext(t, "/api/v1/answer", `{"query":`)
	h.Answer(c)
	require.Contains(t, w.Body.String(), "invalid request")
	require.Zero(t, answerer.calls)
}

func TestRequestHandlerGet(t *testing.T) {
	searcher := &fakeSearcher{record: &model.Request{ID: "221000226", ProjectName: "שיקום"}}
	h := NewRequestHandler(searcher)

	c, w := getContext(t, "/api/v1/requests/221000226")
	c.Params = gin.Params{{Key: "id", Value: "221000226"}}
	h.Get(c)

	require.Equal(t, "221000226", searcher.lastGetID)
	require.Contains(t, w.Body.String(), "221000226")
}

func TestRequestHandlerGetNotFound(t *testing.T) {
	searcher := &fakeSearcher{}
	h := NewRequestHandler(searcher)

	c, w := getContext(t, "/api/v1/requests/nope")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}
	h.Get(c)
	require.Contains(t, w.Body.String(), "not found")
}

func TestAdminHandlerReindexStartsInBackground(t *testing.T) {
	indexer := &fakeIndexer{started: make(chan struct{})}
	h := NewAdminHandler(indexer)

	c, w := postContext(t, "/api/v1/admin/reindex", "")
	h.Reindex(c)
	require.Contains(t, w.Body.String(), "started")

	select {
	case <-indexer.started:
	case <-time.After(2 * time.Second):
		t.Fatal("background reindex never started")
	}
}

func TestAdminHandlerReindexAlreadyRunning(t *testing.T) {
	indexer := &fakeIndexer{running: true, started: make(chan struct{})}
	h := NewAdminHandler(indexer)

	c, w := postContext(t, "/api/v1/admin/reindex", "")
	h.Reindex(c)
	require.Contains(t, w.Body.String(), "already running")

	select {
	case <-indexer.started:
		t.Fatal("reindex must not start while one is running")
	case <-time.After(50 * time.Millisecond):
	}
}

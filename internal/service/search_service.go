package service

import (
	"context"
	"fmt"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/model"
	errs "github.com/shaibs/reqsearch/internal/pkg/errors"
	"github.com/shaibs/reqsearch/internal/query"
	"github.com/shaibs/reqsearch/internal/search"
)

// IRanker is the ranking surface the services consume.
type IRanker interface {
	Rank(ctx context.Context, parsed *query.Parsed, topK int) (*search.Result, error)
	ExactCount(ctx context.Context, e query.Entities) (int64, error)
}

// IRecordStore is the request-table surface the services consume.
type IRecordStore interface {
	GetByID(ctx context.Context, id string) (*model.Request, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.Request, error)
}

// SearchService runs one search end to end: parse, rank, materialize.
type SearchService struct {
	parser  *query.Parser
	ranker  IRanker
	records IRecordStore
}

func NewSearchService(parser *query.Parser, ranker IRanker, records IRecordStore) *SearchService {
	return &SearchService{parser: parser, ranker: ranker, records: records}
}

// Search ranks the query and materializes the top records in rank order.
// Total counts the full matching set before truncation, so it is never
// below the returned length.
func (s *SearchService) Search(ctx context.Context, rawQuery string, topK int) ([]*model.ScoredRequest, int64, *query.Parsed, error) {
	parsed := s.parser.Parse(rawQuery)
	records, total, err := s.run(ctx, parsed, topK)
	if err != nil {
		return nil, 0, parsed, err
	}
	logutil.GetLogger(ctx).Info("search done",
		zap.String("query_type", string(parsed.QueryType)),
		zap.String("intent", string(parsed.Intent)),
		zap.Int64("total", total),
		zap.Int("returned", len(records)),
	)
	return records, total, parsed, nil
}

// GetRequest returns one record by id, for direct lookups.
func (s *SearchService) GetRequest(ctx context.Context, id string) (*model.Request, error) {
	return s.records.GetByID(ctx, id)
}

func (s *SearchService) run(ctx context.Context, parsed *query.Parsed, topK int) ([]*model.ScoredRequest, int64, error) {
	res, err := s.ranker.Rank(ctx, parsed, topK)
	if err != nil {
		return nil, 0, err
	}
	records, err := s.materialize(ctx, res.Items)
	if err != nil {
		return nil, 0, err
	}
	return records, res.Total, nil
}

// materialize fetches the ranked rows with one batched call and rebuilds
// rank order. Rows deleted between ranking and fetch are dropped.
func (s *SearchService) materialize(ctx context.Context, items []*search.RankedRequest) ([]*model.ScoredRequest, error) {
	if len(items) == 0 {
		return []*model.ScoredRequest{}, nil
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.RequestID)
	}
	rows, err := s.records.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrRetrieval, err)
	}
	byID := make(map[string]*model.Request, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}
	out := make([]*model.ScoredRequest, 0, len(items))
	for _, item := range items {
		row := byID[item.RequestID]
		if row == nil {
			continue
		}
		out = append(out, &model.ScoredRequest{
			Request:    row,
			Similarity: item.Similarity,
			Boost:      item.Boost,
		})
	}
	return out, nil
}

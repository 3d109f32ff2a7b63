package handler

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shaibs/reqsearch/internal/model"
	"github.com/shaibs/reqsearch/internal/pkg/errcode"
	"github.com/shaibs/reqsearch/internal/pkg/response"
	"github.com/shaibs/reqsearch/internal/query"
)

type ISearcher interface {
	Search(ctx context.Context, rawQuery string, topK int) ([]*model.ScoredRequest, int64, *query.Parsed, error)
	GetRequest(ctx context.Context, id string) (*model.Request, error)
}

type SearchHandler struct {
	search ISearcher
}

func NewSearchHandler(search ISearcher) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		response.Error(c, errcode.ErrInvalid, "query required")
		return
	}
	// top_k is a tuning knob; bad values fall back to the ranker default
	topK := 0
	if value := c.Query("top_k"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			topK = parsed
		}
	}
	items, total, parsed, err := h.search.Search(c.Request.Context(), q, topK)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items, "total": total, "parsed": parsed})
}

package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/shaibs/reqsearch/internal/index"
	"github.com/shaibs/reqsearch/internal/pkg/errcode"
	"github.com/shaibs/reqsearch/internal/pkg/response"
)

type IReindexer interface {
	Running() bool
	Reindex(ctx context.Context) (*index.Stats, error)
}

type AdminHandler struct {
	indexer IReindexer
}

func NewAdminHandler(indexer IReindexer) *AdminHandler {
	return &AdminHandler{indexer: indexer}
}

// Reindex kicks off a full chunk regeneration in the background. The rebuild
// embeds every record and can run for minutes, so the request only reports
// that it started; progress lands in the logs.
func (h *AdminHandler) Reindex(c *gin.Context) {
	if h.indexer.Running() {
		response.Error(c, errcode.ErrIndexRunning, "index rebuild already running")
		return
	}
	go func() {
		// detached from the request; the rebuild outlives the HTTP call
		ctx := context.Background()
		stats, err := h.indexer.Reindex(ctx)
		if err != nil {
			logutil.GetLogger(ctx).Error("manual reindex failed", zap.Error(err))
			return
		}
		logutil.GetLogger(ctx).Info("manual reindex finished",
			zap.Int64("requests", stats.Requests),
			zap.Int64("chunks", stats.Chunks),
			zap.Int64("skipped", stats.Skipped),
			zap.Duration("took", stats.Took),
		)
	}()
	response.Success(c, gin.H{"started": true})
}
